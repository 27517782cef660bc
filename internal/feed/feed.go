// Package feed 提供基于推送的实时订阅：写入方在提交后发布“集合已变更”信号，
// 订阅方收到信号后重新查询并推送完整快照。
package feed

import (
	"context"
	"sync"
)

// Collection 是被订阅的记录集合。
type Collection string

const (
	Jobs         Collection = "jobs"
	Applications Collection = "applications"
)

// ParseCollection 校验客户端请求的集合名，只开放 jobs 与 applications；身份记录不可订阅。
func ParseCollection(raw string) (Collection, bool) {
	switch c := Collection(raw); c {
	case Jobs, Applications:
		return c, true
	}
	return "", false
}

// Publisher 在写入提交后发布变更信号。
type Publisher interface {
	Publish(ctx context.Context, c Collection) error
}

// Bus 同时支持发布与监听。Listen 返回的通道会合并密集信号，
// stop 用于释放底层订阅。
type Bus interface {
	Publisher
	Listen(ctx context.Context, c Collection) (signals <-chan struct{}, stop func(), err error)
}

// Snapshot 是某一时刻集合的完整内容。Err 非空表示这次重新查询失败，
// 订阅本身仍然有效。
type Snapshot[T any] struct {
	Seq     uint64
	Records []T
	Err     error
}

// Loader 返回订阅范围内的完整记录集。
type Loader[T any] func(ctx context.Context) ([]T, error)

// Watch 建立一个可取消的订阅：先推送一次初始快照，此后每次收到变更信号都推送新快照。
// 单个订阅内快照按信号到达顺序依次推送；cancel 可重复调用。
func Watch[T any](ctx context.Context, bus Bus, c Collection, load Loader[T]) (<-chan Snapshot[T], func(), error) {
	ctx, cancelCtx := context.WithCancel(ctx)

	signals, stop, err := bus.Listen(ctx, c)
	if err != nil {
		cancelCtx()
		return nil, nil, err
	}

	out := make(chan Snapshot[T])
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
			stop()
		})
	}

	go func() {
		defer close(out)
		defer cancel()

		var seq uint64
		emit := func() bool {
			seq++
			records, err := load(ctx)
			select {
			case out <- Snapshot[T]{Seq: seq, Records: records, Err: err}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
