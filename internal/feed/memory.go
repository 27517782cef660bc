package feed

import (
	"context"
	"sync"
)

// MemoryBus 是进程内的 Bus 实现，用于测试及未配置 Redis 的单实例部署。
type MemoryBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[Collection]map[int]chan struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[Collection]map[int]chan struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, c Collection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[c] {
		notify(ch)
	}
	return nil
}

func (b *MemoryBus) Listen(_ context.Context, c Collection) (<-chan struct{}, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan struct{}, 1)
	if b.subs[c] == nil {
		b.subs[c] = make(map[int]chan struct{})
	}
	b.subs[c][id] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[c], id)
			close(ch)
		})
	}
	return ch, stop, nil
}

// notify 非阻塞投递；已有未消费信号时直接合并。
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
