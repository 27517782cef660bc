package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "feed:changed:"

// RedisBus 通过 Redis Pub/Sub 在多个 API 实例之间广播变更信号。
type RedisBus struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisBus(client redis.UniversalClient, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{client: client, logger: logger}
}

func channelName(c Collection) string { return channelPrefix + string(c) }

func (b *RedisBus) Publish(ctx context.Context, c Collection) error {
	if err := b.client.Publish(ctx, channelName(c), "changed").Err(); err != nil {
		return fmt.Errorf("publish %s change: %w", c, err)
	}
	return nil
}

func (b *RedisBus) Listen(ctx context.Context, c Collection) (<-chan struct{}, func(), error) {
	pubsub := b.client.Subscribe(ctx, channelName(c))
	// 等待订阅确认，确保之后的写入不会丢信号。
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", c, err)
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				b.logger.Warn("close feed subscription failed", slog.String("collection", string(c)), slog.Any("error", err))
			}
		})
	}

	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				notify(out)
			}
		}
	}()

	return out, stop, nil
}
