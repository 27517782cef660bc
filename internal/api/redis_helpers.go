package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// 登录限流与锁定使用的键，email 已规范化。
func loginRateKey(ip, email string, now time.Time) string {
	return "rate:login:" + ip + ":" + email + ":" + now.UTC().Format("2006010215")
}

func loginLockKey(email string) string { return "lock:login:" + email }

func loginFailKey(email string) string { return "lock:login:fail:" + email }

// recordLoginFailure 累加失败次数，达到阈值后锁定账号 ttl 时长。
func recordLoginFailure(ctx context.Context, client redis.UniversalClient, email string, threshold int, ttl time.Duration) error {
	count, err := incrWithTTL(ctx, client, loginFailKey(email), ttl)
	if err != nil {
		return err
	}
	if threshold > 0 && count >= int64(threshold) {
		return client.Set(ctx, loginLockKey(email), "1", ttl).Err()
	}
	return nil
}
