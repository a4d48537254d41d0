// Package dedup 用 Redis SETNX 在一个时间窗口内抑制重复事件（如重复的共享通知）。
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "taskhub:dedup:"

type Deduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Deduplicator{
		rdb: rdb,
		ttl: ttl,
	}
}

// ShareKey 共享通知的去重键：同一任务对同一用户只通知一次。
func ShareKey(taskID, userID uint) string {
	return fmt.Sprintf("share:%d:%d", taskID, userID)
}

// IsDuplicate 第一次看到 key 时返回 false 并占位，窗口内再次出现返回 true。
// 未配置 Redis 时总是返回 false。
func (d *Deduplicator) IsDuplicate(ctx context.Context, key string) (bool, error) {
	if d == nil || d.rdb == nil || key == "" {
		return false, nil
	}
	ok, err := d.rdb.SetNX(ctx, keyPrefix+hashKey(key), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return !ok, nil
}

// Delete 释放 key，发送失败时调用以便下次重试。
func (d *Deduplicator) Delete(ctx context.Context, key string) error {
	if d == nil || d.rdb == nil || key == "" {
		return nil
	}
	if err := d.rdb.Del(ctx, keyPrefix+hashKey(key)).Err(); err != nil {
		return fmt.Errorf("dedup del: %w", err)
	}
	return nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
