// Package queue 提供进程内固定 worker 池，用于不阻塞响应的后台收尾工作
// （删除存储文件、发送共享通知）。
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"taskhub/internal/pkg/metrics"
)

// Job 表示一个可执行的异步任务。
type Job func(ctx context.Context) error

// Queue 内存任务队列与固定 worker 池。
type Queue struct {
	logger  *slog.Logger
	workers int
	jobs    chan Job

	wg     sync.WaitGroup
	closed atomic.Bool
	// mu 保证 Shutdown 关闭通道时没有并发的发送。
	mu sync.RWMutex

	stats queueStats
}

type queueStats struct {
	enqueued  atomic.Int64
	inline    atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	panics    atomic.Int64
}

// Stats 队列统计信息快照。
type Stats struct {
	Enqueued  int64 // 入队任务数
	Inline    int64 // 队列满或已关闭时在调用方同步执行的任务数
	Succeeded int64 // 成功任务数
	Failed    int64 // 失败任务数
	Panics    int64 // Panic 次数
}

// NewQueue 创建一个新的任务队列。
//
// 参数:
//   - logger: 日志记录器
//   - workers: worker 数量（至少为 1）
//   - capacity: 队列容量（至少为 1）
func NewQueue(logger *slog.Logger, workers int, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		logger:  logger,
		workers: workers,
		jobs:    make(chan Job, capacity),
	}
}

// Start 启动 worker 池，直到 ctx 被取消或调用 Shutdown。
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("worker stopped", slog.Int("worker_id", id))
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			metrics.CleanupQueueDepth.Set(float64(len(q.jobs)))
			q.execute(ctx, job, id)
		}
	}
}

// execute 执行单个任务，带 panic 恢复。
func (q *Queue) execute(ctx context.Context, job Job, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			q.stats.panics.Add(1)
			q.logger.Error("job panic recovered",
				slog.Int("worker_id", workerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := job(ctx); err != nil {
		q.stats.failed.Add(1)
		q.logger.Warn("job failed",
			slog.Int("worker_id", workerID),
			slog.String("error", err.Error()))
		return
	}
	q.stats.succeeded.Add(1)
}

// Submit 把任务放入队列；队列已满或已关闭时在当前 goroutine 同步执行，
// 保证任务不会被静默丢弃。
func (q *Queue) Submit(ctx context.Context, job Job) {
	if job == nil {
		return
	}
	if q == nil {
		_ = job(ctx)
		return
	}

	q.mu.RLock()
	if !q.closed.Load() {
		select {
		case q.jobs <- job:
			q.stats.enqueued.Add(1)
			metrics.CleanupQueueDepth.Set(float64(len(q.jobs)))
			q.mu.RUnlock()
			return
		default:
		}
	}
	q.mu.RUnlock()

	q.stats.inline.Add(1)
	q.execute(context.WithoutCancel(ctx), job, -1)
}

// Shutdown 停止接收新任务并等待 worker 处理完队列中剩余任务。
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if !q.closed.CompareAndSwap(false, true) {
		q.mu.Unlock()
		return fmt.Errorf("queue already closed")
	}
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue shutdown completed")
		return nil
	case <-time.After(timeout):
		q.logger.Error("queue shutdown timeout")
		return fmt.Errorf("shutdown timeout after %s", timeout)
	}
}

// Stats 获取队列统计信息的快照。
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.stats.enqueued.Load(),
		Inline:    q.stats.inline.Load(),
		Succeeded: q.stats.succeeded.Load(),
		Failed:    q.stats.failed.Load(),
		Panics:    q.stats.panics.Load(),
	}
}

// Len 返回当前队列中待处理的任务数量。
func (q *Queue) Len() int {
	return len(q.jobs)
}
