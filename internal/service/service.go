// Package service 实现任务、分类、附件、共享与账户的业务逻辑。
//
// 每个操作先经过 access.Guard 做归属校验，再执行持久化；
// 返回的错误统一为 *apperr.Error。
package service

import (
	"context"
	"errors"
	"log/slog"

	"taskhub/internal/apperr"
	"taskhub/internal/pkg/queue"

	"gorm.io/gorm"
)

// Runner 执行不阻塞响应的后台收尾任务。
type Runner interface {
	Submit(ctx context.Context, job queue.Job)
}

// FileRemover 删除附件对应的存储文件，失败只记录日志。
type FileRemover interface {
	RemoveQuietly(url string)
}

// inlineRunner 在调用方 goroutine 中直接执行任务。
type inlineRunner struct{}

func (inlineRunner) Submit(ctx context.Context, job queue.Job) {
	_ = job(ctx)
}

func runnerOrInline(r Runner) Runner {
	if r == nil {
		return inlineRunner{}
	}
	return r
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// removeFiles 把一组存储文件的删除提交给 runner。
func removeFiles(ctx context.Context, runner Runner, files FileRemover, urls []string) {
	if files == nil || len(urls) == 0 {
		return
	}
	runner.Submit(ctx, func(ctx context.Context) error {
		for _, url := range urls {
			files.RemoveQuietly(url)
		}
		return nil
	})
}

// dbError 把仓储错误转换为业务错误：记录不存在映射为 NotFound，其余为 Internal。
func dbError(err error, notFoundMsg, internalMsg string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	return apperr.Internal(internalMsg, err)
}
