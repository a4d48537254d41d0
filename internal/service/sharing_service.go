package service

import (
	"context"
	"log/slog"
	"strings"

	"taskhub/internal/access"
	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/pkg/dedup"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/notify"
	"taskhub/internal/store"
)

// Deduper 在时间窗口内抑制重复事件。
type Deduper interface {
	IsDuplicate(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// ShareResult 共享创建结果。
type ShareResult struct {
	Share  *model.SharedTask
	Task   *model.Task
	Target *model.User
}

// SharingService 管理任务共享授权。
type SharingService struct {
	store    *store.Store
	guard    *access.Guard
	runner   Runner
	notifier notify.Notifier
	dedup    Deduper
	logger   *slog.Logger
}

func NewSharingService(s *store.Store, guard *access.Guard, runner Runner, notifier notify.Notifier, deduper Deduper, logger *slog.Logger) *SharingService {
	return &SharingService{
		store:    s,
		guard:    guard,
		runner:   runnerOrInline(runner),
		notifier: notifier,
		dedup:    deduper,
		logger:   loggerOrDefault(logger),
	}
}

// Create 把 creatorID 的任务共享给 targetEmail 对应的用户。
//
// 自己共享给自己返回 InvalidOperation；重复共享（包括并发插入触发的唯一约束）返回 Conflict。
func (s *SharingService) Create(ctx context.Context, creatorID, taskID uint, targetEmail string) (*ShareResult, error) {
	targetEmail = strings.ToLower(strings.TrimSpace(targetEmail))
	if targetEmail == "" {
		return nil, apperr.InvalidInput("targetUserEmail is required")
	}

	task, err := s.guard.AuthorizeTask(ctx, creatorID, taskID)
	if err != nil {
		return nil, err
	}
	target, err := s.store.Users.FindByEmail(ctx, targetEmail)
	if err != nil {
		return nil, dbError(err, "target user not found", "lookup user failed")
	}
	if err := s.guard.AuthorizeShareCreation(ctx, creatorID, task, target); err != nil {
		return nil, err
	}

	share := model.SharedTask{TaskID: task.ID, UserID: target.ID}
	if err := s.store.Shares.Create(ctx, &share); err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Conflict("task already shared with this user")
		}
		return nil, apperr.Internal("create share failed", err)
	}
	metrics.SharesCreatedTotal.Inc()

	s.notifyShare(ctx, task, target, creatorID)

	return &ShareResult{Share: &share, Task: task, Target: target}, nil
}

// notifyShare 在后台发送共享通知，失败只记日志。
func (s *SharingService) notifyShare(ctx context.Context, task *model.Task, target *model.User, creatorID uint) {
	if s.notifier == nil {
		return
	}
	taskID, taskTitle := task.ID, task.Title
	s.runner.Submit(ctx, func(ctx context.Context) error {
		key := dedup.ShareKey(taskID, target.ID)
		if s.dedup != nil {
			dup, err := s.dedup.IsDuplicate(ctx, key)
			if err != nil {
				s.logger.Warn("share notify dedup failed", slog.String("error", err.Error()))
			} else if dup {
				return nil
			}
		}

		notice := notify.ShareNotice{
			TaskID:    taskID,
			TaskTitle: taskTitle,
			ToEmail:   target.Email,
		}
		if target.Nome != nil {
			notice.ToName = *target.Nome
		}
		if creator, err := s.store.Users.FindByID(ctx, creatorID); err == nil {
			notice.SharedBy = creator.DisplayName()
			notice.SharedEmail = creator.Email
		}

		if err := s.notifier.NotifyShare(ctx, notice); err != nil {
			s.logger.Warn("share notification failed",
				slog.Uint64("task_id", uint64(taskID)),
				slog.String("error", err.Error()))
			if s.dedup != nil {
				_ = s.dedup.Delete(ctx, key)
			}
			return err
		}
		return nil
	})
}

// ListReceived 返回共享给 userID 的授权（含任务与创建者），按任务创建时间倒序。
func (s *SharingService) ListReceived(ctx context.Context, userID uint) ([]model.SharedTask, error) {
	shares, err := s.store.Shares.ListReceived(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list received shares failed", err)
	}
	return shares, nil
}

// Delete 撤销 creatorID 对 targetUserID 的共享。
func (s *SharingService) Delete(ctx context.Context, creatorID, taskID, targetUserID uint) (*model.SharedTask, error) {
	if _, err := s.guard.AuthorizeTask(ctx, creatorID, taskID); err != nil {
		return nil, err
	}
	share, err := s.store.Shares.Delete(ctx, taskID, targetUserID)
	if err != nil {
		return nil, dbError(err, "share not found", "delete share failed")
	}
	return share, nil
}
