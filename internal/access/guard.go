// Package access 实现任务、分类、附件与共享的归属校验。
//
// “不存在”与“不属于调用者”统一返回 NotFound，不暴露其他用户记录是否存在。
package access

import (
	"context"
	"errors"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/pkg/metrics"

	"gorm.io/gorm"
)

// Lookup 是 Guard 需要的只读查询。
type Lookup interface {
	FindTask(ctx context.Context, id uint) (*model.Task, error)
	FindCategory(ctx context.Context, id uint) (*model.Category, error)
	FindAttachmentWithTask(ctx context.Context, id uint) (*model.Attachment, error)
	ShareExists(ctx context.Context, taskID, userID uint) (bool, error)
}

// Guard 是所有服务共用的访问控制入口。
type Guard struct {
	lookup Lookup
}

// NewGuard 创建 Guard。
func NewGuard(lookup Lookup) *Guard {
	return &Guard{lookup: lookup}
}

// AuthorizeTask 仅当 task.CreatorID == userID 时返回任务。
func (g *Guard) AuthorizeTask(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	task, err := g.lookup.FindTask(ctx, taskID)
	if err != nil {
		return nil, notFoundOr(err, "task", "task not found")
	}
	if task.CreatorID != userID {
		return nil, denied("task", "task not found")
	}
	return task, nil
}

// AuthorizeAttachment 要求附件所属任务的创建者为 userID。
func (g *Guard) AuthorizeAttachment(ctx context.Context, userID, attachmentID uint) (*model.Attachment, error) {
	att, err := g.lookup.FindAttachmentWithTask(ctx, attachmentID)
	if err != nil {
		return nil, notFoundOr(err, "attachment", "attachment not found")
	}
	if att.Task == nil || att.Task.CreatorID != userID {
		return nil, denied("attachment", "attachment not found")
	}
	return att, nil
}

// AuthorizeCategory 要求分类属于 userID。
func (g *Guard) AuthorizeCategory(ctx context.Context, userID, categoryID uint) (*model.Category, error) {
	category, err := g.lookup.FindCategory(ctx, categoryID)
	if err != nil {
		return nil, notFoundOr(err, "category", "category not found")
	}
	if category.UserID != userID {
		return nil, denied("category", "category not found")
	}
	return category, nil
}

// AuthorizeShareCreation 校验 creatorID 能否把 task 共享给 target。
//
// 自己共享给自己返回 InvalidOperation；授权已存在返回 Conflict。
// 调用前 task 必须已通过 AuthorizeTask。
func (g *Guard) AuthorizeShareCreation(ctx context.Context, creatorID uint, task *model.Task, target *model.User) error {
	if target.ID == creatorID || target.ID == task.CreatorID {
		return apperr.InvalidOperation("cannot share a task with yourself")
	}
	exists, err := g.lookup.ShareExists(ctx, task.ID, target.ID)
	if err != nil {
		return apperr.Internal("check share failed", err)
	}
	if exists {
		return apperr.Conflict("task already shared with this user")
	}
	return nil
}

func notFoundOr(err error, entity, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return denied(entity, msg)
	}
	return apperr.Internal("lookup "+entity+" failed", err)
}

func denied(entity, msg string) error {
	metrics.AccessDeniedTotal.WithLabelValues(entity).Inc()
	return apperr.NotFound(msg)
}
