package access

import (
	"context"

	"taskhub/internal/model"
	"taskhub/internal/store"
)

// StoreLookup 把 store.Store 适配为 Lookup。
type StoreLookup struct {
	Store *store.Store
}

func (l StoreLookup) FindTask(ctx context.Context, id uint) (*model.Task, error) {
	return l.Store.Tasks.FindByID(ctx, id)
}

func (l StoreLookup) FindCategory(ctx context.Context, id uint) (*model.Category, error) {
	return l.Store.Categories.FindByID(ctx, id)
}

func (l StoreLookup) FindAttachmentWithTask(ctx context.Context, id uint) (*model.Attachment, error) {
	return l.Store.Attachments.FindWithTask(ctx, id)
}

func (l StoreLookup) ShareExists(ctx context.Context, taskID, userID uint) (bool, error) {
	return l.Store.Shares.Exists(ctx, taskID, userID)
}
