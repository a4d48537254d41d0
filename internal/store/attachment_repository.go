package store

import (
	"context"
	"fmt"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// AttachmentRepository handles task attachments.
type AttachmentRepository struct {
	db *gorm.DB
}

func (r *AttachmentRepository) Create(ctx context.Context, attachment *model.Attachment) error {
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// FindWithTask 查找附件并带出所属任务的 id 与 creator_id。
func (r *AttachmentRepository) FindWithTask(ctx context.Context, id uint) (*model.Attachment, error) {
	var attachment model.Attachment
	err := r.db.WithContext(ctx).
		Preload("Task", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "creator_id")
		}).
		First(&attachment, id).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *AttachmentRepository) ListByTask(ctx context.Context, taskID uint) ([]model.Attachment, error) {
	attachments := []model.Attachment{}
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id ASC").Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Attachment{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete attachment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
