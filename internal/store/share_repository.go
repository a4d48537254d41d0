package store

import (
	"context"
	"errors"
	"fmt"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// ShareRepository handles task share grants.
type ShareRepository struct {
	db *gorm.DB
}

// Create 写入共享记录。唯一约束冲突原样向上返回（调用方映射为 Conflict）。
func (r *ShareRepository) Create(ctx context.Context, share *model.SharedTask) error {
	if err := r.db.WithContext(ctx).Create(share).Error; err != nil {
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// Exists 判断 (taskID, userID) 授权是否已存在。
func (r *ShareRepository) Exists(ctx context.Context, taskID, userID uint) (bool, error) {
	_, err := r.Find(ctx, taskID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ShareRepository) Find(ctx context.Context, taskID, userID uint) (*model.SharedTask, error) {
	var share model.SharedTask
	if err := r.db.WithContext(ctx).Where("task_id = ? AND user_id = ?", taskID, userID).First(&share).Error; err != nil {
		return nil, err
	}
	return &share, nil
}

// ListReceived 返回共享给 userID 的授权，按任务创建时间倒序，预加载任务及其创建者。
func (r *ShareRepository) ListReceived(ctx context.Context, userID uint) ([]model.SharedTask, error) {
	shares := []model.SharedTask{}
	err := r.db.WithContext(ctx).
		Select("shared_tasks.*").
		Joins("JOIN tasks ON tasks.id = shared_tasks.task_id").
		Where("shared_tasks.user_id = ?", userID).
		Order("tasks.created_at DESC, tasks.id DESC").
		Preload("Task").
		Preload("Task.Creator", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "nome", "email")
		}).
		Find(&shares).Error
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// Delete 删除 (taskID, userID) 授权并返回被删除的记录。
func (r *ShareRepository) Delete(ctx context.Context, taskID, userID uint) (*model.SharedTask, error) {
	var deleted *model.SharedTask
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var share model.SharedTask
		if err := tx.Where("task_id = ? AND user_id = ?", taskID, userID).First(&share).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.SharedTask{}, share.ID)
		if res.Error != nil {
			return fmt.Errorf("delete share: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		deleted = &share
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
