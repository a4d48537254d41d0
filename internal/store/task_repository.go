package store

import (
	"context"
	"fmt"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

// withDetails 预加载任务的分类、附件以及共享对象（仅公开字段）。
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Category").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("SharedWith", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("SharedWith.User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "nome", "email")
		})
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID 按 id 查找任务（不预加载关联），不存在时返回 gorm.ErrRecordNotFound。
func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// FindDetailed 按 id 查找任务并预加载关联。
func (r *TaskRepository) FindDetailed(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := withDetails(r.db.WithContext(ctx)).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByCreator 返回创建者的全部任务，按创建时间倒序。
func (r *TaskRepository) ListByCreator(ctx context.Context, creatorID uint) ([]model.Task, error) {
	tasks := []model.Task{}
	err := withDetails(r.db.WithContext(ctx)).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update 只写入 updates 中出现的列。
func (r *TaskRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{ID: id}).Updates(updates).Error; err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete 删除任务；附件与共享记录由外键级联删除。
func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
