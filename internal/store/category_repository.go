package store

import (
	"context"
	"fmt"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListByUser 返回用户的分类（按名称排序），每个分类附带其任务的 id 与标题。
func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	categories := []model.Category{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "category_id").Order("id ASC")
		}).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) UpdateName(ctx context.Context, category *model.Category, name string) error {
	if err := r.db.WithContext(ctx).Model(category).Update("name", name).Error; err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Delete 删除分类，并在同一事务中把引用它的任务 category_id 置空。
func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Task{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach tasks: %w", err)
		}
		res := tx.Delete(&model.Category{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
