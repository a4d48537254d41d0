package service

import (
	"context"
	"strings"

	"taskhub/internal/access"
	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/store"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	store *store.Store
	guard *access.Guard
}

func NewCategoryService(s *store.Store, guard *access.Guard) *CategoryService {
	return &CategoryService{store: s, guard: guard}
}

func (s *CategoryService) Create(ctx context.Context, userID uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("category name is required")
	}
	category := model.Category{Name: name, UserID: userID}
	if err := s.store.Categories.Create(ctx, &category); err != nil {
		return nil, apperr.Internal("create category failed", err)
	}
	return &category, nil
}

// List 返回用户的分类（按名称排序），每个分类附带其任务的 id 与标题。
func (s *CategoryService) List(ctx context.Context, userID uint) ([]model.Category, error) {
	categories, err := s.store.Categories.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list categories failed", err)
	}
	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, categoryID uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("category name is required")
	}
	category, err := s.guard.AuthorizeCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Categories.UpdateName(ctx, category, name); err != nil {
		return nil, apperr.Internal("update category failed", err)
	}
	category.Name = name
	return category, nil
}

// Delete 删除分类；引用它的任务保留，category_id 置空。
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID uint) (*model.Category, error) {
	category, err := s.guard.AuthorizeCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Categories.Delete(ctx, categoryID); err != nil {
		return nil, dbError(err, "category not found", "delete category failed")
	}
	return category, nil
}
