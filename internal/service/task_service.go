package service

import (
	"context"
	"log/slog"
	"strings"

	"taskhub/internal/access"
	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/pkg/datefmt"
	"taskhub/internal/store"
)

// TaskInput 创建任务所需的数据。
type TaskInput struct {
	Title       string
	Description *string
	DueDate     string // DD-MM-YYYY HH:mm[:ss] 或通用日期格式，空表示无截止时间
	Priority    string
	CategoryID  *uint
}

// TaskPatch 更新任务时只包含出现的字段。CreatorID 不可修改。
type TaskPatch struct {
	Title         *string
	Description   *string
	DueDate       *string // 空字符串清除截止时间
	Priority      *string
	CategoryID    *uint
	ClearCategory bool
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store  *store.Store
	guard  *access.Guard
	files  FileRemover
	runner Runner
	logger *slog.Logger
}

func NewTaskService(s *store.Store, guard *access.Guard, files FileRemover, runner Runner, logger *slog.Logger) *TaskService {
	return &TaskService{
		store:  s,
		guard:  guard,
		files:  files,
		runner: runnerOrInline(runner),
		logger: loggerOrDefault(logger),
	}
}

// Create 创建任务，priority 默认 Normal，dueDate 经 datefmt.Parse 解析。
func (s *TaskService) Create(ctx context.Context, creatorID uint, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperr.InvalidInput("title is required")
	}

	dueDate, err := datefmt.Parse(input.DueDate)
	if err != nil {
		return nil, apperr.InvalidInput("invalid dueDate")
	}

	if input.CategoryID != nil {
		if _, err := s.guard.AuthorizeCategory(ctx, creatorID, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	priority := strings.TrimSpace(input.Priority)
	if priority == "" {
		priority = model.DefaultPriority
	}

	task := model.Task{
		Title:       title,
		Description: input.Description,
		DueDate:     dueDate,
		Priority:    priority,
		CreatorID:   creatorID,
		CategoryID:  input.CategoryID,
	}
	if err := s.store.Tasks.Create(ctx, &task); err != nil {
		return nil, apperr.Internal("create task failed", err)
	}
	return &task, nil
}

// List 返回 creatorID 的全部任务（含分类、附件、共享），按创建时间倒序。
func (s *TaskService) List(ctx context.Context, creatorID uint) ([]model.Task, error) {
	tasks, err := s.store.Tasks.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, apperr.Internal("list tasks failed", err)
	}
	return tasks, nil
}

// Get 返回单个任务（含关联），非本人任务返回 NotFound。
func (s *TaskService) Get(ctx context.Context, creatorID, taskID uint) (*model.Task, error) {
	if _, err := s.guard.AuthorizeTask(ctx, creatorID, taskID); err != nil {
		return nil, err
	}
	task, err := s.store.Tasks.FindDetailed(ctx, taskID)
	if err != nil {
		return nil, dbError(err, "task not found", "load task failed")
	}
	return task, nil
}

// Update 把 patch 中出现的字段合并到任务上。
func (s *TaskService) Update(ctx context.Context, creatorID, taskID uint, patch TaskPatch) (*model.Task, error) {
	if _, err := s.guard.AuthorizeTask(ctx, creatorID, taskID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperr.InvalidInput("title is required")
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.DueDate != nil {
		dueDate, err := datefmt.Parse(*patch.DueDate)
		if err != nil {
			return nil, apperr.InvalidInput("invalid dueDate")
		}
		updates["due_date"] = dueDate
	}
	if patch.Priority != nil {
		priority := strings.TrimSpace(*patch.Priority)
		if priority == "" {
			priority = model.DefaultPriority
		}
		updates["priority"] = priority
	}
	switch {
	case patch.ClearCategory:
		updates["category_id"] = nil
	case patch.CategoryID != nil:
		if _, err := s.guard.AuthorizeCategory(ctx, creatorID, *patch.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *patch.CategoryID
	}

	if err := s.store.Tasks.Update(ctx, taskID, updates); err != nil {
		return nil, dbError(err, "task not found", "update task failed")
	}
	task, err := s.store.Tasks.FindDetailed(ctx, taskID)
	if err != nil {
		return nil, dbError(err, "task not found", "load task failed")
	}
	return task, nil
}

// Delete 删除任务并返回被删除的记录。附件与共享由外键级联删除，
// 附件文件在后台尽力清理。
func (s *TaskService) Delete(ctx context.Context, creatorID, taskID uint) (*model.Task, error) {
	if _, err := s.guard.AuthorizeTask(ctx, creatorID, taskID); err != nil {
		return nil, err
	}
	task, err := s.store.Tasks.FindDetailed(ctx, taskID)
	if err != nil {
		return nil, dbError(err, "task not found", "load task failed")
	}
	if err := s.store.Tasks.Delete(ctx, taskID); err != nil {
		return nil, dbError(err, "task not found", "delete task failed")
	}

	urls := make([]string, 0, len(task.Attachments))
	for _, att := range task.Attachments {
		urls = append(urls, att.URL)
	}
	removeFiles(ctx, s.runner, s.files, urls)

	s.logger.Info("task deleted",
		slog.Uint64("task_id", uint64(taskID)),
		slog.Int("attachments", len(urls)))
	return task, nil
}
