package service

import (
	"context"
	"log/slog"

	"taskhub/internal/access"
	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/internal/pkg/filestore"
	"taskhub/internal/store"
)

// AttachmentService 管理任务附件的记录与存储文件。
type AttachmentService struct {
	store  *store.Store
	guard  *access.Guard
	files  FileRemover
	runner Runner
	logger *slog.Logger
}

func NewAttachmentService(s *store.Store, guard *access.Guard, files FileRemover, runner Runner, logger *slog.Logger) *AttachmentService {
	return &AttachmentService{
		store:  s,
		guard:  guard,
		files:  files,
		runner: runnerOrInline(runner),
		logger: loggerOrDefault(logger),
	}
}

// Create 为任务登记一个已保存的文件。任何失败都会先删除该文件，避免存储孤儿。
func (s *AttachmentService) Create(ctx context.Context, creatorID, taskID uint, file filestore.StoredFile) (*model.Attachment, error) {
	if _, err := s.guard.AuthorizeTask(ctx, creatorID, taskID); err != nil {
		s.discard(file)
		return nil, err
	}

	attachment := model.Attachment{
		TaskID:   taskID,
		FileName: file.OriginalName,
		URL:      file.URL,
	}
	if err := s.store.Attachments.Create(ctx, &attachment); err != nil {
		s.discard(file)
		return nil, apperr.Internal("create attachment failed", err)
	}
	return &attachment, nil
}

// Discard 删除一个未登记的上传文件（请求校验失败时由调用方使用）。
func (s *AttachmentService) Discard(file filestore.StoredFile) {
	s.discard(file)
}

func (s *AttachmentService) discard(file filestore.StoredFile) {
	if s.files != nil && file.URL != "" {
		s.files.RemoveQuietly(file.URL)
	}
}

// List 返回任务的全部附件。
func (s *AttachmentService) List(ctx context.Context, creatorID, taskID uint) ([]model.Attachment, error) {
	if _, err := s.guard.AuthorizeTask(ctx, creatorID, taskID); err != nil {
		return nil, err
	}
	attachments, err := s.store.Attachments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperr.Internal("list attachments failed", err)
	}
	return attachments, nil
}

// Delete 先提交存储文件的删除（失败仅记录 warn），再删除附件记录。
func (s *AttachmentService) Delete(ctx context.Context, userID, attachmentID uint) (*model.Attachment, error) {
	attachment, err := s.guard.AuthorizeAttachment(ctx, userID, attachmentID)
	if err != nil {
		return nil, err
	}
	removeFiles(ctx, s.runner, s.files, []string{attachment.URL})
	if err := s.store.Attachments.Delete(ctx, attachmentID); err != nil {
		return nil, dbError(err, "attachment not found", "delete attachment failed")
	}

	s.logger.Info("attachment deleted",
		slog.Uint64("attachment_id", uint64(attachmentID)),
		slog.String("url", attachment.URL))
	return attachment, nil
}
