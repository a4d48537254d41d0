// Package filestore 把上传的附件保存到本地目录。
//
// 存储文件名随机生成（保留原扩展名），对外以 PublicPrefix 下的相对 URL 表示。
package filestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"taskhub/internal/apperr"
	"taskhub/internal/pkg/metrics"

	"github.com/google/uuid"
)

// PublicPrefix 是附件对外访问的路径前缀。
const PublicPrefix = "/uploads"

// StoredFile 描述一个已落盘的上传文件。
type StoredFile struct {
	OriginalName string // 客户端提交的文件名
	URL          string // 对外相对路径，如 /uploads/<uuid>.pdf
	Size         int64
}

// Store 本地目录文件存储。
type Store struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// New 创建文件存储并确保目录存在。
func New(dir string, maxBytes int64, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

// Dir 返回存储目录（用于静态文件服务）。
func (s *Store) Dir() string {
	return s.dir
}

// MaxBytes 返回单个文件的大小上限。
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save 保存上传文件。超过大小上限时返回 PayloadTooLarge 且不落盘。
func (s *Store) Save(fh *multipart.FileHeader) (StoredFile, error) {
	if fh == nil {
		return StoredFile{}, apperr.InvalidInput("file is required")
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return StoredFile{}, apperr.PayloadTooLarge(fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	src, err := fh.Open()
	if err != nil {
		return StoredFile{}, apperr.Internal("open upload failed", err)
	}
	defer src.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	dstPath := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, apperr.Internal("create stored file failed", err)
	}

	var reader io.Reader = src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	n, copyErr := io.Copy(dst, reader)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dstPath)
		return StoredFile{}, apperr.Internal("write stored file failed", errors.Join(copyErr, closeErr))
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		_ = os.Remove(dstPath)
		return StoredFile{}, apperr.PayloadTooLarge(fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	metrics.AttachmentBytesTotal.Add(float64(n))
	return StoredFile{
		OriginalName: fh.Filename,
		URL:          PublicPrefix + "/" + name,
		Size:         n,
	}, nil
}

// Path 把对外 URL 映射为本地文件路径；只取文件名部分，防止目录穿越。
func (s *Store) Path(url string) string {
	return filepath.Join(s.dir, filepath.Base(strings.TrimPrefix(url, PublicPrefix)))
}

// Remove 删除 URL 对应的文件。文件不存在视为成功。
func (s *Store) Remove(url string) error {
	if url == "" {
		return nil
	}
	err := os.Remove(s.Path(url))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.FileCleanupTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("remove stored file: %w", err)
	}
	metrics.FileCleanupTotal.WithLabelValues("ok").Inc()
	return nil
}

// RemoveQuietly 删除文件，失败只记录 warn 日志。
func (s *Store) RemoveQuietly(url string) {
	if err := s.Remove(url); err != nil {
		s.logger.Warn("remove stored file failed", slog.String("url", url), slog.String("error", err.Error()))
	}
}
