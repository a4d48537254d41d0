// Package store 封装数据库连接与各实体的仓储。
//
// Store 由调用方显式 Open / Close，不存在包级全局连接。
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Store 持有数据库连接以及按实体划分的仓储。
type Store struct {
	db *gorm.DB

	Users       *UserRepository
	Categories  *CategoryRepository
	Tasks       *TaskRepository
	Attachments *AttachmentRepository
	Shares      *ShareRepository
}

// Open 连接数据库并执行自动迁移。
//
// 支持 mysql 与 sqlite 两种驱动；sqlite 会自动开启外键约束，
// 以保证任务删除时附件与共享记录被级联删除。
func Open(cfg config.DatabaseConfig, logLevel string) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Category{}, &model.Task{}, &model.Attachment{}, &model.SharedTask{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return New(db), nil
}

// New 基于已有的 gorm 连接构造 Store（不执行迁移）。
func New(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       &UserRepository{db: db},
		Categories:  &CategoryRepository{db: db},
		Tasks:       &TaskRepository{db: db},
		Attachments: &AttachmentRepository{db: db},
		Shares:      &ShareRepository{db: db},
	}
}

// DB 返回底层 gorm 连接。
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping 检查数据库连通性。
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

// Close 关闭底层连接池。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite", "sqlite3":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "taskhub.db"
		}
		if err := ensureDirForSQLite(dsn); err != nil {
			return nil, err
		}
		return sqlite.Open(withForeignKeys(dsn)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func newGormLogger(level string) gormLogger.Interface {
	if strings.EqualFold(level, "debug") {
		return gormLogger.New(
			log.New(os.Stdout, "", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Info,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	}
	// 关闭GORM调试日志
	return gormLogger.Default.LogMode(gormLogger.Silent)
}

// withForeignKeys 为 sqlite DSN 追加 _foreign_keys=1。
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=1"
	}
	return dsn + "?_foreign_keys=1"
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
