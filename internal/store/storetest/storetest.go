// Package storetest 为测试提供基于临时 SQLite 文件的 Store。
package storetest

import (
	"path/filepath"
	"testing"

	"taskhub/internal/config"
	"taskhub/internal/model"
	"taskhub/internal/store"
)

// Open 在 t.TempDir() 下创建一个已迁移的 SQLite Store，测试结束时自动关闭。
func Open(t testing.TB) *store.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "taskhub_test.db")
	s, err := store.Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, "error")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close test store: %v", err)
		}
	})
	return s
}

// MustUser 创建一个测试用户（密码字段为占位哈希）。
func MustUser(t testing.TB, s *store.Store, email, nome string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Password: "x"}
	if nome != "" {
		user.Nome = &nome
	}
	if err := s.Users.Create(t.Context(), user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

// MustTask 创建一个属于 creatorID 的测试任务。
func MustTask(t testing.TB, s *store.Store, creatorID uint, title string) *model.Task {
	t.Helper()
	task := &model.Task{Title: title, Priority: model.DefaultPriority, CreatorID: creatorID}
	if err := s.Tasks.Create(t.Context(), task); err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}
