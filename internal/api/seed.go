package api

import (
	"context"
	"errors"
	"log/slog"

	"taskhub/internal/apperr"
	"taskhub/internal/service"
)

const (
	demoEmail    = "demo@taskhub.local"
	demoPassword = "demo-password"
	demoCategory = "Getting started"
	demoTask     = "Explore TaskHub"
)

// SeedDemoData 在 app.seed_demo 开启时写入演示账号、分类与任务。可重复执行。
func (s *Server) SeedDemoData(ctx context.Context) error {
	if !s.cfg.App.SeedDemo {
		return nil
	}

	nome := "Demo"
	user, err := s.accounts.Register(ctx, service.RegisterInput{
		Email:    demoEmail,
		Password: demoPassword,
		Nome:     &nome,
	})
	if errors.Is(err, apperr.ErrConflict) {
		user, err = s.store.Users.FindByEmail(ctx, demoEmail)
	}
	if err != nil {
		return err
	}

	existing, err := s.tasks.List(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.logger.Debug("demo data already present", slog.String("email", demoEmail))
		return nil
	}

	category, err := s.categories.Create(ctx, user.ID, demoCategory)
	if err != nil {
		return err
	}
	description := "Create tasks, attach files and share them with other users."
	if _, err := s.tasks.Create(ctx, user.ID, service.TaskInput{
		Title:       demoTask,
		Description: &description,
		CategoryID:  &category.ID,
	}); err != nil {
		return err
	}

	s.logger.Info("demo data seeded", slog.String("email", demoEmail))
	return nil
}
