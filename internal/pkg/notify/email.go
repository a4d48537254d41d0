package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"taskhub/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件通知。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
	send   func(m *gomail.Message) error
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
	n.send = n.dialAndSend
	return n
}

// Configured 报告 SMTP 是否已配置。
func (n *EmailNotifier) Configured() bool {
	return n != nil && n.cfg != nil && n.cfg.SMTPHost != "" && n.cfg.SMTPUser != "" && n.cfg.FromEmail != ""
}

// NotifyShare 发送任务共享通知邮件。
func (n *EmailNotifier) NotifyShare(ctx context.Context, notice ShareNotice) error {
	if !n.Configured() {
		n.logger.Debug("email config missing, skip share notification")
		return nil
	}
	if strings.TrimSpace(notice.ToEmail) == "" {
		n.logger.Warn("email recipient empty, skip notification")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", notice.ToEmail)
	m.SetHeader("Subject", fmt.Sprintf("[TaskHub] %s shared a task with you", notice.SharedBy))
	m.SetBody("text/html", buildShareBody(notice))

	if err := n.send(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("share notification sent",
		slog.String("to", notice.ToEmail),
		slog.Uint64("task_id", uint64(notice.TaskID)))
	return nil
}

func (n *EmailNotifier) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	return d.DialAndSend(m)
}

func buildShareBody(notice ShareNotice) string {
	greeting := notice.ToName
	if greeting == "" {
		greeting = notice.ToEmail
	}

	template := `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>TaskHub</h2>
    <p>Hi %s,</p>
    <p><strong>%s</strong> (%s) shared the task <strong>%s</strong> with you.</p>
    <p>Open your received shares to see it.</p>
  </div>
</body>
</html>`

	return fmt.Sprintf(template,
		html.EscapeString(greeting),
		html.EscapeString(notice.SharedBy),
		html.EscapeString(notice.SharedEmail),
		html.EscapeString(notice.TaskTitle))
}
