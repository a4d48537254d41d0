package notify

import (
	"context"
)

// ShareNotice 描述一次任务共享，用于通知被共享的用户。
type ShareNotice struct {
	TaskID      uint
	TaskTitle   string
	ToEmail     string
	ToName      string
	SharedBy    string
	SharedEmail string
}

// Notifier 定义通知接口。
type Notifier interface {
	// NotifyShare 通知 ToEmail 有任务共享给了他。
	// 未配置发送通道时直接返回 nil。
	NotifyShare(ctx context.Context, notice ShareNotice) error
}
