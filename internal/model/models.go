package model

import (
	"time"
)

// DefaultPriority 是未指定优先级时任务的默认值。
const DefaultPriority = "Normal"

// Category 表示用户自有的任务分类。
//
// 分类被删除时，引用它的任务 category_id 置空（不级联删除任务）。
type Category struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name   string `gorm:"type:varchar(191);not null"` // 分类名称
	UserID uint   `gorm:"not null;index"`             // 所属用户 ID

	Tasks []Task `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
}

// Task 表示一个待办任务。
//
// CreatorID 创建后不可变；只有创建者可以修改、删除任务或管理其附件与共享。
// 附件与共享记录随任务一起由外键级联删除。
type Task struct {
	ID        uint      `gorm:"primaryKey"` // 任务唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	Title       string     `gorm:"type:varchar(255);not null"`
	Description *string    `gorm:"type:text"`
	DueDate     *time.Time // 截止时间，可为空
	Priority    string     `gorm:"type:varchar(32);default:Normal"`

	// 创建者，创建后不可修改
	CreatorID uint  `gorm:"not null;index"`
	Creator   *User `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE"`
	// 所属分类，可为空
	CategoryID *uint     `gorm:"index"`
	Category   *Category `gorm:"foreignKey:CategoryID"`

	Attachments []Attachment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	SharedWith  []SharedTask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// Attachment 表示挂在任务上的文件。
type Attachment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	TaskID   uint   `gorm:"not null;index"`              // 所属任务
	Task     *Task  `gorm:"foreignKey:TaskID"`           // 所属任务（用于归属校验）
	FileName string `gorm:"type:varchar(255);not null"` // 原始文件名
	URL      string `gorm:"type:varchar(255);not null"` // 存储相对路径，如 /uploads/xxx.pdf
}

// SharedTask 是任务共享授权：允许 UserID 查看不属于自己的任务。
//
// (TaskID, UserID) 复合唯一，UserID 永远不等于任务的 CreatorID。
type SharedTask struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	TaskID uint  `gorm:"not null;uniqueIndex:idx_shared_task_user"`
	Task   *Task `gorm:"foreignKey:TaskID"`
	UserID uint  `gorm:"not null;uniqueIndex:idx_shared_task_user"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
