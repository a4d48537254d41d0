package model

import "time"

// User 表示系统用户。
type User struct {
	ID        uint      `gorm:"primaryKey"`                    // 用户 ID
	Email     string    `gorm:"type:varchar(191);uniqueIndex"` // 邮箱（唯一）
	Password  string    `gorm:"not null"`                      // bcrypt 哈希，永不对外输出
	Nome      *string   `gorm:"type:varchar(191)"`             // 显示名称（可选）
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间
}

// DisplayName 返回用户的显示名称，未设置时回退为邮箱。
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Nome != nil && *u.Nome != "" {
		return *u.Nome
	}
	return u.Email
}
