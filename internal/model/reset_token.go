package model

import (
	"time"
)

// PasswordResetToken 密码重置令牌，一次性使用
type PasswordResetToken struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Token     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// Usable 未使用且未过期
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
