package model

import (
	"time"
)

// User 用户表
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"type:varchar(32);not null" json:"phone"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	IsAdmin      bool      `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	KYCVerified  bool      `gorm:"column:kyc_verified;not null;default:false" json:"kyc_verified"`
	KYCDocument  *string   `gorm:"column:kyc_document;type:varchar(128)" json:"kyc_document"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserPatch 用户可修改的资料字段，nil 表示不修改
type UserPatch struct {
	Name  *string
	Email *string
	Phone *string
}

func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil
}
