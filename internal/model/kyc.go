package model

import (
	"slices"
	"time"
)

const (
	KYCStatusPending  = "PENDING"
	KYCStatusApproved = "APPROVED"
	KYCStatusRejected = "REJECTED"
)

const (
	DocumentTypePassport       = "passport"
	DocumentTypeNationalID     = "national_id"
	DocumentTypeDriversLicense = "drivers_license"
)

// DocumentTypes 接受的证件类型
var DocumentTypes = []string{DocumentTypePassport, DocumentTypeNationalID, DocumentTypeDriversLicense}

func ValidDocumentType(t string) bool {
	return slices.Contains(DocumentTypes, t)
}

// KYCRecord 实名认证记录，每个用户最多一条
type KYCRecord struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	Status         string    `gorm:"type:varchar(20);not null" json:"status"`
	DocumentType   string    `gorm:"type:varchar(32);not null" json:"document_type"`
	DocumentNumber string    `gorm:"type:varchar(128);not null" json:"document_number"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KYCRecord) TableName() string {
	return "kyc"
}
