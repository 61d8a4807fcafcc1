package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"krypton/internal/model"
)

type KYCRepository struct {
	db *gorm.DB
}

func NewKYCRepository(db *gorm.DB) *KYCRepository {
	return &KYCRepository{db: db}
}

// Upsert 按 user_id 插入或覆盖认证记录
func (r *KYCRepository) Upsert(ctx context.Context, tx *gorm.DB, record *model.KYCRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "document_type", "document_number", "updated_at"}),
		}).
		Create(record).Error
}

func (r *KYCRepository) GetByUserID(ctx context.Context, userID string) (*model.KYCRecord, error) {
	var record model.KYCRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKYCNotFound
		}
		return nil, err
	}
	return &record, nil
}
