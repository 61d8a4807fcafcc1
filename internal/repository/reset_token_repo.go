package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"krypton/internal/model"
)

type ResetTokenRepository struct {
	db *gorm.DB
}

func NewResetTokenRepository(db *gorm.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, tx *gorm.DB, token *model.PasswordResetToken) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(token).Error
}

func (r *ResetTokenRepository) FindByToken(ctx context.Context, tx *gorm.DB, token string) (*model.PasswordResetToken, error) {
	if tx == nil {
		tx = r.db
	}
	var t model.PasswordResetToken
	err := tx.WithContext(ctx).Where("token = ?", token).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

// MarkUsed 只有未使用且未过期的令牌会被更新，并发兑换时只有一个成功
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, tx *gorm.DB, id int64, now time.Time) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", id, now).
		Update("used_at", now)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}
