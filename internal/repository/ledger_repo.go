package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"krypton/internal/model"
	"krypton/pkg/idgen"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Append 追加一条流水，流水号由 idgen 生成
func (r *LedgerRepository) Append(ctx context.Context, tx *gorm.DB, userID string, typ model.TransactionType, asset model.Asset, amount decimal.Decimal, status model.EntryStatus) (*model.LedgerEntry, error) {
	if tx == nil {
		tx = r.db
	}
	entry := &model.LedgerEntry{
		EntryNo: idgen.GenerateEntryNo(),
		UserID:  userID,
		Type:    typ,
		Asset:   asset,
		Amount:  amount,
		Status:  status,
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *LedgerRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, id int64) error {
	return r.transition(ctx, tx, id, model.EntryStatusPending, model.EntryStatusCompleted)
}

func (r *LedgerRepository) MarkFailed(ctx context.Context, tx *gorm.DB, id int64) error {
	return r.transition(ctx, tx, id, model.EntryStatusPending, model.EntryStatusFailed)
}

// transition 条件更新 WHERE status = from，没有命中时区分不存在和状态不对
func (r *LedgerRepository) transition(ctx context.Context, tx *gorm.DB, id int64, from, to model.EntryStatus) error {
	if !model.CanTransitionTo(from, to) {
		return ErrInvalidTransition
	}
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.LedgerEntry{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&model.LedgerEntry{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrEntryNotFound
	}
	return ErrInvalidTransition
}

func (r *LedgerRepository) GetByID(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ClampLimit limit <= 0 取默认值，上限 MaxHistoryLimit
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// ListForUser 最近的流水在前
func (r *LedgerRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(ClampLimit(limit)).
		Find(&entries).Error
	return entries, err
}

// ListStalePending 创建时间早于 before 仍为 PENDING 的流水
func (r *LedgerRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.LedgerEntry, error) {
	var entries []*model.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.EntryStatusPending, before).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
