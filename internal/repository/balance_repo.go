package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"krypton/internal/model"
)

type BalanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// Create 为新用户插入全零余额
func (r *BalanceRepository) Create(ctx context.Context, tx *gorm.DB, userID string) (*model.Balance, error) {
	if tx == nil {
		tx = r.db
	}
	balance := model.NewBalance(userID)
	if err := tx.WithContext(ctx).Create(balance).Error; err != nil {
		return nil, err
	}
	return balance, nil
}

func (r *BalanceRepository) Get(ctx context.Context, tx *gorm.DB, userID string) (*model.Balance, error) {
	if tx == nil {
		tx = r.db
	}
	var balance model.Balance
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// GetForUpdate SELECT ... FOR UPDATE，必须在事务内调用
func (r *BalanceRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, userID string) (*model.Balance, error) {
	var balance model.Balance
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// SetField 覆盖单个资产列，调用方需先用 GetForUpdate 锁行
func (r *BalanceRepository) SetField(ctx context.Context, tx *gorm.DB, userID string, asset model.Asset, value decimal.Decimal) error {
	column := asset.Column()
	if column == "" {
		return model.ErrUnknownAsset
	}
	return tx.WithContext(ctx).
		Model(&model.Balance{}).
		Where("user_id = ?", userID).
		Update(column, value).Error
}

// ApplyDelta 锁行后读改写，结果为负时返回 ErrBalanceNotEnough 且不写入
// 返回变动前后的值
func (r *BalanceRepository) ApplyDelta(ctx context.Context, tx *gorm.DB, userID string, asset model.Asset, delta decimal.Decimal) (before, after decimal.Decimal, err error) {
	if !asset.Valid() {
		return decimal.Zero, decimal.Zero, model.ErrUnknownAsset
	}
	balance, err := r.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	before = balance.Amount(asset)
	after = before.Add(delta)
	if after.IsNegative() {
		return before, before, ErrBalanceNotEnough
	}

	if err := r.SetField(ctx, tx, userID, asset, after); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return before, after, nil
}

func (r *BalanceRepository) List(ctx context.Context) ([]*model.Balance, error) {
	var balances []*model.Balance
	err := r.db.WithContext(ctx).Order("id ASC").Find(&balances).Error
	return balances, err
}
