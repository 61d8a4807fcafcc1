package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance 用户余额表，每个用户一行，每种资产一列
type Balance struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"-"`
	BTC       decimal.Decimal `gorm:"column:btc;type:decimal(36,18);not null;default:0" json:"btc"`
	ETH       decimal.Decimal `gorm:"column:eth;type:decimal(36,18);not null;default:0" json:"eth"`
	XRP       decimal.Decimal `gorm:"column:xrp;type:decimal(36,18);not null;default:0" json:"xrp"`
	USD       decimal.Decimal `gorm:"column:usd;type:decimal(36,18);not null;default:0" json:"usd"`
	GBP       decimal.Decimal `gorm:"column:gbp;type:decimal(36,18);not null;default:0" json:"gbp"`
	EUR       decimal.Decimal `gorm:"column:eur;type:decimal(36,18);not null;default:0" json:"eur"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Balance) TableName() string {
	return "balances"
}

// NewBalance 返回全零余额
func NewBalance(userID string) *Balance {
	return &Balance{
		UserID: userID,
		BTC:    decimal.Zero,
		ETH:    decimal.Zero,
		XRP:    decimal.Zero,
		USD:    decimal.Zero,
		GBP:    decimal.Zero,
		EUR:    decimal.Zero,
	}
}

// Amount 返回某个资产的余额，未知资产返回 0
func (b *Balance) Amount(a Asset) decimal.Decimal {
	switch a {
	case AssetBTC:
		return b.BTC
	case AssetETH:
		return b.ETH
	case AssetXRP:
		return b.XRP
	case AssetUSD:
		return b.USD
	case AssetGBP:
		return b.GBP
	case AssetEUR:
		return b.EUR
	}
	return decimal.Zero
}

// SetAmount 只改内存里的值，不落库
func (b *Balance) SetAmount(a Asset, v decimal.Decimal) {
	switch a {
	case AssetBTC:
		b.BTC = v
	case AssetETH:
		b.ETH = v
	case AssetXRP:
		b.XRP = v
	case AssetUSD:
		b.USD = v
	case AssetGBP:
		b.GBP = v
	case AssetEUR:
		b.EUR = v
	}
}
