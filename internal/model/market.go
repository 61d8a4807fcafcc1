package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote 单个资产的美元报价
type Quote struct {
	Symbol    Asset           `json:"symbol"`
	Name      string          `json:"name"`
	Kind      AssetKind       `json:"kind"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	Change24h float64         `json:"change_24h"`
	Volume24h decimal.Decimal `json:"volume_24h"`
}

// MarketSnapshot 一次轮询得到的全部报价
type MarketSnapshot struct {
	Quotes    []Quote   `json:"quotes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Price 查找某个资产的价格
func (s *MarketSnapshot) Price(a Asset) (decimal.Decimal, bool) {
	for _, q := range s.Quotes {
		if q.Symbol == a {
			return q.PriceUSD, true
		}
	}
	return decimal.Zero, false
}
