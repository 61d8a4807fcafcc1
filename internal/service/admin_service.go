package service

import (
	"context"

	"github.com/shopspring/decimal"

	"krypton/internal/model"
)

// PriceSource 资产美元价格
type PriceSource interface {
	Prices(ctx context.Context) map[model.Asset]decimal.Decimal
}

// Dashboard 管理后台首页数据，balances 以用户 id 为 key
type Dashboard struct {
	Users    []*model.User             `json:"users"`
	Balances map[string]*model.Balance `json:"balances"`
}

// Valuation 按美元折算的持仓
type Valuation struct {
	TotalUSD  decimal.Decimal `json:"total_usd"`
	CryptoUSD decimal.Decimal `json:"crypto_usd"`
	FiatUSD   decimal.Decimal `json:"fiat_usd"`
}

// Stats 平台汇总，用户数不含管理员
type Stats struct {
	TotalUsers    int                             `json:"total_users"`
	VerifiedUsers int                             `json:"verified_users"`
	Totals        map[model.Asset]decimal.Decimal `json:"totals"`
	Valuation     Valuation                       `json:"valuation"`
}

type AdminService struct {
	creds    *CredentialService
	balances *BalanceService
	prices   PriceSource
}

func NewAdminService(creds *CredentialService, balances *BalanceService, prices PriceSource) *AdminService {
	return &AdminService{creds: creds, balances: balances, prices: prices}
}

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	users, err := s.creds.List(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances.ListBalances(ctx)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Users:    users,
		Balances: make(map[string]*model.Balance, len(balances)),
	}
	for _, b := range balances {
		d.Balances[b.UserID] = b
	}
	return d, nil
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Totals: make(map[model.Asset]decimal.Decimal, len(model.Assets))}
	for _, u := range d.Users {
		if u.IsAdmin {
			continue
		}
		stats.TotalUsers++
		if u.KYCVerified {
			stats.VerifiedUsers++
		}
	}

	total := model.NewBalance("")
	for _, a := range model.Assets {
		sum := decimal.Zero
		for _, b := range d.Balances {
			sum = sum.Add(b.Amount(a))
		}
		stats.Totals[a] = sum
		total.SetAmount(a, sum)
	}
	stats.Valuation = Value(total, s.prices.Prices(ctx))
	return stats, nil
}

// Value 用给定价格折算余额，缺少价格的资产按 0 计
func Value(b *model.Balance, prices map[model.Asset]decimal.Decimal) Valuation {
	v := Valuation{TotalUSD: decimal.Zero, CryptoUSD: decimal.Zero, FiatUSD: decimal.Zero}
	for _, a := range model.Assets {
		usd := b.Amount(a).Mul(prices[a])
		if a.Kind() == model.AssetKindCrypto {
			v.CryptoUSD = v.CryptoUSD.Add(usd)
		} else {
			v.FiatUSD = v.FiatUSD.Add(usd)
		}
	}
	v.TotalUSD = v.CryptoUSD.Add(v.FiatUSD)
	return v
}
