package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krypton/internal/config"
	"krypton/internal/model"
)

type QuoteFetcher interface {
	FetchQuotes(ctx context.Context) ([]model.Quote, error)
}

type QuoteStore interface {
	Store(ctx context.Context, snapshot *model.MarketSnapshot) error
	Load(ctx context.Context) (*model.MarketSnapshot, error)
}

// MarketView 对外返回的行情，附带最近一次刷新的状态
// 最近一次刷新失败或快照超过两个轮询周期未更新时 Stale 为 true
type MarketView struct {
	*model.MarketSnapshot
	Stale     bool   `json:"stale"`
	LastError string `json:"last_error,omitempty"`
}

// MarketService 维护最近一次行情快照
// 加密资产来自行情源，法币使用配置的固定汇率
type MarketService struct {
	fetcher    QuoteFetcher
	store      QuoteStore
	fiatRates  map[string]float64
	fallback   map[string]float64
	staleAfter time.Duration
	now        func() time.Time
	log        *zap.Logger

	mu      sync.RWMutex
	last    *model.MarketSnapshot
	lastErr error
}

// NewMarketService store 为 nil 时只保留进程内快照
func NewMarketService(fetcher QuoteFetcher, store QuoteStore, cfg *config.MarketConfig, log *zap.Logger) *MarketService {
	return &MarketService{
		fetcher:    fetcher,
		store:      store,
		fiatRates:  cfg.FiatRates,
		fallback:   cfg.FallbackPrices,
		staleAfter: 2 * cfg.PollInterval,
		now:        time.Now,
		log:        log.Named("market"),
	}
}

// Refresh 拉取一次行情，失败只记录错误，保留旧快照
func (s *MarketService) Refresh(ctx context.Context) (*model.MarketSnapshot, error) {
	quotes, err := s.fetcher.FetchQuotes(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrMarketUnavailable, err)
	}

	for _, a := range model.Assets {
		if a.Kind() != model.AssetKindFiat {
			continue
		}
		rate, ok := s.fiatRates[string(a)]
		if !ok {
			continue
		}
		quotes = append(quotes, model.Quote{
			Symbol:    a,
			Name:      a.Name(),
			Kind:      a.Kind(),
			PriceUSD:  decimal.NewFromFloat(rate),
			Volume24h: decimal.Zero,
		})
	}

	snapshot := &model.MarketSnapshot{Quotes: quotes, UpdatedAt: s.now().UTC()}
	s.mu.Lock()
	s.last = snapshot
	s.lastErr = nil
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Store(ctx, snapshot); err != nil {
			s.log.Warn("store market snapshot failed", zap.Error(err))
		}
	}
	return snapshot, nil
}

// Snapshot 优先读缓存，缓存不可用时退回进程内快照
func (s *MarketService) Snapshot(ctx context.Context) (*model.MarketSnapshot, error) {
	if s.store != nil {
		snapshot, err := s.store.Load(ctx)
		if err == nil {
			return snapshot, nil
		}
		s.log.Debug("load market snapshot from cache failed", zap.Error(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, ErrMarketUnavailable
	}
	return s.last, nil
}

// Current 当前快照和刷新状态，没有任何快照时返回 ErrMarketUnavailable
func (s *MarketService) Current(ctx context.Context) (*MarketView, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	view := &MarketView{MarketSnapshot: snapshot}
	if lastErr := s.LastError(); lastErr != nil {
		view.Stale = true
		view.LastError = lastErr.Error()
	}
	if s.staleAfter > 0 && s.now().Sub(snapshot.UpdatedAt) > s.staleAfter {
		view.Stale = true
	}
	return view, nil
}

// Prices 每个资产的美元价格，行情缺失时使用兜底价格
func (s *MarketService) Prices(ctx context.Context) map[model.Asset]decimal.Decimal {
	prices := make(map[model.Asset]decimal.Decimal, len(model.Assets))
	for _, a := range model.Assets {
		prices[a] = decimal.NewFromFloat(s.fallback[string(a)])
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return prices
	}
	for _, a := range model.Assets {
		if p, ok := snapshot.Price(a); ok && p.IsPositive() {
			prices[a] = p
		}
	}
	return prices
}

// LastError 最近一次刷新的错误，成功后清空
func (s *MarketService) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
