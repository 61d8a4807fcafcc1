package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"krypton/internal/infrastructure/cache"
	"krypton/internal/model"
	"krypton/internal/testutil"
)

type stubFetcher struct {
	quotes []model.Quote
	err    error
}

func (f *stubFetcher) FetchQuotes(context.Context) ([]model.Quote, error) {
	return f.quotes, f.err
}

func btcQuote(price string) model.Quote {
	return model.Quote{Symbol: model.AssetBTC, Name: "Bitcoin", Kind: model.AssetKindCrypto, PriceUSD: dec(price)}
}

func TestMarketService_RefreshAndSnapshot(t *testing.T) {
	cfg := testConfig()
	client, _ := testutil.NewRedis(t)
	fetcher := &stubFetcher{quotes: []model.Quote{btcQuote("60000")}}
	svc := NewMarketService(fetcher, cache.NewQuoteCache(client, time.Minute), &cfg.Market, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrMarketUnavailable)

	snap, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Quotes, 4)
	eur, ok := snap.Price(model.AssetEUR)
	require.True(t, ok)
	assert.Equal(t, "1.18", eur.String())

	cached, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	btc, ok := cached.Price(model.AssetBTC)
	require.True(t, ok)
	assert.Equal(t, "60000", btc.String())
	assert.NoError(t, svc.LastError())
}

func TestMarketService_FailureKeepsLastSnapshot(t *testing.T) {
	cfg := testConfig()
	fetcher := &stubFetcher{quotes: []model.Quote{btcQuote("60000")}}
	svc := NewMarketService(fetcher, nil, &cfg.Market, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	fetcher.err = errors.New("feed down")
	_, err = svc.Refresh(ctx)
	assert.ErrorIs(t, err, ErrMarketUnavailable)
	assert.EqualError(t, svc.LastError(), "feed down")

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	btc, _ := snap.Price(model.AssetBTC)
	assert.Equal(t, "60000", btc.String())
}

func TestMarketService_PricesFallBack(t *testing.T) {
	cfg := testConfig()
	svc := NewMarketService(&stubFetcher{err: errors.New("down")}, nil, &cfg.Market, zap.NewNop())

	prices := svc.Prices(context.Background())
	assert.True(t, prices[model.AssetBTC].Equal(decimal.NewFromInt(50000)))
	assert.True(t, prices[model.AssetXRP].Equal(dec("0.5")))
	assert.True(t, prices[model.AssetGBP].Equal(dec("1.3")))
}

func TestMarketService_CurrentReportsStaleness(t *testing.T) {
	cfg := testConfig()
	cfg.Market.PollInterval = time.Minute
	fetcher := &stubFetcher{quotes: []model.Quote{btcQuote("60000")}}
	svc := NewMarketService(fetcher, nil, &cfg.Market, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Current(ctx)
	assert.ErrorIs(t, err, ErrMarketUnavailable)

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)
	view, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.False(t, view.Stale)
	assert.Empty(t, view.LastError)

	fetcher.err = errors.New("feed down")
	_, err = svc.Refresh(ctx)
	require.Error(t, err)
	view, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.True(t, view.Stale)
	assert.Equal(t, "feed down", view.LastError)
	assert.Len(t, view.Quotes, 4)

	// 刷新成功但时间超过两个周期也算过期
	fetcher.err = nil
	_, err = svc.Refresh(ctx)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(3 * time.Minute) }
	view, err = svc.Current(ctx)
	require.NoError(t, err)
	assert.True(t, view.Stale)
	assert.Empty(t, view.LastError)
}
