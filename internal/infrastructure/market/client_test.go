package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"krypton/internal/config"
	"krypton/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&config.MarketConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, zap.NewNop())
}

func TestFetchQuotes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum,ripple", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bitcoin": {"usd": 64000.5, "usd_24h_change": 2.5, "usd_24h_vol": 1000000},
			"ripple": {"usd": 0.52, "usd_24h_change": -1.1, "usd_24h_vol": 5000}
		}`))
	})

	quotes, err := c.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, model.AssetBTC, quotes[0].Symbol)
	assert.Equal(t, "Bitcoin", quotes[0].Name)
	assert.Equal(t, model.AssetKindCrypto, quotes[0].Kind)
	assert.Equal(t, "64000.5", quotes[0].PriceUSD.String())
	assert.InDelta(t, 2.5, quotes[0].Change24h, 1e-9)

	assert.Equal(t, model.AssetXRP, quotes[1].Symbol)
	assert.Equal(t, "0.52", quotes[1].PriceUSD.String())
}

func TestFetchQuotes_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, ErrFeedUnavailable)
}

func TestFetchQuotes_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, ErrFeedUnavailable)
}
