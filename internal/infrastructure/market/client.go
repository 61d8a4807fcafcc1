package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krypton/internal/config"
	"krypton/internal/model"
)

var ErrFeedUnavailable = errors.New("market feed unavailable")

// 行情源里的币种 id
var coinIDs = map[model.Asset]string{
	model.AssetBTC: "bitcoin",
	model.AssetETH: "ethereum",
	model.AssetXRP: "ripple",
}

type priceFields struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
	Volume24h float64 `json:"usd_24h_vol"`
}

// Client 查询 CoinGecko 兼容的 /simple/price 接口
type Client struct {
	client *resty.Client
	log    *zap.Logger
}

func NewClient(cfg *config.MarketConfig, log *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	log.Info("market feed client initialized", zap.String("base_url", cfg.BaseURL))
	return &Client{client: c, log: log}
}

// FetchQuotes 拉取所有加密资产的美元报价，缺失的币种直接跳过
func (c *Client) FetchQuotes(ctx context.Context) ([]model.Quote, error) {
	assets := model.CryptoAssets()
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, coinIDs[a])
	}

	result := map[string]priceFields{}
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":                 strings.Join(ids, ","),
			"vs_currencies":       "usd",
			"include_24hr_change": "true",
			"include_24hr_vol":    "true",
		}).
		SetResult(&result).
		Get("/simple/price")
	if err != nil {
		c.log.Warn("market feed request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	if resp.IsError() {
		c.log.Warn("market feed returned error status", zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode())
	}

	quotes := make([]model.Quote, 0, len(assets))
	for _, a := range assets {
		p, ok := result[coinIDs[a]]
		if !ok {
			c.log.Warn("market feed missing symbol", zap.String("symbol", string(a)))
			continue
		}
		quotes = append(quotes, model.Quote{
			Symbol:    a,
			Name:      a.Name(),
			Kind:      a.Kind(),
			PriceUSD:  decimal.NewFromFloat(p.USD),
			Change24h: p.Change24h,
			Volume24h: decimal.NewFromFloat(p.Volume24h),
		})
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrFeedUnavailable)
	}
	return quotes, nil
}
