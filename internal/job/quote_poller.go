package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"krypton/internal/model"
)

// QuoteRefresher 刷新行情快照
type QuoteRefresher interface {
	Refresh(ctx context.Context) (*model.MarketSnapshot, error)
}

// QuotePoller 启动时立即拉取一次，之后按固定间隔轮询
type QuotePoller struct {
	market   QuoteRefresher
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
	stopCh   chan struct{}
}

func NewQuotePoller(market QuoteRefresher, interval, timeout time.Duration, log *zap.Logger) *QuotePoller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &QuotePoller{
		market:   market,
		interval: interval,
		timeout:  timeout,
		log:      log.Named("quote_poller"),
		stopCh:   make(chan struct{}),
	}
}

func (p *QuotePoller) Start(ctx context.Context) {
	p.log.Info("quote poller started", zap.Duration("interval", p.interval))
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("quote poller exiting on context cancel")
			return
		case <-p.stopCh:
			p.log.Info("quote poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *QuotePoller) Stop() {
	close(p.stopCh)
}

// poll 失败只打日志，下一轮继续
func (p *QuotePoller) poll(ctx context.Context) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	snapshot, err := p.market.Refresh(ctx)
	if err != nil {
		p.log.Warn("refresh market quotes failed", zap.Error(err))
		return
	}
	p.log.Debug("market quotes refreshed", zap.Int("quotes", len(snapshot.Quotes)))
}
