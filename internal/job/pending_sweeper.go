package job

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"krypton/internal/config"
	"krypton/internal/repository"
)

// PendingEntrySweeper 把长时间停留在 PENDING 的流水置为 FAILED
// 正常的事务路径不会留下 PENDING 流水，这里只处理进程崩溃等遗留数据
type PendingEntrySweeper struct {
	ledgerRepo *repository.LedgerRepository
	timeout    time.Duration
	log        *zap.Logger
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewPendingEntrySweeper(db *gorm.DB, cfg *config.Config, log *zap.Logger) *PendingEntrySweeper {
	timeout := cfg.Business.PendingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &PendingEntrySweeper{
		ledgerRepo: repository.NewLedgerRepository(db),
		timeout:    timeout,
		log:        log.Named("pending_sweeper"),
		stopCh:     make(chan struct{}),
		interval:   30 * time.Second,
		batchSize:  100,
	}
}

func (j *PendingEntrySweeper) Start(ctx context.Context) {
	j.log.Info("pending entry sweeper started", zap.Duration("timeout", j.timeout))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("pending entry sweeper exiting on context cancel")
			return
		case <-j.stopCh:
			j.log.Info("pending entry sweeper stopped")
			return
		case <-ticker.C:
			j.sweep(ctx, time.Now())
		}
	}
}

func (j *PendingEntrySweeper) Stop() {
	close(j.stopCh)
}

// sweep 返回本次置为 FAILED 的条数
func (j *PendingEntrySweeper) sweep(ctx context.Context, now time.Time) int {
	entries, err := j.ledgerRepo.ListStalePending(ctx, now.Add(-j.timeout), j.batchSize)
	if err != nil {
		j.log.Error("query stale pending entries failed", zap.Error(err))
		return 0
	}
	if len(entries) == 0 {
		return 0
	}

	failed := 0
	for _, entry := range entries {
		if err := j.ledgerRepo.MarkFailed(ctx, nil, entry.ID); err != nil {
			// 其他进程可能已经处理过
			j.log.Warn("mark entry failed", zap.String("entry_no", entry.EntryNo), zap.Error(err))
			continue
		}
		failed++
		j.log.Info("stale pending entry marked failed",
			zap.String("entry_no", entry.EntryNo), zap.String("user_id", entry.UserID))
	}
	return failed
}
