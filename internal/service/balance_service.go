package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"krypton/internal/config"
	"krypton/internal/infrastructure/lock"
	"krypton/internal/model"
	"krypton/internal/repository"
)

// Locker 按用户串行化余额变更，返回的函数用于释放
type Locker interface {
	Acquire(ctx context.Context, userID string) (func(), error)
}

// MutationResult 一次余额变更的结果
type MutationResult struct {
	Entry   *model.LedgerEntry `json:"entry"`
	Balance *model.Balance     `json:"balance"`
}

// BalanceService 所有余额变更都走这里，余额、流水、outbox 在同一事务内提交
type BalanceService struct {
	db           *gorm.DB
	balanceRepo  *repository.BalanceRepository
	ledgerRepo   *repository.LedgerRepository
	outboxRepo   *repository.OutboxRepository
	locker       Locker
	topic        string
	queryTimeout time.Duration
	historyLimit int
	log          *zap.Logger
}

// NewBalanceService locker 为 nil 时只依赖数据库行锁
func NewBalanceService(db *gorm.DB, locker Locker, cfg *config.Config, log *zap.Logger) *BalanceService {
	return &BalanceService{
		db:           db,
		balanceRepo:  repository.NewBalanceRepository(db),
		ledgerRepo:   repository.NewLedgerRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		locker:       locker,
		topic:        cfg.Kafka.Topic.LedgerEvents,
		queryTimeout: cfg.Database.QueryTimeout,
		historyLimit: cfg.Business.HistoryLimit,
		log:          log.Named("balance"),
	}
}

// SetBalance 管理员直接覆盖某个资产的余额
// 流水类型为 UPDATE，金额记录新的绝对值
func (s *BalanceService) SetBalance(ctx context.Context, userID, assetCode string, value decimal.Decimal) (*MutationResult, error) {
	asset, err := model.ParseAsset(assetCode)
	if err != nil {
		return nil, newValidationError("asset", "unsupported asset "+assetCode)
	}
	if value.IsNegative() {
		return nil, newValidationError("value", "must not be negative")
	}

	release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	result := &MutationResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.balanceRepo.GetForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.balanceRepo.SetField(ctx, tx, userID, asset, value); err != nil {
			return fmt.Errorf("set balance field: %w", err)
		}

		entry, err := s.ledgerRepo.Append(ctx, tx, userID, model.TransactionTypeUpdate, asset, value, model.EntryStatusCompleted)
		if err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		result.Entry = entry

		if err := s.enqueueEvent(ctx, tx, entry, value); err != nil {
			return err
		}

		result.Balance, err = s.balanceRepo.Get(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, s.mapMutationError("set balance", err)
	}

	s.log.Info("balance set",
		zap.String("user_id", userID),
		zap.String("asset", string(asset)),
		zap.String("value", value.String()),
		zap.String("entry_no", result.Entry.EntryNo))
	return result, nil
}

// ApplyTransaction 存款、提现、交易的增量变更
// 先写 PENDING 流水，锁行改余额，再置为 COMPLETED，任何一步失败整体回滚
func (s *BalanceService) ApplyTransaction(ctx context.Context, userID, typeCode, assetCode string, amount decimal.Decimal) (*MutationResult, error) {
	typ, ok := model.ParseDeltaType(typeCode)
	if !ok {
		return nil, newValidationError("type", "must be one of: DEPOSIT WITHDRAWAL TRADE")
	}
	asset, err := model.ParseAsset(assetCode)
	if err != nil {
		return nil, newValidationError("asset", "unsupported asset "+assetCode)
	}
	if !amount.IsPositive() {
		return nil, newValidationError("amount", "must be greater than zero")
	}

	release, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	delta := amount
	if typ.Sign() < 0 {
		delta = amount.Neg()
	}

	result := &MutationResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.ledgerRepo.Append(ctx, tx, userID, typ, asset, amount, model.EntryStatusPending)
		if err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		_, after, err := s.balanceRepo.ApplyDelta(ctx, tx, userID, asset, delta)
		if err != nil {
			return err
		}

		if err := s.ledgerRepo.MarkCompleted(ctx, tx, entry.ID); err != nil {
			return err
		}
		entry.Status = model.EntryStatusCompleted
		result.Entry = entry

		if err := s.enqueueEvent(ctx, tx, entry, after); err != nil {
			return err
		}

		result.Balance, err = s.balanceRepo.Get(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, s.mapMutationError("apply transaction", err)
	}

	s.log.Info("transaction applied",
		zap.String("user_id", userID),
		zap.String("type", string(typ)),
		zap.String("asset", string(asset)),
		zap.String("amount", amount.String()),
		zap.String("entry_no", result.Entry.EntryNo))
	return result, nil
}

func (s *BalanceService) GetBalance(ctx context.Context, userID string) (*model.Balance, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	balance, err := s.balanceRepo.Get(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageError("get balance", err)
	}
	return balance, nil
}

// History 最近的流水，limit <= 0 时使用配置的默认条数
func (s *BalanceService) History(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	entries, err := s.ledgerRepo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, storageError("list ledger entries", err)
	}
	return entries, nil
}

// GetEntry 按 ID 查询单条流水
func (s *BalanceService) GetEntry(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	entry, err := s.ledgerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, storageError("get ledger entry", err)
	}
	return entry, nil
}

// ListBalances 所有用户的余额，管理后台使用
func (s *BalanceService) ListBalances(ctx context.Context) ([]*model.Balance, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	balances, err := s.balanceRepo.List(ctx)
	if err != nil {
		return nil, storageError("list balances", err)
	}
	return balances, nil
}

func (s *BalanceService) acquire(ctx context.Context, userID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, userID)
	if err != nil {
		if errors.Is(err, lock.ErrLockFailed) {
			s.log.Warn("balance lock busy", zap.String("user_id", userID))
			return nil, ErrSystemBusy
		}
		return nil, storageError("acquire balance lock", err)
	}
	return release, nil
}

func (s *BalanceService) enqueueEvent(ctx context.Context, tx *gorm.DB, entry *model.LedgerEntry, after decimal.Decimal) error {
	event := model.LedgerEvent{
		EntryNo:      entry.EntryNo,
		UserID:       entry.UserID,
		Type:         entry.Type,
		Asset:        entry.Asset,
		Amount:       entry.Amount.String(),
		BalanceAfter: after.String(),
		Status:       entry.Status,
		OccurredAt:   time.Now(),
	}
	if _, err := s.outboxRepo.Enqueue(ctx, tx, s.topic, entry.UserID, entry.EntryNo, event); err != nil {
		return fmt.Errorf("enqueue ledger event: %w", err)
	}
	return nil
}

func (s *BalanceService) mapMutationError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrBalanceNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrBalanceNotEnough):
		return ErrInsufficientFunds
	case errors.Is(err, repository.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, repository.ErrEntryNotFound):
		return ErrEntryNotFound
	}
	s.log.Error(op+" failed", zap.Error(err))
	return storageError(op, err)
}
