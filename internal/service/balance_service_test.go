package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"krypton/internal/infrastructure/lock"
	"krypton/internal/model"
	"krypton/internal/repository"
	"krypton/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBalanceService_DepositThenWithdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@x.com")

	_, err := env.balances.ApplyTransaction(ctx, user.ID, "DEPOSIT", "USD", dec("100"))
	require.NoError(t, err)
	res, err := env.balances.ApplyTransaction(ctx, user.ID, "WITHDRAWAL", "usd", dec("30"))
	require.NoError(t, err)
	assert.Equal(t, "70", res.Balance.USD.String())
	assert.Equal(t, model.EntryStatusCompleted, res.Entry.Status)

	history, err := env.balances.History(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.TransactionTypeWithdrawal, history[0].Type)
	assert.Equal(t, "30", history[0].Amount.String())
	assert.Equal(t, model.TransactionTypeDeposit, history[1].Type)
	for _, e := range history {
		assert.Equal(t, model.EntryStatusCompleted, e.Status)
	}

	var msgs []model.OutboxMessage
	require.NoError(t, env.db.Order("id ASC").Find(&msgs).Error)
	require.Len(t, msgs, 2)
	var event model.LedgerEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[1].Payload), &event))
	assert.Equal(t, "ledger_events", msgs[1].Topic)
	assert.Equal(t, "70", event.BalanceAfter)
	assert.Equal(t, model.AssetUSD, event.Asset)
}

func TestBalanceService_SetBalanceRecordsAbsoluteValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@x.com")

	_, err := env.balances.ApplyTransaction(ctx, user.ID, "DEPOSIT", "BTC", dec("1"))
	require.NoError(t, err)
	res, err := env.balances.SetBalance(ctx, user.ID, "btc", dec("2.5"))
	require.NoError(t, err)
	assert.Equal(t, "2.5", res.Balance.BTC.String())

	var updates []model.LedgerEntry
	require.NoError(t, env.db.Where("user_id = ? AND transaction_type = ?", user.ID, model.TransactionTypeUpdate).Find(&updates).Error)
	require.Len(t, updates, 1)
	assert.Equal(t, "2.5", updates[0].Amount.String())
	assert.Equal(t, model.EntryStatusCompleted, updates[0].Status)

	_, err = env.balances.SetBalance(ctx, user.ID, "BTC", dec("-1"))
	assert.True(t, IsValidation(err))
}

func TestBalanceService_InsufficientFundsRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@x.com")

	_, err := env.balances.ApplyTransaction(ctx, user.ID, "WITHDRAWAL", "USD", dec("50"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	b, err := env.balances.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, b.USD.IsZero())
	assert.EqualValues(t, 0, env.count(t, &model.LedgerEntry{}))
	assert.EqualValues(t, 0, env.count(t, &model.OutboxMessage{}))
}

func TestBalanceService_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.balances.ApplyTransaction(ctx, "missing", "DEPOSIT", "USD", dec("1"))
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = env.balances.SetBalance(ctx, "missing", "USD", dec("1"))
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = env.balances.GetBalance(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.EqualValues(t, 0, env.count(t, &model.LedgerEntry{}))
}

func TestBalanceService_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@x.com")

	tests := []struct {
		name, typ, asset, amount, field string
	}{
		{"unknown asset", "DEPOSIT", "DOGE", "1", "asset"},
		{"update is not a delta", "UPDATE", "USD", "1", "type"},
		{"zero amount", "DEPOSIT", "USD", "0", "amount"},
		{"negative amount", "TRADE", "ETH", "-2", "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.balances.ApplyTransaction(ctx, user.ID, tt.typ, tt.asset, dec(tt.amount))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	_, err := env.balances.SetBalance(ctx, user.ID, "usdt", dec("1"))
	assert.True(t, IsValidation(err))
}

func TestBalanceService_CancelledContextIsStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "a@x.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.balances.ApplyTransaction(ctx, user.ID, "DEPOSIT", "USD", dec("1"))
	assert.ErrorIs(t, err, ErrStorage)

	b, err := env.balances.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, b.USD.IsZero())
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) {
	return nil, lock.ErrLockFailed
}

func TestBalanceService_LockBusy(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "a@x.com")
	svc := NewBalanceService(env.db, busyLocker{}, env.cfg, zap.NewNop())

	_, err := svc.ApplyTransaction(context.Background(), user.ID, "DEPOSIT", "USD", dec("1"))
	assert.ErrorIs(t, err, ErrSystemBusy)
}

// 20 笔存款 1.5 和 20 笔取款 1 并发执行，结果必须精确等于 100 + 30 - 20
func runConcurrentDeltas(t *testing.T, db *gorm.DB) {
	t.Helper()
	cfg := testConfig()
	log := zap.NewNop()
	user, _, err := NewCredentialService(db, cfg, log).Create(context.Background(), validInput("a@x.com"))
	require.NoError(t, err)
	client, _ := testutil.NewRedis(t)
	locker := lock.NewBalanceLocker(client, 5*time.Second, 5*time.Millisecond, 2000)
	svc := NewBalanceService(db, locker, cfg, log)
	ctx := context.Background()

	_, err = svc.ApplyTransaction(ctx, user.ID, "DEPOSIT", "USD", dec("100"))
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyTransaction(ctx, user.ID, "DEPOSIT", "USD", dec("1.5"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.ApplyTransaction(ctx, user.ID, "WITHDRAWAL", "USD", dec("1"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	b, err := svc.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "110", b.USD.String())

	entries, err := repository.NewLedgerRepository(db).ListForUser(ctx, user.ID, repository.MaxHistoryLimit)
	require.NoError(t, err)
	assert.Len(t, entries, workers*2+1)
}

// 单连接内存库里事务天然串行，这里只验证结果和流水数量
func TestBalanceService_ConcurrentDeltasSum(t *testing.T) {
	runConcurrentDeltas(t, testutil.NewDB(t))
}

// 多连接文件库上事务可以交错，余额正确要靠用户级分布式锁
func TestBalanceService_ConcurrentDeltasSumPooled(t *testing.T) {
	runConcurrentDeltas(t, testutil.NewPooledDB(t, 8))
}
