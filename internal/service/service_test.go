package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"krypton/internal/config"
	"krypton/internal/model"
	"krypton/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{QueryTimeout: 5 * time.Second},
		Kafka: config.KafkaConfig{Topic: config.KafkaTopicConfig{
			LedgerEvents:  "ledger_events",
			PasswordReset: "password_reset",
		}},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret",
			TokenTTL:      time.Hour,
			ResetTokenTTL: time.Hour,
			BcryptCost:    bcrypt.MinCost,
		},
		Market: config.MarketConfig{
			FiatRates:      map[string]float64{"USD": 1, "GBP": 1.30, "EUR": 1.18},
			FallbackPrices: map[string]float64{"BTC": 50000, "ETH": 3000, "XRP": 0.5, "USD": 1, "GBP": 1.30, "EUR": 1.18},
		},
		Business: config.BusinessConfig{HistoryLimit: 10},
	}
}

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	creds    *CredentialService
	balances *BalanceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testConfig()
	log := zap.NewNop()
	return &testEnv{
		db:       db,
		cfg:      cfg,
		creds:    NewCredentialService(db, cfg, log),
		balances: NewBalanceService(db, nil, cfg, log),
	}
}

func validInput(email string) RegisterInput {
	return RegisterInput{Name: "Alice", Email: email, Phone: "+15551234567", Password: "Abcdef1!"}
}

func (e *testEnv) register(t *testing.T, email string) *model.User {
	t.Helper()
	user, _, err := e.creds.Create(context.Background(), validInput(email))
	require.NoError(t, err)
	return user
}

func (e *testEnv) count(t *testing.T, m interface{}, where ...interface{}) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(m)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
