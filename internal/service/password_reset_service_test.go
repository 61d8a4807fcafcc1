package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"krypton/internal/model"
)

func requestToken(t *testing.T, env *testEnv, svc *PasswordResetService, email string) string {
	t.Helper()
	require.NoError(t, svc.Request(context.Background(), email))
	var msg model.OutboxMessage
	require.NoError(t, env.db.Where("topic = ?", "password_reset").Order("id DESC").First(&msg).Error)
	var event model.PasswordResetEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	assert.Equal(t, email, event.Email)
	return event.Token
}

func TestPasswordReset_RedeemOnce(t *testing.T) {
	env := newTestEnv(t)
	svc := NewPasswordResetService(env.db, env.creds, env.cfg, zap.NewNop())
	ctx := context.Background()
	user := env.register(t, "a@x.com")

	token := requestToken(t, env, svc, "a@x.com")

	assert.True(t, IsValidation(svc.Redeem(ctx, token, "weak")))
	require.NoError(t, svc.Redeem(ctx, token, "Changed1!"))
	assert.ErrorIs(t, svc.Redeem(ctx, token, "Again123!"), ErrTokenInvalid)

	reloaded, err := env.creds.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, env.creds.VerifyPassword(reloaded, "Changed1!"))
}

func TestPasswordReset_Expired(t *testing.T) {
	env := newTestEnv(t)
	svc := NewPasswordResetService(env.db, env.creds, env.cfg, zap.NewNop())
	env.register(t, "a@x.com")

	token := requestToken(t, env, svc, "a@x.com")
	svc.now = func() time.Time { return time.Now().Add(61 * time.Minute) }

	assert.ErrorIs(t, svc.Redeem(context.Background(), token, "Changed1!"), ErrTokenInvalid)
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	svc := NewPasswordResetService(env.db, env.creds, env.cfg, zap.NewNop())

	require.NoError(t, svc.Request(context.Background(), "ghost@x.com"))
	assert.EqualValues(t, 0, env.count(t, &model.PasswordResetToken{}))
	assert.EqualValues(t, 0, env.count(t, &model.OutboxMessage{}))

	assert.ErrorIs(t, svc.Redeem(context.Background(), "no-such-token", "Changed1!"), ErrTokenInvalid)
}

func TestPasswordReset_RequestTrimsEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := NewPasswordResetService(env.db, env.creds, env.cfg, zap.NewNop())
	user := env.register(t, "a@x.com")

	require.NoError(t, svc.Request(context.Background(), " a@x.com \n"))
	var tok model.PasswordResetToken
	require.NoError(t, env.db.Where("user_id = ?", user.ID).First(&tok).Error)
	assert.EqualValues(t, 1, env.count(t, &model.OutboxMessage{}))
}
