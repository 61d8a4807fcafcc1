package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"krypton/internal/infrastructure/cache"
	"krypton/internal/testutil"
)

func newAuthService(t *testing.T, env *testEnv) *AuthService {
	t.Helper()
	client, _ := testutil.NewRedis(t)
	return NewAuthService(env.creds, env.balances, cache.NewSessionStore(client), &env.cfg.Auth, zap.NewNop())
}

func TestAuthService_RegisterLoginResolve(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()

	session, err := auth.Register(ctx, validInput("a@x.com"))
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.True(t, session.Balance.USD.IsZero())

	_, err = auth.Register(ctx, validInput("a@x.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	login, err := auth.Login(ctx, "a@x.com", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	id, err := auth.Resolve(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, id.User.ID)
	assert.NotEmpty(t, id.TokenID)
}

func TestAuthService_LoginFailuresAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()
	env.register(t, "a@x.com")

	_, err := auth.Login(ctx, "a@x.com", "Wrong123!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@x.com", "Abcdef1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ResolveRejects(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()

	session, err := auth.Register(ctx, validInput("a@x.com"))
	require.NoError(t, err)

	_, err = auth.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	other := NewAuthService(env.creds, env.balances, nil, &env.cfg.Auth, zap.NewNop())
	other.secret = []byte("another-secret")
	forged, err := other.issue(session.User, session.Balance)
	require.NoError(t, err)
	_, err = auth.Resolve(ctx, forged.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.Resolve(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthService_DeletedUserIsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()

	session, err := auth.Register(ctx, validInput("a@x.com"))
	require.NoError(t, err)
	require.NoError(t, env.db.Exec("DELETE FROM users WHERE id = ?", session.User.ID).Error)

	_, err = auth.Resolve(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()

	session, err := auth.Register(ctx, validInput("a@x.com"))
	require.NoError(t, err)
	id, err := auth.Resolve(ctx, session.Token)
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, id))
	_, err = auth.Resolve(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	fresh, err := auth.Login(ctx, "a@x.com", "Abcdef1!")
	require.NoError(t, err)
	_, err = auth.Resolve(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestAuthService_LoginEmailTrimmedCaseKept(t *testing.T) {
	env := newTestEnv(t)
	auth := newAuthService(t, env)
	ctx := context.Background()
	user := env.register(t, "a@x.com")

	login, err := auth.Login(ctx, "  a@x.com\t", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, login.User.ID)

	_, err = auth.Login(ctx, "A@X.COM", "Abcdef1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 只有大小写不同的邮箱是另一个账号
	other, err := auth.Register(ctx, validInput("A@x.com"))
	require.NoError(t, err)
	assert.NotEqual(t, user.ID, other.User.ID)
}
