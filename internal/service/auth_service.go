package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"krypton/internal/config"
	"krypton/internal/model"
)

// SessionStore 已注销 token 的存储
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Session 登录或注册成功后返回给客户端
type Session struct {
	User      *model.User    `json:"user"`
	Balance   *model.Balance `json:"balance"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Identity 一个已验证的请求身份
type Identity struct {
	User      *model.User
	TokenID   string
	ExpiresAt time.Time
}

type AuthService struct {
	creds    *CredentialService
	balances *BalanceService
	sessions SessionStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewAuthService sessions 为 nil 时注销不落地
func NewAuthService(creds *CredentialService, balances *BalanceService, sessions SessionStore, cfg *config.AuthConfig, log *zap.Logger) *AuthService {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		creds:    creds,
		balances: balances,
		sessions: sessions,
		secret:   []byte(cfg.JWTSecret),
		ttl:      ttl,
		now:      time.Now,
		log:      log.Named("auth"),
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	user, balance, err := s.creds.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(user, balance)
}

// Login 邮箱不存在和密码错误返回同一个错误
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.creds.VerifyPassword(user, password) {
		s.log.Info("login rejected", zap.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	balance, err := s.balances.GetBalance(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.issue(user, balance)
}

func (s *AuthService) issue(user *model.User, balance *model.Balance) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Session{
		User:      user,
		Balance:   balance,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve 校验 token 并加载用户，用户已不存在时视为未登录
func (s *AuthService) Resolve(ctx context.Context, tokenString string) (*Identity, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrUnauthenticated
	}

	if s.sessions != nil {
		revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, storageError("check session", err)
		}
		if revoked {
			return nil, ErrUnauthenticated
		}
	}

	user, err := s.creds.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return &Identity{User: user, TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Logout 把 jti 加入注销列表直到 token 自然过期
func (s *AuthService) Logout(ctx context.Context, id *Identity) error {
	if s.sessions == nil || id == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, id.TokenID, id.ExpiresAt.Sub(s.now())); err != nil {
		return storageError("revoke session", err)
	}
	s.log.Info("session revoked", zap.String("user_id", id.User.ID))
	return nil
}
