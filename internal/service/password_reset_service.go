package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"krypton/internal/config"
	"krypton/internal/model"
	"krypton/internal/repository"
)

// PasswordResetService 忘记密码流程，邮件由下游消费 password_reset topic 发送
type PasswordResetService struct {
	db           *gorm.DB
	creds        *CredentialService
	userRepo     *repository.UserRepository
	tokenRepo    *repository.ResetTokenRepository
	outboxRepo   *repository.OutboxRepository
	topic        string
	tokenTTL     time.Duration
	queryTimeout time.Duration
	now          func() time.Time
	log          *zap.Logger
}

func NewPasswordResetService(db *gorm.DB, creds *CredentialService, cfg *config.Config, log *zap.Logger) *PasswordResetService {
	ttl := cfg.Auth.ResetTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PasswordResetService{
		db:           db,
		creds:        creds,
		userRepo:     repository.NewUserRepository(db),
		tokenRepo:    repository.NewResetTokenRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		topic:        cfg.Kafka.Topic.PasswordReset,
		tokenTTL:     ttl,
		queryTimeout: cfg.Database.QueryTimeout,
		now:          time.Now,
		log:          log.Named("password_reset"),
	}
}

// Request 未知邮箱静默返回，不暴露账号是否存在
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.userRepo.FindByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Debug("password reset for unknown email")
			return nil
		}
		return storageError("find user by email", err)
	}

	token := &model.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.tokenRepo.Create(ctx, tx, token); err != nil {
			return err
		}
		event := model.PasswordResetEvent{
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt,
		}
		_, err := s.outboxRepo.Enqueue(ctx, tx, s.topic, user.ID, "", event)
		return err
	})
	if err != nil {
		return storageError("create reset token", err)
	}

	s.log.Info("password reset requested", zap.String("user_id", user.ID))
	return nil
}

// Redeem 令牌只能使用一次，过期或已使用都返回 ErrTokenInvalid
func (s *PasswordResetService) Redeem(ctx context.Context, token, newPassword string) error {
	if err := validateVar("password", newPassword, "required,password"); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.tokenRepo.FindByToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if !t.Usable(now) {
			return repository.ErrTokenNotFound
		}
		if err := s.tokenRepo.MarkUsed(ctx, tx, t.ID, now); err != nil {
			return err
		}
		return s.creds.SetPassword(ctx, tx, t.UserID, newPassword)
	})
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrTokenInvalid
		}
		if IsValidation(err) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrStorage) {
			return err
		}
		return storageError("redeem reset token", err)
	}
	return nil
}
