package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"krypton/internal/config"
	"krypton/internal/model"
	"krypton/internal/repository"
)

// RegisterInput 注册参数
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone" validate:"required,e164"`
	Password string `json:"password" validate:"required,password"`
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
}

// normalizeEmail 只去掉首尾空白，大小写原样保存和比较
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// CredentialService 用户凭证：注册、密码校验、资料修改
type CredentialService struct {
	db           *gorm.DB
	userRepo     *repository.UserRepository
	balanceRepo  *repository.BalanceRepository
	bcryptCost   int
	queryTimeout time.Duration
	log          *zap.Logger
}

func NewCredentialService(db *gorm.DB, cfg *config.Config, log *zap.Logger) *CredentialService {
	cost := cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialService{
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		balanceRepo:  repository.NewBalanceRepository(db),
		bcryptCost:   cost,
		queryTimeout: cfg.Database.QueryTimeout,
		log:          log.Named("credential"),
	}
}

// Create 注册普通用户，同一事务内写入全零余额
func (s *CredentialService) Create(ctx context.Context, in RegisterInput) (*model.User, *model.Balance, error) {
	return s.create(ctx, in, false)
}

// CreateAdmin 创建管理员，管理员默认视为已认证
func (s *CredentialService) CreateAdmin(ctx context.Context, in RegisterInput) (*model.User, *model.Balance, error) {
	return s.create(ctx, in, true)
}

func (s *CredentialService) create(ctx context.Context, in RegisterInput, admin bool) (*model.User, *model.Balance, error) {
	in.normalize()
	if err := validateStruct(&in); err != nil {
		return nil, nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		IsAdmin:      admin,
		KYCVerified:  admin,
	}
	var balance *model.Balance

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.userRepo.FindByEmail(ctx, tx, in.Email)
		if err == nil {
			return ErrDuplicateEmail
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return storageError("find user by email", err)
		}

		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return ErrDuplicateEmail
			}
			return storageError("create user", err)
		}

		balance, err = s.balanceRepo.Create(ctx, tx, user.ID)
		if err != nil {
			return storageError("create balance", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID), zap.Bool("admin", admin))
	return user, balance, nil
}

// EnsureAdmin 启动时按配置创建管理员，已存在则直接返回
func (s *CredentialService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) (*model.User, bool, error) {
	if cfg.Email == "" {
		return nil, false, nil
	}
	existing, err := s.FindByEmail(ctx, cfg.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, _, err := s.CreateAdmin(ctx, RegisterInput{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Phone:    cfg.Phone,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *CredentialService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.userRepo.FindByEmail(ctx, nil, normalizeEmail(email))
	if err != nil {
		return nil, mapUserError("find user by email", err)
	}
	return user, nil
}

func (s *CredentialService) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, mapUserError("find user by id", err)
	}
	return user, nil
}

// VerifyPassword bcrypt 比对，不会比较明文
func (s *CredentialService) VerifyPassword(user *model.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}

// Update 修改姓名、邮箱、手机号，其余字段不允许客户端修改
func (s *CredentialService) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	var user *model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.userRepo.Update(ctx, tx, id, patch)
		return err
	})
	if err != nil {
		return nil, mapUserError("update user", err)
	}
	return user, nil
}

func validatePatch(p *model.UserPatch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		if err := validateVar("name", name, "required,max=100"); err != nil {
			return err
		}
	}
	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		p.Email = &email
		if err := validateVar("email", email, "required,email,max=255"); err != nil {
			return err
		}
	}
	if p.Phone != nil {
		phone := strings.TrimSpace(*p.Phone)
		p.Phone = &phone
		if err := validateVar("phone", phone, "required,e164"); err != nil {
			return err
		}
	}
	return nil
}

// ChangePassword 校验当前密码后设置新密码
func (s *CredentialService) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.VerifyPassword(user, current) {
		return ErrInvalidCredentials
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.SetPassword(ctx, nil, id, next)
}

// SetPassword 校验复杂度并写入新哈希，tx 可为 nil
func (s *CredentialService) SetPassword(ctx context.Context, tx *gorm.DB, id, next string) error {
	if err := validateVar("password", next, "required,password"); err != nil {
		return err
	}
	hash, err := s.hashPassword(next)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, tx, id, hash); err != nil {
		return mapUserError("update password", err)
	}
	s.log.Info("password updated", zap.String("user_id", id))
	return nil
}

// List 所有用户，最新的在前
func (s *CredentialService) List(ctx context.Context) ([]*model.User, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, storageError("list users", err)
	}
	return users, nil
}

func (s *CredentialService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", newValidationError("password", err.Error())
	}
	return string(hash), nil
}

func mapUserError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrDuplicateEmail
	}
	return storageError(op, err)
}

// withTimeout d <= 0 时不设超时
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
