package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"krypton/internal/config"
	"krypton/internal/model"
	"krypton/internal/repository"
)

// KYCInput 实名认证提交参数
type KYCInput struct {
	DocumentType   string `json:"document_type" validate:"required,document_type"`
	DocumentNumber string `json:"document_number" validate:"required,max=128"`
}

// KYCService 模拟实名认证，提交即通过
type KYCService struct {
	db           *gorm.DB
	userRepo     *repository.UserRepository
	kycRepo      *repository.KYCRepository
	queryTimeout time.Duration
	log          *zap.Logger
}

func NewKYCService(db *gorm.DB, cfg *config.Config, log *zap.Logger) *KYCService {
	return &KYCService{
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		kycRepo:      repository.NewKYCRepository(db),
		queryTimeout: cfg.Database.QueryTimeout,
		log:          log.Named("kyc"),
	}
}

func (s *KYCService) Submit(ctx context.Context, userID string, in KYCInput) (*model.KYCRecord, error) {
	in.DocumentType = strings.ToLower(strings.TrimSpace(in.DocumentType))
	in.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	record := &model.KYCRecord{
		UserID:         userID,
		Status:         model.KYCStatusApproved,
		DocumentType:   in.DocumentType,
		DocumentNumber: in.DocumentNumber,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.SetKYC(ctx, tx, userID, in.DocumentNumber); err != nil {
			return err
		}
		return s.kycRepo.Upsert(ctx, tx, record)
	})
	if err != nil {
		return nil, mapUserError("submit kyc", err)
	}

	s.log.Info("kyc approved", zap.String("user_id", userID), zap.String("document_type", in.DocumentType))
	return s.Get(ctx, userID)
}

func (s *KYCService) Get(ctx context.Context, userID string) (*model.KYCRecord, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	record, err := s.kycRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrKYCNotFound) {
			return nil, ErrKYCNotFound
		}
		return nil, storageError("get kyc", err)
	}
	return record, nil
}
