package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"krypton/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 插入新用户，唯一索引冲突映射为 ErrDuplicateEmail
func (r *UserRepository) Create(ctx context.Context, tx *gorm.DB, user *model.User) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

// FindByEmail 邮箱按存储值精确匹配
func (r *UserRepository) FindByEmail(ctx context.Context, tx *gorm.DB, email string) (*model.User, error) {
	if tx == nil {
		tx = r.db
	}
	var user model.User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.User, error) {
	if tx == nil {
		tx = r.db
	}
	var user model.User
	err := tx.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update 只更新 patch 里非空的资料字段，返回更新后的用户
func (r *UserRepository) Update(ctx context.Context, tx *gorm.DB, id string, patch model.UserPatch) (*model.User, error) {
	if tx == nil {
		tx = r.db
	}
	user, err := r.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return user, nil
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Email != nil && *patch.Email != user.Email {
		var count int64
		err := tx.WithContext(ctx).Model(&model.User{}).
			Where("email = ? AND id <> ?", *patch.Email, id).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrDuplicateEmail
		}
		updates["email"] = *patch.Email
	}
	if len(updates) == 0 {
		return user, nil
	}

	err = tx.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return r.FindByID(ctx, tx, id)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, tx *gorm.DB, id, passwordHash string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetKYC 标记用户已通过实名认证
func (r *UserRepository) SetKYC(ctx context.Context, tx *gorm.DB, id, documentNumber string) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"kyc_verified": true,
			"kyc_document": documentNumber,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List 所有用户，最新注册的在前
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&users).Error
	return users, err
}
