package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/inventory_api/internal/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserAlreadyExist = errors.New("user already exist")
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExist
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// StoredRefreshToken returns the live refresh token of the user, "" when none is stored.
func (r *GormRepo) StoredRefreshToken(ctx context.Context, id uint) (string, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Select("id", "refresh_token").Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("load refresh token: %w", err)
	}
	if user.RefreshToken == nil {
		return "", nil
	}
	return *user.RefreshToken, nil
}

// RotateRefreshToken clears the stored refresh token and writes the new one
// in a single transaction, so readers never see the cleared state committed.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, id uint, username, token string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND username = ?", id, username).
			Update("refresh_token", nil)
		if res.Error != nil {
			return fmt.Errorf("clear refresh token: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		if err := tx.Model(&models.User{}).
			Where("id = ? AND username = ?", id, username).
			Update("refresh_token", token).Error; err != nil {
			return fmt.Errorf("set refresh token: %w", err)
		}
		return nil
	})
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
