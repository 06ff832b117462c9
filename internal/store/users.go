package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/models"
)

// Users is the relational store for accounts and their one-shot tokens.
type Users struct {
	db *gorm.DB
}

// NewUsers creates the user store.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) one(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "user lookup failed", err)
	}
	return &user, nil
}

// ByID resolves a user by id.
func (s *Users) ByID(ctx context.Context, id uint) (*models.User, error) {
	return s.one(ctx, "user_id = ?", id)
}

// ByUsername resolves a user by username.
func (s *Users) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.one(ctx, "username = ?", username)
}

// ByEmail resolves a user by email address.
func (s *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.one(ctx, "email = ?", email)
}

// Create inserts a new account. Duplicate username or email is a conflict.
func (s *Users) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.Conflict, "username or email already registered")
		}
		return apperr.Wrap(apperr.Internal, "failed to create user", err)
	}
	return nil
}

// Save persists changes to an existing account.
func (s *Users) Save(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to update user", err)
	}
	return nil
}

// CreateToken stores a verification or reset token.
func (s *Users) CreateToken(ctx context.Context, token *models.AuthToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to create token", err)
	}
	return nil
}

// TokenByValue resolves an unused token of the given purpose.
func (s *Users) TokenByValue(ctx context.Context, value, purpose string) (*models.AuthToken, error) {
	var token models.AuthToken
	err := s.db.WithContext(ctx).
		Where("token = ? AND purpose = ? AND used = ?", value, purpose, false).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "token not found or already used")
		}
		return nil, apperr.Wrap(apperr.Internal, "token lookup failed", err)
	}
	return &token, nil
}

// MarkTokenUsed burns a one-shot token.
func (s *Users) MarkTokenUsed(ctx context.Context, token *models.AuthToken) error {
	token.Used = true
	if err := s.db.WithContext(ctx).Save(token).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "failed to update token", err)
	}
	return nil
}
