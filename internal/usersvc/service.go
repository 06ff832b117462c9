package usersvc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/apperr"
	"github.com/ecp-air/airquality-backend/internal/auth"
	"github.com/ecp-air/airquality-backend/internal/mailer"
	"github.com/ecp-air/airquality-backend/internal/models"
	"github.com/ecp-air/airquality-backend/internal/store"
)

// Token purposes.
const (
	purposeVerify = "verify"
	purposeReset  = "reset"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

// Service manages accounts: registration, login, verification, profile.
type Service struct {
	users  *store.Users
	jwt    *auth.JWTManager
	mail   *mailer.Mailer
	queue  *mailer.Worker
	logger *zap.Logger
	now    func() time.Time
}

// New creates the user service.
func New(users *store.Users, jwt *auth.JWTManager, mail *mailer.Mailer, queue *mailer.Worker, logger *zap.Logger) *Service {
	return &Service{users: users, jwt: jwt, mail: mail, queue: queue, logger: logger, now: time.Now}
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to generate token", err)
	}
	return hex.EncodeToString(buf), nil
}

// Register creates an unverified account and queues the verification email.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, apperr.New(apperr.Validation, "username, email and password are required")
	}
	if len(req.Password) < 8 {
		return nil, apperr.New(apperr.Validation, "password must be at least 8 characters")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, apperr.New(apperr.Validation, "invalid email address")
	}

	if _, err := s.users.ByUsername(ctx, req.Username); err == nil {
		return nil, apperr.New(apperr.Conflict, "username already registered")
	} else if apperr.KindOf(err) != apperr.NotFound {
		return nil, err
	}
	if _, err := s.users.ByEmail(ctx, req.Email); err == nil {
		return nil, apperr.New(apperr.Conflict, "email already registered")
	} else if apperr.KindOf(err) != apperr.NotFound {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         models.RoleNodeOwner,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.issueVerification(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *Service) issueVerification(ctx context.Context, user *models.User) error {
	value, err := randomToken()
	if err != nil {
		return err
	}
	token := &models.AuthToken{
		UserID:    user.ID,
		Token:     value,
		Purpose:   purposeVerify,
		ExpiresAt: s.now().Add(verifyTokenTTL),
	}
	if err := s.users.CreateToken(ctx, token); err != nil {
		return err
	}
	email := user.Email
	s.queue.Enqueue(mailer.Task{
		Name: "verification",
		To:   email,
		Send: func() error { return s.mail.SendVerification(email, value) },
	})
	return nil
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login verifies credentials and issues a token pair. Unverified accounts
// cannot log in.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, *TokenPair, error) {
	user, err := s.users.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, nil, apperr.New(apperr.Auth, "invalid username or password")
		}
		return nil, nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, nil, apperr.New(apperr.Auth, "invalid username or password")
	}
	if !user.IsVerified {
		return nil, nil, apperr.New(apperr.Auth, "email address not verified")
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *Service) issueTokens(user *models.User) (*TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to issue token", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to issue token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperr.New(apperr.Auth, "invalid or expired refresh token")
	}
	if claims.TokenType != auth.TokenRefresh {
		return nil, apperr.New(apperr.Auth, "not a refresh token")
	}
	user, err := s.users.ByID(ctx, claims.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil, apperr.New(apperr.Auth, "account no longer exists")
		}
		return nil, err
	}
	return s.issueTokens(user)
}

// ForgotPassword queues a reset email when the address is registered. The
// response does not reveal whether the address exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			return nil
		}
		return err
	}

	value, err := randomToken()
	if err != nil {
		return err
	}
	token := &models.AuthToken{
		UserID:    user.ID,
		Token:     value,
		Purpose:   purposeReset,
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.users.CreateToken(ctx, token); err != nil {
		return err
	}
	to := user.Email
	s.queue.Enqueue(mailer.Task{
		Name: "password-reset",
		To:   to,
		Send: func() error { return s.mail.SendPasswordReset(to, value) },
	})
	return nil
}

// ResetPassword burns a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, tokenValue, newPassword string) error {
	if len(newPassword) < 8 {
		return apperr.New(apperr.Validation, "password must be at least 8 characters")
	}
	token, err := s.users.TokenByValue(ctx, tokenValue, purposeReset)
	if err != nil {
		return err
	}
	if token.Expired(s.now()) {
		return apperr.New(apperr.Auth, "reset token has expired")
	}
	user, err := s.users.ByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}
	user.PasswordHash = hash
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	return s.users.MarkTokenUsed(ctx, token)
}

// VerifyEmail burns a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, tokenValue string) error {
	token, err := s.users.TokenByValue(ctx, tokenValue, purposeVerify)
	if err != nil {
		return err
	}
	if token.Expired(s.now()) {
		return apperr.New(apperr.Auth, "verification token has expired")
	}
	user, err := s.users.ByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	user.IsVerified = true
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	return s.users.MarkTokenUsed(ctx, token)
}

// ResendVerification issues a fresh verification token for an unverified
// account.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user.IsVerified {
		return apperr.New(apperr.Conflict, "email is already verified")
	}
	return s.issueVerification(ctx, user)
}

// Profile returns the principal's account.
func (s *Service) Profile(ctx context.Context, principal *auth.User) (*models.User, error) {
	return s.users.ByID(ctx, principal.ID)
}

// UpdateProfileRequest carries optional profile changes.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// UpdateProfile applies the non-nil fields to the principal's account.
func (s *Service) UpdateProfile(ctx context.Context, principal *auth.User, req UpdateProfileRequest) (*models.User, error) {
	user, err := s.users.ByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password and sets a new one.
func (s *Service) ChangePassword(ctx context.Context, principal *auth.User, current, next string) error {
	if len(next) < 8 {
		return apperr.New(apperr.Validation, "password must be at least 8 characters")
	}
	user, err := s.users.ByID(ctx, principal.ID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return apperr.New(apperr.Auth, "current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}
	user.PasswordHash = hash
	return s.users.Save(ctx, user)
}
