package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quarrylabs/ragserve/internal/apierror"
	"github.com/quarrylabs/ragserve/internal/auth"
	"github.com/quarrylabs/ragserve/internal/store"
)

const minPasswordLength = 8

// AccountService handles registration and login.
type AccountService struct {
	users  UserStore
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(users UserStore, tokens *auth.TokenManager, logger *zap.Logger) *AccountService {
	return &AccountService{users: users, tokens: tokens, logger: logger}
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        *store.User
}

// Register creates a new user account.
func (s *AccountService) Register(ctx context.Context, email, password string) (*store.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") || len(email) < 3 {
		return nil, apierror.New(apierror.ValidationError).WithDetails(map[string]interface{}{
			"field": "email",
		})
	}
	if len(password) < minPasswordLength {
		return nil, apierror.New(apierror.ValidationError).WithDetails(map[string]interface{}{
			"field":  "password",
			"reason": "must be at least 8 characters",
		})
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	user, err := s.users.Insert(ctx, email, hash)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apierror.New(apierror.AuthUserAlreadyExists)
		}
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and issues an access token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.New(apierror.AuthUserNotFound)
		}
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	if !auth.VerifyPassword(user.HashedPassword, password) {
		return nil, apierror.New(apierror.AuthInvalidCredentials)
	}
	if !user.IsActive {
		return nil, apierror.New(apierror.AuthInactiveUser)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err)
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}
