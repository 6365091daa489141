package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/inventory_api/internal/events"
	"github.com/Skotchmaster/inventory_api/internal/hash"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/models"
	"github.com/Skotchmaster/inventory_api/internal/repo"
	"github.com/Skotchmaster/inventory_api/internal/tokens"
)

const TokenTypeBearer = "bearer"

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	StoredRefreshToken(ctx context.Context, id uint) (string, error)
	RotateRefreshToken(ctx context.Context, id uint, username, token string) error
}

type AuthService struct {
	Repo          UserStore
	Hasher        hash.Hasher
	Codec         *tokens.Codec
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// RequireCurrentRefresh rejects refresh tokens that were rotated out by a later login.
	RequireCurrentRefresh bool
	Events                events.Publisher
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

func (s *AuthService) CreateUser(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	l := logging.FromContext(ctx).With("svc", "auth.create_user", "username", username)

	if username == "" || password == "" {
		l.Warn("create_user_failed", "status", 400, "reason", "empty username or password")
		return "", fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	pwHash, err := s.Hasher.Hash(password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			l.Warn("create_user_failed", "status", 400, "reason", "password too long")
			return "", fmt.Errorf("%w: %w", ErrValidation, err)
		}
		l.Error("create_user_failed", "status", 500, "reason", "cannot hash the password", "error", err)
		return "", err
	}

	user := &models.User{Username: username, PasswordHash: pwHash}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("create_user_failed", "status", 409, "reason", "user already exist")
			return "", ErrAlreadyExists
		}
		l.Error("create_user_failed", "status", 500, "reason", "insert failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.publish(ctx, events.UserEvent{Type: events.TypeUserCreated, UserID: user.ID, Username: user.Username})
	l.Info("user_created", "user_id", user.ID)
	return user.Username, nil
}

// Login checks the credentials, mints both tokens and stores the refresh token.
// Tokens are only returned once the refresh token is persisted.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		l.Warn("login_failed", "status", 401, "reason", "empty username or password")
		return nil, ErrInvalidCredentials
	}

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "reason", "user lookup failed", "error", err)
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.Hasher.Verify(password, user.PasswordHash) {
		l.Warn("login_failed", "status", 401, "reason", "password mismatch")
		return nil, ErrInvalidCredentials
	}

	sub := tokens.Subject{Username: user.Username, ID: user.ID}
	access, err := s.Codec.Issue(sub, s.AccessSecret, s.AccessTTL)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue access token", "error", err)
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.Codec.Issue(sub, s.RefreshSecret, s.RefreshTTL)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue refresh token", "error", err)
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.Repo.RotateRefreshToken(ctx, user.ID, user.Username, refresh); err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot store refresh token", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.publish(ctx, events.UserEvent{Type: events.TypeUserLoggedIn, UserID: user.ID, Username: user.Username})
	l.Info("login_succeeded", "user_id", user.ID)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The stored
// refresh token is left untouched.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		l.Warn("refresh_failed", "status", 401, "reason", "empty token")
		return "", ErrInvalidToken
	}

	sub, err := s.Codec.Verify(refreshToken, s.RefreshSecret)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "verify failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	l = l.With("username", sub.Username, "user_id", sub.ID)

	if s.RequireCurrentRefresh {
		stored, err := s.Repo.StoredRefreshToken(ctx, sub.ID)
		switch {
		case errors.Is(err, repo.ErrUserNotFound):
			l.Warn("refresh_failed", "status", 401, "reason", "user gone")
			return "", ErrInvalidToken
		case err != nil:
			l.Error("refresh_failed", "status", 500, "reason", "cannot load stored token", "error", err)
			return "", fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
			l.Warn("refresh_failed", "status", 401, "reason", "token rotated out")
			return "", ErrInvalidToken
		}
	}

	access, err := s.Codec.Issue(sub, s.AccessSecret, s.AccessTTL)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot issue access token", "error", err)
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

func (s *AuthService) publish(ctx context.Context, ev events.UserEvent) {
	if s.Events == nil {
		return
	}
	ev.At = time.Now().UTC()
	if err := s.Events.PublishEvent(ctx, strconv.FormatUint(uint64(ev.UserID), 10), ev); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "type", ev.Type, "error", err)
	}
}
