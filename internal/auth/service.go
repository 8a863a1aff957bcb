package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/OpenCrew/crewflow/internal/config"
)

var (
	// ErrLinkInvalid covers unknown, expired and already-used magic links.
	// The three cases are deliberately indistinguishable to callers.
	ErrLinkInvalid = errors.New("magic link is invalid or expired")

	// ErrUserUnknown is returned when no active account matches the email.
	ErrUserUnknown = errors.New("no active account for this email")
)

// AuthService issues and verifies magic links and resolves session tokens.
type AuthService struct {
	db         *gorm.DB
	linkTTL    time.Duration
	sessionTTL time.Duration
}

// NewAuthService creates a new AuthService instance
func NewAuthService(db *gorm.DB, cfg *config.AuthConfig) *AuthService {
	return &AuthService{
		db:         db,
		linkTTL:    time.Duration(cfg.MagicLinkTTLMinutes) * time.Minute,
		sessionTTL: time.Duration(cfg.SessionTTLHours) * time.Hour,
	}
}

// IssueMagicLink creates a single-use login link for an active account.
// The returned link carries the token that goes into the login email;
// delivery is handled by the email dispatcher, not here.
func (as *AuthService) IssueMagicLink(ctx context.Context, email string) (*MagicLink, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}

	var user User
	result := as.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.Debug("magic link requested for unknown email", "email", email)
			return nil, ErrUserUnknown
		}
		return nil, fmt.Errorf("failed to look up user: %w", result.Error)
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	link := &MagicLink{
		Email:     email,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(as.linkTTL),
	}
	if result := as.db.WithContext(ctx).Create(link); result.Error != nil {
		slog.Error("failed to store magic link", "email", email, "error", result.Error)
		return nil, fmt.Errorf("failed to store magic link: %w", result.Error)
	}

	slog.Info("magic link issued", "email", email, "expires_at", link.ExpiresAt)
	return link, nil
}

// VerifyMagicLink consumes a magic link and mints a session. A link
// verifies exactly once; a second call with the same token fails.
func (as *AuthService) VerifyMagicLink(ctx context.Context, token, remoteIP string) (*Session, error) {
	if token == "" {
		return nil, ErrLinkInvalid
	}

	now := time.Now().UTC()
	var session *Session

	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link MagicLink
		result := tx.Where("token = ?", token).First(&link)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrLinkInvalid
			}
			return fmt.Errorf("failed to look up magic link: %w", result.Error)
		}

		if link.UsedAt != nil || now.After(link.ExpiresAt) {
			return ErrLinkInvalid
		}

		link.UsedAt = &now
		if remoteIP != "" {
			link.UsedIP = &remoteIP
		}
		if result := tx.Save(&link); result.Error != nil {
			return fmt.Errorf("failed to consume magic link: %w", result.Error)
		}

		var user User
		result = tx.Where("email = ? AND is_active = ?", link.Email, true).First(&user)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrUserUnknown
			}
			return fmt.Errorf("failed to look up user: %w", result.Error)
		}

		sessionToken, err := generateToken()
		if err != nil {
			return err
		}
		session = &Session{
			UserID:    user.ID,
			Token:     sessionToken,
			ExpiresAt: now.Add(as.sessionTTL),
			User:      &user,
		}
		if result := tx.Create(session); result.Error != nil {
			return fmt.Errorf("failed to create session: %w", result.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("magic link verified", "email", session.User.Email, "session_expires_at", session.ExpiresAt)
	return session, nil
}

// ResolveSession maps a bearer token to its user. Returns
// gorm.ErrRecordNotFound for unknown or expired tokens.
func (as *AuthService) ResolveSession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var session Session
	result := as.db.WithContext(ctx).
		Preload("User").
		Where("token = ? AND expires_at > ?", token, time.Now().UTC()).
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, result.Error
		}
		slog.Error("failed to resolve session", "error", result.Error)
		return nil, fmt.Errorf("failed to resolve session: %w", result.Error)
	}
	if session.User == nil || !session.User.IsActive {
		return nil, gorm.ErrRecordNotFound
	}

	return session.User, nil
}

// generateToken returns 32 bytes of hex-encoded randomness.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
