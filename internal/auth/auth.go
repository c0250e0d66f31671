// Package auth handles account registration, password login and the bearer
// tokens that scope every API call to one user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/ports"
)

const MinPasswordLength = 6

var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Token is a signed bearer token and its expiry.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	users  ports.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *applog.Logger
}

func NewService(users ports.UserStore, secret string, ttl time.Duration, logger *applog.Logger) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentAuth),
	}
}

// Register creates an account. Fields are trimmed before validation.
func (s *Service) Register(ctx context.Context, email, password, confirm string) (core.User, error) {
	email = core.NormalizeEmail(email)
	password = strings.TrimSpace(password)
	confirm = strings.TrimSpace(confirm)

	if email == "" || password == "" {
		return core.User{}, ErrMissingFields
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return core.User{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return core.User{}, ErrPasswordTooShort
	}
	if password != confirm {
		return core.User{}, ErrPasswordMismatch
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", applog.FieldUserID, user.ID)
	return user, nil
}

// Login checks the password and issues a token for the account.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(strings.TrimSpace(password))); err != nil {
		s.logger.WarnContext(ctx, "Login rejected", applog.FieldUserID, user.ID)
		return Token{}, ErrInvalidCredentials
	}

	tok, err := s.Issue(user.ID)
	if err != nil {
		return Token{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", applog.FieldUserID, user.ID)
	return tok, nil
}

// Issue signs a token for userID.
func (s *Service) Issue(userID string) (Token, error) {
	expires := s.now().Add(s.ttl).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return Token{Token: signed, ExpiresAt: expires}, nil
}

// ParseToken verifies the signature and expiry and returns the user id.
func (s *Service) ParseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
