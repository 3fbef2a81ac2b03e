// Package auth issues and verifies the bearer tokens that carry actor
// identity and role into the lifecycle authorization gate.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"railguard/internal/domain/defect"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Service struct {
	users    ports.UserRepository
	secret   []byte
	tokenTTL time.Duration
	clock    clockwork.Clock
}

type Option func(*Service)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func NewService(users ports.UserRepository, secret string, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type claims struct {
	Role      string  `json:"role"`
	StationID *uint64 `json:"station_id,omitempty"`
	jwt.RegisteredClaims
}

type LoginResult struct {
	Token string
	Actor defect.Actor
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if ctx == nil {
		return LoginResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return LoginResult{}, errs.Wrap(err, "check context")
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:      string(user.Role),
		StationID: user.StationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return LoginResult{}, errs.Wrap(err, "sign token")
	}

	return LoginResult{
		Token: signed,
		Actor: actorFromUser(user),
	}, nil
}

// ParseToken verifies a bearer token and returns the actor it identifies.
func (s *Service) ParseToken(tokenString string) (defect.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return defect.Actor{}, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return defect.Actor{}, ErrInvalidToken
	}

	var userID uint64
	if _, err := fmt.Sscanf(c.Subject, "%d", &userID); err != nil {
		return defect.Actor{}, ErrInvalidToken
	}

	return defect.Actor{
		UserID:    userID,
		Role:      defect.Role(c.Role),
		StationID: c.StationID,
	}, nil
}

func actorFromUser(user ports.User) defect.Actor {
	return defect.Actor{
		UserID:    user.UserID,
		Role:      user.Role,
		StationID: user.StationID,
	}
}
