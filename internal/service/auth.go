// Package service provides the business logic layer (use cases).
// AuthService handles registration, login and the transaction-PIN
// verification state machine including lockout.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bankapp/ledger-core-go/internal/domain"
	"github.com/bankapp/ledger-core-go/internal/infra/observability"
	"github.com/bankapp/ledger-core-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthService orchestrates authentication flows. It is the single
// writer of PinFailCount/PinLocked: all PIN state transitions happen
// inside VerifyPin under pinMu.
type AuthService struct {
	users     port.UserStore
	verifier  port.CredentialVerifier
	ids       port.IDGenerator
	metrics   *observability.Metrics
	logger    *zap.Logger
	jwtSecret []byte
	accessTTL time.Duration

	// pinMaxAttempts is the lockout threshold: consecutive failures
	// before the PIN locks permanently (until an administrative reset).
	pinMaxAttempts int

	pinMu sync.Mutex
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users port.UserStore,
	verifier port.CredentialVerifier,
	ids port.IDGenerator,
	pinMaxAttempts int,
	jwtSecret string,
	accessTTL time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AuthService {
	if pinMaxAttempts < 1 {
		pinMaxAttempts = 3
	}
	return &AuthService{
		users:          users,
		verifier:       verifier,
		ids:            ids,
		metrics:        metrics,
		logger:         logger,
		jwtSecret:      []byte(jwtSecret),
		accessTTL:      accessTTL,
		pinMaxAttempts: pinMaxAttempts,
	}
}

// RegisterRequest carries the registration input fields.
type RegisterRequest struct {
	Username string
	Password string
	PIN      string
	FullName string
	Email    string
}

// LoginResult is returned on successful login. The access token is a
// short-lived session credential for the presentation layer; it says
// nothing about PIN state.
type LoginResult struct {
	User        *domain.User
	AccessToken string
	ExpiresIn   int
}

// ============================================================
// Register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := validatePin(req.PIN); err != nil {
		return nil, err
	}
	if err := validateFullName(req.FullName); err != nil {
		return nil, err
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}

	exists, err := s.users.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, &domain.ErrDuplicateUsername{Username: req.Username}
	}

	passwordHash, err := s.verifier.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	pinHash, err := s.verifier.Hash(req.PIN)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	user := &domain.User{
		UserID:       s.ids.NewUserID(),
		Username:     req.Username,
		PasswordHash: passwordHash,
		PINHash:      pinHash,
		FullName:     req.FullName,
		Email:        req.Email,
		PinFailCount: 0,
		PinLocked:    false,
		CreatedAt:    time.Now(),
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.UserID),
		zap.String("username", user.Username),
	)

	return user, nil
}

// ============================================================
// Login
// ============================================================

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrInvalidCredentials{}
	}

	if !s.verifier.Verify(password, user.PasswordHash) {
		s.logger.Warn("login: wrong password", zap.String("username", username))
		return nil, &domain.ErrInvalidCredentials{}
	}

	token, err := s.signAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.UserID))

	return &LoginResult{
		User:        user,
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}, nil
}

// ============================================================
// PIN verification state machine
// ============================================================

// VerifyPin checks the transaction PIN. A locked user fails immediately
// without consuming an attempt. On a match the failure counter resets
// to zero. On a mismatch the counter increments; reaching the threshold
// locks the PIN, a one-way transition within this service.
func (s *AuthService) VerifyPin(ctx context.Context, userID, pin string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.VerifyPin")
	defer span.End()

	if err := validatePin(pin); err != nil {
		return err
	}

	s.pinMu.Lock()
	defer s.pinMu.Unlock()

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}

	if user.PinLocked {
		s.metrics.IncrPinVerification("locked")
		return &domain.ErrPinLocked{UserID: userID}
	}

	if s.verifier.Verify(pin, user.PINHash) {
		if user.PinFailCount != 0 {
			user.PinFailCount = 0
			if err := s.users.Update(ctx, user); err != nil {
				return fmt.Errorf("reset pin failures: %w", err)
			}
		}
		s.metrics.IncrPinVerification("success")
		return nil
	}

	user.PinFailCount++
	if user.PinFailCount >= s.pinMaxAttempts {
		user.PinLocked = true
		s.logger.Warn("pin locked after max attempts",
			zap.String("user_id", userID),
			zap.Int("attempts", user.PinFailCount),
		)
	} else {
		s.logger.Warn("pin mismatch",
			zap.String("user_id", userID),
			zap.Int("attempts", user.PinFailCount),
			zap.Int("max", s.pinMaxAttempts),
		)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("record pin failure: %w", err)
	}

	if user.PinLocked {
		s.metrics.IncrPinVerification("locked")
		return &domain.ErrPinLocked{UserID: userID}
	}
	s.metrics.IncrPinVerification("mismatch")
	return &domain.ErrPinMismatch{Remaining: s.pinMaxAttempts - user.PinFailCount}
}

// IsPinLocked reports whether the user's PIN is locked.
func (s *AuthService) IsPinLocked(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return false, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return user.PinLocked, nil
}

// RemainingPinAttempts returns how many consecutive failures remain
// before lockout; zero once locked.
func (s *AuthService) RemainingPinAttempts(ctx context.Context, userID string) (int, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return 0, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	if user.PinLocked {
		return 0, nil
	}
	return s.pinMaxAttempts - user.PinFailCount, nil
}

// ============================================================
// Lookups
// ============================================================

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return user, nil
}

func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrNotFound{Resource: "user", ID: username}
	}
	return user, nil
}

// ============================================================
// Session tokens
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub      string `json:"sub"`
	Username string `json:"username"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken parses and verifies a session token issued by Login.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}

	return claims, nil
}

func (s *AuthService) signAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:      user.UserID,
		Username: user.Username,
		Type:     "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "bankapp-core",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
