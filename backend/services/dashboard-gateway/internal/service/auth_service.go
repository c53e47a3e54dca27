package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
	"signaltracker/backend/services/dashboard-gateway/internal/password"
	redisstore "signaltracker/backend/services/dashboard-gateway/internal/redis"
)

var (
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUnauthorized is returned for missing, invalid or expired sessions.
	ErrUnauthorized = errors.New("auth: unauthorized")
)

// LoginError carries the backend's reason for a rejected login.
type LoginError struct {
	Message string
}

func (e *LoginError) Error() string { return "auth: " + e.Message }

// Unwrap makes LoginError match ErrInvalidCredentials.
func (e *LoginError) Unwrap() error { return ErrInvalidCredentials }

// SessionStore persists gateway sessions.
type SessionStore interface {
	Save(ctx context.Context, session models.AuthSession) error
	Get(ctx context.Context, id string) (*models.AuthSession, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// HomeAPI is the backend login surface.
type HomeAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, []models.UpstreamCookie, error)
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	ResetPassword(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// SignupAPI registers field users.
type SignupAPI interface {
	Signup(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// StaticAccount is an operator account defined in configuration.
type StaticAccount struct {
	ID           int64
	Email        string
	Name         string
	UserType     string
	PasswordHash string
}

// LoginResult is a successful login.
type LoginResult struct {
	Token   string
	Session *models.AuthSession
}

// AuthService owns the operator session.
type AuthService struct {
	home     HomeAPI
	signup   SignupAPI
	store    SessionStore
	tokens   *TokenService
	hasher   password.Hasher
	accounts map[string]StaticAccount
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService builds AuthService.
func NewAuthService(home HomeAPI, signup SignupAPI, store SessionStore, tokens *TokenService, hasher password.Hasher, accounts []StaticAccount, logger *zap.Logger) *AuthService {
	byEmail := make(map[string]StaticAccount, len(accounts))
	for _, acc := range accounts {
		byEmail[normalizeEmail(acc.Email)] = acc
	}
	return &AuthService{
		home:     home,
		signup:   signup,
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		accounts: byEmail,
		logger:   logger,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks configured accounts first and the backend otherwise, then
// opens a gateway session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	session := models.AuthSession{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: s.now().UTC(),
	}

	if acc, ok := s.accounts[email]; ok {
		if err := s.hasher.Compare(acc.PasswordHash, req.Password); err != nil {
			return nil, ErrInvalidCredentials
		}
		user, err := json.Marshal(models.User{ID: acc.ID, Name: acc.Name, Email: email, UserType: acc.UserType})
		if err != nil {
			return nil, err
		}
		session.UserID = acc.ID
		session.Static = true
		session.User = user
	} else {
		req.Email = email
		resp, cookies, err := s.home.Login(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("auth: backend login: %w", err)
		}
		if !resp.Success {
			msg := resp.Message
			if msg == "" {
				msg = "invalid credentials"
			}
			return nil, &LoginError{Message: msg}
		}
		session.User = resp.User
		session.Cookies = cookies
		if u, ok := session.DecodeUser(); ok {
			session.UserID = u.ID
		}
	}

	role := ""
	if u, ok := session.DecodeUser(); ok {
		role = u.UserType
	}
	token, err := s.tokens.GenerateToken(session.ID, session.UserID, role)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("auth: save session: %w", err)
	}

	s.logger.Info("operator logged in",
		zap.String("session_id", session.ID),
		zap.Int64("user_id", session.UserID),
		zap.Bool("static", session.Static),
	)
	return &LoginResult{Token: token, Session: &session}, nil
}

// Authenticate resolves a token to its live session and extends its TTL.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.AuthSession, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	session, err := s.store.Get(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, redisstore.ErrSessionNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, ErrUnauthorized
	}
	if _, ok := session.DecodeUser(); !ok {
		_ = s.store.Delete(ctx, session.ID)
		return nil, ErrUnauthorized
	}
	if err := s.store.Touch(ctx, session.ID); err != nil {
		s.logger.Warn("session touch failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	return session, nil
}

// Logout ends the backend session when there is one and always drops the
// local session.
func (s *AuthService) Logout(ctx context.Context, session *models.AuthSession) error {
	if session == nil {
		return nil
	}
	if !session.Static {
		if err := s.home.Logout(clients.WithCookies(ctx, session.Cookies)); err != nil {
			s.logger.Warn("backend logout failed", zap.String("session_id", session.ID), zap.Error(err))
		}
	}
	if err := s.store.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	s.logger.Info("operator logged out", zap.String("session_id", session.ID))
	return nil
}

// ForgotPassword forwards the reset request.
func (s *AuthService) ForgotPassword(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return s.home.ForgotPassword(ctx, payload)
}

// ResetPassword forwards the new password.
func (s *AuthService) ResetPassword(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return s.home.ResetPassword(ctx, payload)
}

// Signup registers a field user.
func (s *AuthService) Signup(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return s.signup.Signup(ctx, payload)
}
