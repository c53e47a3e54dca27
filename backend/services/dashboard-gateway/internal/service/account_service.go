package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// DirectoryAPI is the account lookup surface of the backend Home controller.
type DirectoryAPI interface {
	LoggedUser(ctx context.Context, ip string) (json.RawMessage, error)
	StateInfo(ctx context.Context) (json.RawMessage, error)
	MasterUserTypes(ctx context.Context) (json.RawMessage, error)
	AuthStatus(ctx context.Context) (json.RawMessage, error)
}

// SessionChecker reports whether the replayed backend cookies are still valid.
type SessionChecker interface {
	CheckSession(ctx context.Context) error
}

// SessionStatus describes the caller's gateway and backend session.
type SessionStatus struct {
	Authenticated bool            `json:"authenticated"`
	Static        bool            `json:"static"`
	Backend       bool            `json:"backend_session"`
	UserID        int64           `json:"user_id"`
	Detail        json.RawMessage `json:"detail,omitempty"`
}

// AccountService serves the account lookups and session status.
type AccountService struct {
	directory DirectoryAPI
	checker   SessionChecker
	logger    *zap.Logger
}

// NewAccountService returns service.
func NewAccountService(directory DirectoryAPI, checker SessionChecker, logger *zap.Logger) *AccountService {
	return &AccountService{directory: directory, checker: checker, logger: logger}
}

// Status reports the session. Static sessions have no backend side; for the
// rest an expired backend session is reported, not returned as an error.
func (s *AccountService) Status(ctx context.Context, session *models.AuthSession) (*SessionStatus, error) {
	if session == nil {
		return &SessionStatus{}, nil
	}
	status := &SessionStatus{Authenticated: true, Static: session.Static, UserID: session.UserID}
	if session.Static {
		return status, nil
	}

	if err := s.checker.CheckSession(ctx); err != nil {
		var apiErr *clients.APIError
		if !errors.As(err, &apiErr) || (apiErr.Status != http.StatusUnauthorized && apiErr.Status != http.StatusForbidden) {
			return nil, err
		}
		s.logger.Info("backend session expired", zap.String("session_id", session.ID))
		return status, nil
	}
	status.Backend = true

	detail, err := s.directory.AuthStatus(ctx)
	if err != nil {
		s.logger.Debug("backend auth status unavailable", zap.Error(err))
		return status, nil
	}
	status.Detail = detail
	return status, nil
}

// LoggedUser returns the backend's record of the caller.
func (s *AccountService) LoggedUser(ctx context.Context, session *models.AuthSession, ip string) (json.RawMessage, error) {
	if session != nil && session.Static {
		return session.User, nil
	}
	return s.directory.LoggedUser(ctx, ip)
}

// States returns the state master list.
func (s *AccountService) States(ctx context.Context) (json.RawMessage, error) {
	return s.directory.StateInfo(ctx)
}

// UserTypes returns the user type master list.
func (s *AccountService) UserTypes(ctx context.Context) (json.RawMessage, error) {
	return s.directory.MasterUserTypes(ctx)
}
