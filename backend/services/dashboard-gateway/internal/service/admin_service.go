package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

var (
	// ErrInvalidID is returned for ids that are not positive integers.
	ErrInvalidID = errors.New("admin: invalid id")
	// ErrRejected is returned when the backend answers with a failure status.
	ErrRejected = errors.New("admin: request rejected")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
	maxPage         = math.MaxInt / MaxPageSize
)

// AdminAPI is the backend admin surface.
type AdminAPI interface {
	Sessions(ctx context.Context) ([]models.Session, error)
	SessionsByDateRange(ctx context.Context, from, to string) ([]models.Session, error)
	DeleteSession(ctx context.Context, id int64) error
	AllNetworkLogs(ctx context.Context, params url.Values) ([]models.NetworkLog, error)
	Users(ctx context.Context, params url.Values) ([]json.RawMessage, error)
	AllUsers(ctx context.Context, filters any) (json.RawMessage, error)
	User(ctx context.Context, id int64) (json.RawMessage, error)
	SaveUser(ctx context.Context, user json.RawMessage) (*clients.Envelope, error)
	DeleteUser(ctx context.Context, id int64) (*clients.Envelope, error)
	ResetUserPassword(ctx context.Context, payload json.RawMessage) (*clients.Envelope, error)
	ChangePassword(ctx context.Context, payload json.RawMessage) (*clients.Envelope, error)
}

// SessionQuery selects a page of sessions. From and To are optional dates.
type SessionQuery struct {
	From     string
	To       string
	Page     int
	PageSize int
}

// SessionPage is one page of session summaries.
type SessionPage struct {
	Items    []models.SessionSummary `json:"items"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
	Pages    int                     `json:"pages"`
}

// AdminService backs the session, log and user tables.
type AdminService struct {
	api    AdminAPI
	logger *zap.Logger
}

// NewAdminService returns service.
func NewAdminService(api AdminAPI, logger *zap.Logger) *AdminService {
	return &AdminService{api: api, logger: logger}
}

// ParseID accepts only positive base-10 integers.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// Sessions returns a page of session summaries, by date range when both
// bounds are given.
func (s *AdminService) Sessions(ctx context.Context, q SessionQuery) (*SessionPage, error) {
	var (
		sessions []models.Session
		err      error
	)
	if q.From != "" && q.To != "" {
		sessions, err = s.api.SessionsByDateRange(ctx, q.From, q.To)
	} else {
		sessions, err = s.api.Sessions(ctx)
	}
	if err != nil {
		return nil, err
	}

	page, size := Paginate(q.Page, q.PageSize)
	out := &SessionPage{
		Items:    []models.SessionSummary{},
		Total:    len(sessions),
		Page:     page,
		PageSize: size,
		Pages:    (len(sessions) + size - 1) / size,
	}
	if page > out.Pages {
		return out, nil
	}
	start := (page - 1) * size
	end := min(start+size, len(sessions))
	for _, sess := range sessions[start:end] {
		out.Items = append(out.Items, sess.Summary())
	}
	return out, nil
}

// Paginate clamps client supplied paging to sane values. Page is capped so
// that (page-1)*size cannot overflow.
func Paginate(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	page = min(page, maxPage)
	if size <= 0 {
		size = DefaultPageSize
	}
	return page, min(size, MaxPageSize)
}

// DeleteSession removes a session.
func (s *AdminService) DeleteSession(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if err := s.api.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.Int64("session_id", id))
	return nil
}

// NetworkLogs passes the listing parameters through.
func (s *AdminService) NetworkLogs(ctx context.Context, params url.Values) ([]models.NetworkLog, error) {
	return s.api.AllNetworkLogs(ctx, params)
}

func (s *AdminService) Users(ctx context.Context, params url.Values) ([]json.RawMessage, error) {
	return s.api.Users(ctx, params)
}

// SearchUsers posts a filter object as is; an empty body searches everything.
func (s *AdminService) SearchUsers(ctx context.Context, filters json.RawMessage) (json.RawMessage, error) {
	if len(filters) == 0 {
		filters = json.RawMessage(`{}`)
	}
	return s.api.AllUsers(ctx, filters)
}

func (s *AdminService) User(ctx context.Context, id int64) (json.RawMessage, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	return s.api.User(ctx, id)
}

func (s *AdminService) SaveUser(ctx context.Context, user json.RawMessage) (*clients.Envelope, error) {
	return confirm(s.api.SaveUser(ctx, user))
}

func (s *AdminService) DeleteUser(ctx context.Context, id int64) (*clients.Envelope, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	env, err := confirm(s.api.DeleteUser(ctx, id))
	if err == nil {
		s.logger.Info("user deleted", zap.Int64("user_id", id))
	}
	return env, err
}

func (s *AdminService) ResetUserPassword(ctx context.Context, payload json.RawMessage) (*clients.Envelope, error) {
	return confirm(s.api.ResetUserPassword(ctx, payload))
}

func (s *AdminService) ChangePassword(ctx context.Context, payload json.RawMessage) (*clients.Envelope, error) {
	return confirm(s.api.ChangePassword(ctx, payload))
}

// confirm turns a failure envelope into ErrRejected carrying its message.
func confirm(env *clients.Envelope, err error) (*clients.Envelope, error) {
	if err != nil {
		return nil, err
	}
	if env == nil || !env.OK() {
		msg := "backend did not confirm the request"
		if env != nil && env.Message != "" {
			msg = env.Message
		}
		return env, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return env, nil
}
