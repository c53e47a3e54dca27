package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

type fakeDirectory struct {
	statusCalls int
}

func (f *fakeDirectory) LoggedUser(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{"id":9}`), nil
}

func (f *fakeDirectory) StateInfo(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[{"id":1,"name":"Delhi"}]`), nil
}

func (f *fakeDirectory) MasterUserTypes(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (f *fakeDirectory) AuthStatus(context.Context) (json.RawMessage, error) {
	f.statusCalls++
	return json.RawMessage(`{"authenticated":true}`), nil
}

type fakeChecker struct{ err error }

func (f fakeChecker) CheckSession(context.Context) error { return f.err }

func TestStatusOfStaticSession(t *testing.T) {
	dir := &fakeDirectory{}
	svc := NewAccountService(dir, fakeChecker{err: errors.New("must not be called")}, zap.NewNop())
	session := &models.AuthSession{ID: "s1", UserID: 1, Static: true, User: json.RawMessage(`{"id":1}`)}

	status, err := svc.Status(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, SessionStatus{Authenticated: true, Static: true, UserID: 1}, *status)

	user, err := svc.LoggedUser(context.Background(), session, "10.0.0.1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(user))
	assert.Zero(t, dir.statusCalls)
}

func TestStatusOfBackendSession(t *testing.T) {
	dir := &fakeDirectory{}
	session := &models.AuthSession{ID: "s2", UserID: 9}

	svc := NewAccountService(dir, fakeChecker{}, zap.NewNop())
	status, err := svc.Status(context.Background(), session)
	require.NoError(t, err)
	assert.True(t, status.Backend)
	assert.JSONEq(t, `{"authenticated":true}`, string(status.Detail))

	expired := NewAccountService(dir, fakeChecker{err: &clients.APIError{Status: http.StatusUnauthorized}}, zap.NewNop())
	status, err = expired.Status(context.Background(), session)
	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	assert.False(t, status.Backend)

	down := NewAccountService(dir, fakeChecker{err: &clients.APIError{Status: http.StatusBadGateway}}, zap.NewNop())
	_, err = down.Status(context.Background(), session)
	var apiErr *clients.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestStatusWithoutSession(t *testing.T) {
	svc := NewAccountService(&fakeDirectory{}, fakeChecker{}, zap.NewNop())
	status, err := svc.Status(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, status.Authenticated)
}
