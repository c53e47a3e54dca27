package clients

import (
	"context"
	"encoding/json"
	"net/http"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// HomeClient calls the backend Home controller (login and account flows).
type HomeClient struct {
	base *BaseClient
}

// NewHomeClient returns client.
func NewHomeClient(base *BaseClient) *HomeClient {
	return &HomeClient{base: base}
}

// Login posts credentials. The backend answers 200 with success=false for
// bad credentials; the returned cookies carry the backend session.
func (c *HomeClient) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, []models.UpstreamCookie, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.base.Call(ctx, http.MethodPost, "/Home/UserLogin", nil, body, nil)
	if err != nil {
		return nil, nil, err
	}
	var out models.LoginResponse
	if err := resp.Decode(&out); err != nil {
		return nil, nil, err
	}
	cookies := make([]models.UpstreamCookie, 0, len(resp.Cookies))
	for _, ck := range resp.Cookies {
		cookies = append(cookies, models.UpstreamCookie{Name: ck.Name, Value: ck.Value})
	}
	return &out, cookies, nil
}

// Logout ends the backend session.
func (c *HomeClient) Logout(ctx context.Context) error {
	return c.base.PostJSON(ctx, "/Home/Logout", nil, nil, nil)
}

func (c *HomeClient) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.base.PostJSON(ctx, path, nil, payload, &out)
	return out, err
}

// LoggedUser returns the backend's view of the logged in user.
func (c *HomeClient) LoggedUser(ctx context.Context, ip string) (json.RawMessage, error) {
	return c.post(ctx, "/Home/GetLoggedUser", map[string]string{"ip": ip})
}

// ForgotPassword starts the reset flow for an email.
func (c *HomeClient) ForgotPassword(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/Home/GetUserForgotPassword", payload)
}

// ResetPassword completes the reset flow.
func (c *HomeClient) ResetPassword(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return c.post(ctx, "/Home/ForgotResetPassword", payload)
}

// StateInfo returns the state master list.
func (c *HomeClient) StateInfo(ctx context.Context) (json.RawMessage, error) {
	return c.post(ctx, "/Home/GetStateIformation", nil)
}

// MasterUserTypes returns the user type master list.
func (c *HomeClient) MasterUserTypes(ctx context.Context) (json.RawMessage, error) {
	return c.post(ctx, "/Home/GetMasterUserTypes", nil)
}

// AuthStatus reports the backend's auth status for the replayed cookies.
func (c *HomeClient) AuthStatus(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.base.GetJSON(ctx, "/api/auth/status", nil, &out)
	return out, err
}
