package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// AdminClient calls the backend Admin controller.
type AdminClient struct {
	base *BaseClient
}

// NewAdminClient returns client.
func NewAdminClient(base *BaseClient) *AdminClient {
	return &AdminClient{base: base}
}

func (c *AdminClient) raw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.base.Call(ctx, http.MethodGet, path, query, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// ReactDashboardData returns the KPI totals payload.
func (c *AdminClient) ReactDashboardData(ctx context.Context) ([]byte, error) {
	return c.raw(ctx, "/Admin/GetReactDashboardData", nil)
}

// DashboardGraphData returns the KPI graph payload.
func (c *AdminClient) DashboardGraphData(ctx context.Context) ([]byte, error) {
	return c.raw(ctx, "/Admin/GetDashboardGraphData", nil)
}

// OperatorCoverageRanking ranks operators by coverage inside an RSRP window.
func (c *AdminClient) OperatorCoverageRanking(ctx context.Context, min, max float64) ([]byte, error) {
	return c.raw(ctx, "/Admin/GetOperatorCoverageRanking", rsrpWindow(min, max))
}

// OperatorQualityRanking ranks operators by quality inside an RSRP window.
func (c *AdminClient) OperatorQualityRanking(ctx context.Context, min, max float64) ([]byte, error) {
	return c.raw(ctx, "/Admin/GetOperatorQualityRanking", rsrpWindow(min, max))
}

func rsrpWindow(min, max float64) url.Values {
	return url.Values{
		"min": {strconv.FormatFloat(min, 'f', -1, 64)},
		"max": {strconv.FormatFloat(max, 'f', -1, 64)},
	}
}

// AllUsers posts the filter object and returns the raw answer.
func (c *AdminClient) AllUsers(ctx context.Context, filters any) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.base.PostJSON(ctx, "/Admin/GetAllUsers", nil, filters, &out)
	return out, err
}

// Users lists users matching UserName/Mobile/Email. The backend wraps each
// row as {"ob_user": {...}}.
func (c *AdminClient) Users(ctx context.Context, params url.Values) ([]json.RawMessage, error) {
	body, err := c.raw(ctx, "/Admin/GetUsers", params)
	if err != nil {
		return nil, err
	}
	rows, err := DecodeList[struct {
		User json.RawMessage `json:"ob_user"`
	}](body)
	if err != nil {
		return nil, err
	}
	users := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		if len(row.User) > 0 {
			users = append(users, row.User)
		}
	}
	return users, nil
}

// User fetches one user; the backend expects a form with UserID and token.
func (c *AdminClient) User(ctx context.Context, id int64) (json.RawMessage, error) {
	var out json.RawMessage
	form := url.Values{"UserID": {strconv.FormatInt(id, 10)}, "token": {""}}
	if err := c.base.PostForm(ctx, "/Admin/GetUser", form, &out); err != nil {
		return nil, err
	}
	return UnwrapData(out), nil
}

// SaveUser creates or updates a user.
func (c *AdminClient) SaveUser(ctx context.Context, user json.RawMessage) (*Envelope, error) {
	var env Envelope
	err := c.base.PostJSON(ctx, "/Admin/SaveUserDetails", nil, user, &env)
	return &env, err
}

// DeleteUser deletes a user by id.
func (c *AdminClient) DeleteUser(ctx context.Context, id int64) (*Envelope, error) {
	var env Envelope
	err := c.base.PostJSON(ctx, "/Admin/DeleteUser", url.Values{"id": {strconv.FormatInt(id, 10)}}, nil, &env)
	return &env, err
}

// ResetUserPassword resets another user's password.
func (c *AdminClient) ResetUserPassword(ctx context.Context, payload json.RawMessage) (*Envelope, error) {
	var env Envelope
	err := c.base.PostJSON(ctx, "/Admin/UserResetPassword", nil, payload, &env)
	return &env, err
}

// ChangePassword changes the caller's password.
func (c *AdminClient) ChangePassword(ctx context.Context, payload json.RawMessage) (*Envelope, error) {
	var env Envelope
	err := c.base.PostJSON(ctx, "/Admin/ChangePassword", nil, payload, &env)
	return &env, err
}

// Sessions lists every drive-test session.
func (c *AdminClient) Sessions(ctx context.Context) ([]models.Session, error) {
	body, err := c.raw(ctx, "/Admin/GetSessions", nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Session](body)
}

// SessionsByDateRange lists sessions between two dates.
func (c *AdminClient) SessionsByDateRange(ctx context.Context, from, to string) ([]models.Session, error) {
	body, err := c.raw(ctx, "/Admin/GetSessionsByDateRange", url.Values{"startDate": {from}, "endDate": {to}})
	if err != nil {
		return nil, err
	}
	return DecodeList[models.Session](body)
}

// AllNetworkLogs lists logs across sessions (NetworkType, StartDate, EndDate,
// limit, page ...).
func (c *AdminClient) AllNetworkLogs(ctx context.Context, params url.Values) ([]models.NetworkLog, error) {
	body, err := c.raw(ctx, "/Admin/GetAllNetworkLogs", params)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.NetworkLog](body)
}

// DeleteSession removes a session by id.
func (c *AdminClient) DeleteSession(ctx context.Context, id int64) error {
	return c.base.Delete(ctx, "/Admin/DeleteSession/DeleteSession", url.Values{"id": {strconv.FormatInt(id, 10)}}, nil)
}
