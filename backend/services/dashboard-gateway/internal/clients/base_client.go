package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// APIError is returned for every non-2xx backend answer.
type APIError struct {
	Status   int
	Message  string
	Endpoint string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s: status %d - %s", e.Endpoint, e.Status, e.Message)
}

// Envelope is the backend's {Status, Message, Data} wrapper.
type Envelope struct {
	Status  int             `json:"Status"`
	Message string          `json:"Message"`
	Data    json.RawMessage `json:"Data"`
}

// OK reports Status == 1.
func (e Envelope) OK() bool { return e.Status == 1 }

// Response is a completed backend call.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	Cookies     []*http.Cookie
	Header      http.Header
}

// IsJSON reports whether the body is declared as JSON.
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	return err == nil && (mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"))
}

// Decode unmarshals a JSON body into dst; 204 and empty bodies are no-ops.
func (r *Response) Decode(dst any) error {
	if dst == nil || r.Status == http.StatusNoContent || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, dst)
}

type cookieKey struct{}

// WithCookies attaches backend cookies to ctx; every call made with the
// returned context replays them.
func WithCookies(ctx context.Context, cookies []models.UpstreamCookie) context.Context {
	return context.WithValue(ctx, cookieKey{}, cookies)
}

func cookiesFrom(ctx context.Context) []models.UpstreamCookie {
	cookies, _ := ctx.Value(cookieKey{}).([]models.UpstreamCookie)
	return cookies
}

// BaseClient performs calls against the backend base URL.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *BaseClient) buildURL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		path = c.baseURL + path
	}
	if len(query) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + query.Encode()
}

// Do executes HTTP request and returns status/body. A body without an
// explicit Content-Type header is sent as JSON.
func (c *BaseClient) Do(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string) (int, []byte, error) {
	resp, err := c.send(ctx, method, path, query, body, headers)
	if err != nil {
		return 0, nil, err
	}
	return resp.Status, resp.Body, nil
}

func (c *BaseClient) send(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, */*")
	for _, ck := range cookiesFrom(ctx) {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
		Cookies:     resp.Cookies(),
		Header:      resp.Header,
	}, nil
}

// Call executes the request and turns non-2xx answers into *APIError.
func (c *BaseClient) Call(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string) (*Response, error) {
	resp, err := c.send(ctx, method, path, query, body, headers)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", path, err)
	}
	if resp.Status < 200 || resp.Status > 299 {
		return nil, &APIError{Status: resp.Status, Message: errorMessage(resp), Endpoint: path}
	}
	return resp, nil
}

func errorMessage(resp *Response) string {
	var body struct {
		Message  string `json:"message"`
		MessageU string `json:"Message"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.MessageU != "" {
			return body.MessageU
		}
	}
	if text := http.StatusText(resp.Status); text != "" {
		return text
	}
	return "Unknown error"
}

// GetJSON performs a GET and decodes the answer into dst.
func (c *BaseClient) GetJSON(ctx context.Context, path string, query url.Values, dst any) error {
	resp, err := c.Call(ctx, http.MethodGet, path, query, nil, nil)
	if err != nil {
		return err
	}
	return resp.Decode(dst)
}

// PostJSON sends payload as JSON and decodes the answer into dst. A nil
// payload sends no body.
func (c *BaseClient) PostJSON(ctx context.Context, path string, query url.Values, payload, dst any) error {
	var body []byte
	if payload != nil {
		var err error
		if raw, ok := payload.(json.RawMessage); ok {
			body = raw
		} else if body, err = json.Marshal(payload); err != nil {
			return err
		}
	}
	resp, err := c.Call(ctx, http.MethodPost, path, query, body, nil)
	if err != nil {
		return err
	}
	return resp.Decode(dst)
}

// PostForm sends a url-encoded form.
func (c *BaseClient) PostForm(ctx context.Context, path string, form url.Values, dst any) error {
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	resp, err := c.Call(ctx, http.MethodPost, path, nil, []byte(form.Encode()), headers)
	if err != nil {
		return err
	}
	return resp.Decode(dst)
}

// PostMultipart sends a prepared multipart body with its boundary header.
func (c *BaseClient) PostMultipart(ctx context.Context, path string, body []byte, contentType string, dst any) error {
	resp, err := c.Call(ctx, http.MethodPost, path, nil, body, map[string]string{"Content-Type": contentType})
	if err != nil {
		return err
	}
	return resp.Decode(dst)
}

// Delete performs a DELETE and decodes the answer into dst.
func (c *BaseClient) Delete(ctx context.Context, path string, query url.Values, dst any) error {
	resp, err := c.Call(ctx, http.MethodDelete, path, query, nil, nil)
	if err != nil {
		return err
	}
	return resp.Decode(dst)
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
