package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
	"github.com/stardeck/stardeck/internal/session"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; Timeout is ignored when set
	Logger     logger.Logger
}

// Client implements model.Backend over the backend's JSON HTTP API.
// Authenticated endpoints read the bearer token from the Session it was built with.
type Client struct {
	base    *url.URL
	http    *http.Client
	session *session.Session
	log     logger.Logger
}

var _ model.Backend = (*Client)(nil)

// Request describes one HTTP call. Method defaults to GET; Body, when non-nil,
// is encoded as JSON; Token, when non-empty, is sent as a bearer token.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Token  string
}

// New creates a Client for the API rooted at cfg.BaseURL.
func New(cfg Config, sess *session.Session) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("apiclient: base URL is empty")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("apiclient: unsupported scheme %q", base.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = model.DefaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if sess == nil {
		sess = session.New()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		base:    base,
		http:    httpClient,
		session: sess,
		log:     log,
	}, nil
}

// Session returns the session this client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// Do issues one request and returns the raw JSON body of a 2xx response.
// Failures are one of ErrNetworkUnavailable, *RequestFailedError or *DecodeFailedError.
func (c *Client) Do(ctx context.Context, r Request) (json.RawMessage, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(r.Path, r.Query), body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: new request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("api request failed",
			logger.String("method", method),
			logger.String("path", r.Path),
			logger.String("request_id", requestID),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err))
		return nil, &networkError{cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &networkError{cause: err}
	}

	c.log.Debug("api request",
		logger.String("method", method),
		logger.String("path", r.Path),
		logger.String("request_id", requestID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestFailedError{
			Status: resp.StatusCode,
			Detail: responseDetail(resp.StatusCode, resp.Status, data),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, &DecodeFailedError{Cause: errors.New("response body is not valid JSON")}
	}
	return json.RawMessage(data), nil
}

// responseDetail extracts the "detail" string from an error body, falling back
// to the reason phrase of the status line, then to the standard status text.
func responseDetail(status int, statusLine string, body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
			return detail
		}
	}
	if phrase := strings.TrimSpace(strings.TrimPrefix(statusLine, strconv.Itoa(status))); phrase != "" {
		return phrase
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// call performs a request and unmarshals the JSON result into dest.
func (c *Client) call(ctx context.Context, r Request, dest any) error {
	raw, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return &DecodeFailedError{Cause: err}
	}
	return nil
}

// authed returns r with the session's bearer token attached.
func (c *Client) authed(r Request) Request {
	r.Token = c.session.Token()
	return r
}

func (c *Client) Dashboard(ctx context.Context) (model.DashboardSummary, error) {
	var result model.DashboardSummary
	err := c.call(ctx, Request{Path: "/dashboard/"}, &result)
	return result, err
}

func (c *Client) ActiveRefining(ctx context.Context) ([]model.RefiningJob, error) {
	var result []model.RefiningJob
	err := c.call(ctx, Request{Path: "/refining/active"}, &result)
	return result, err
}

func (c *Client) RefiningHistory(ctx context.Context, limit, offset int) ([]model.CompletedRefiningJob, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprint(offset))
	}
	var result []model.CompletedRefiningJob
	err := c.call(ctx, Request{Path: "/refining/history", Query: q}, &result)
	return result, err
}

func (c *Client) MarketMaterials(ctx context.Context) ([]model.MaterialMarket, error) {
	var result []model.MaterialMarket
	err := c.call(ctx, Request{Path: "/market/materials"}, &result)
	return result, err
}

// Login authenticates and, on success, signs the session in.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.Token, error) {
	var result model.Token
	if err := c.call(ctx, Request{Method: http.MethodPost, Path: "/auth/login", Body: creds}, &result); err != nil {
		return model.Token{}, err
	}
	if err := c.session.SignIn(result); err != nil {
		return model.Token{}, err
	}
	c.log.Info("signed in", logger.String("user", result.User.Username), logger.String("role", result.User.Role))
	return result, nil
}

func (c *Client) Me(ctx context.Context) (model.User, error) {
	var result model.User
	err := c.call(ctx, c.authed(Request{Path: "/auth/me"}), &result)
	return result, err
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var result []model.User
	err := c.call(ctx, c.authed(Request{Path: "/auth/users"}), &result)
	return result, err
}

func (c *Client) Register(ctx context.Context, in model.NewUser) (model.User, error) {
	if in.Role == "" {
		in.Role = model.RoleMember
	}
	var result model.User
	err := c.call(ctx, c.authed(Request{Method: http.MethodPost, Path: "/auth/register", Body: in}), &result)
	return result, err
}

func (c *Client) ResetPassword(ctx context.Context, userID int, newPassword string) error {
	return c.call(ctx, c.authed(Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/auth/reset-password/%d", userID),
		Body:   model.PasswordReset{NewPassword: newPassword},
	}), nil)
}

func (c *Client) ChangePassword(ctx context.Context, in model.PasswordChange) error {
	return c.call(ctx, c.authed(Request{Method: http.MethodPost, Path: "/auth/change-password", Body: in}), nil)
}

func (c *Client) HistoryEvents(ctx context.Context, filter model.HistoryFilter) ([]model.HistoryEvent, error) {
	q := url.Values{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q.Set("search", s)
	}
	if filter.Tag != "" {
		q.Set("tag", filter.Tag)
	}
	var result []model.HistoryEvent
	err := c.call(ctx, c.authed(Request{Path: "/stats/history", Query: q}), &result)
	return result, err
}

func (c *Client) CreateHistoryEvent(ctx context.Context, in model.HistoryEventInput) (model.HistoryEvent, error) {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if in.CrewMembers == nil {
		in.CrewMembers = []int{}
	}
	var result model.HistoryEvent
	err := c.call(ctx, c.authed(Request{Method: http.MethodPost, Path: "/stats/history", Body: in}), &result)
	return result, err
}

func (c *Client) DeleteHistoryEvent(ctx context.Context, id int) error {
	return c.call(ctx, c.authed(Request{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/stats/history/%d", id),
	}), nil)
}

func (c *Client) HistoryTags(ctx context.Context) ([]string, error) {
	var result struct {
		Tags []string `json:"tags"`
	}
	err := c.call(ctx, c.authed(Request{Path: "/stats/history/tags/available"}), &result)
	return result.Tags, err
}

func (c *Client) AvailableCrew(ctx context.Context) ([]model.CrewMember, error) {
	var result []model.CrewMember
	err := c.call(ctx, c.authed(Request{Path: "/stats/history/users/available"}), &result)
	return result, err
}
