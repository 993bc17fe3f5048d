package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clockout.agent/internal/core/model"
)

const apiPrefix = "/api/v1"

// Client contract for the attendance backend
type Client interface {
	Login(ctx context.Context) (Session, error)
	Session() Session
	FetchSites(ctx context.Context) ([]model.Site, error)
	FetchWorkers(ctx context.Context) ([]model.Worker, error)
	SubmitEvent(ctx context.Context, event EventUpload) (EventAck, error)
	SubmitEventsBulk(ctx context.Context, events []EventUpload) ([]EventAck, error)
}

// HTTPClient API client using HTTP
type HTTPClient struct {
	client   *http.Client
	baseURL  string
	username string
	password string

	mu      sync.Mutex
	session Session
}

// NewHTTPClient new HTTPClient
func NewHTTPClient(baseURL, username, password string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
	}
}

// Login authenticates with the backend's form-encoded login endpoint
// and swaps in the fresh session.
func (c *HTTPClient) Login(ctx context.Context) (Session, error) {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+apiPrefix+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Session{}, readAPIError(resp)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Session{}, fmt.Errorf("failed to decode login response: %w", err)
	}

	session := newSession(body.AccessToken, body.TokenType, body.User)

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	log.Ctx(ctx).Info().Str("user", body.User.Email).Msg("Authenticated with backend")
	return session, nil
}

// Session returns the current session value, possibly zero before the
// first login.
func (c *HTTPClient) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// FetchSites pulls the site roster, scoped to the authenticated
// organization when known.
func (c *HTTPClient) FetchSites(ctx context.Context) ([]model.Site, error) {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	path := "/sites"
	if session.User.OrganizationID != 0 {
		path = fmt.Sprintf("/sites?organization_id=%d", session.User.OrganizationID)
	}

	var dtos []siteDTO
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}

	sites := make([]model.Site, 0, len(dtos))
	for _, d := range dtos {
		sites = append(sites, d.toModel())
	}
	return sites, nil
}

// FetchWorkers pulls the worker roster, scoped to the authenticated
// organization when known.
func (c *HTTPClient) FetchWorkers(ctx context.Context) ([]model.Worker, error) {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	path := "/workers"
	if session.User.OrganizationID != 0 {
		path = fmt.Sprintf("/workers?organization_id=%d", session.User.OrganizationID)
	}

	var dtos []workerDTO
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}

	workers := make([]model.Worker, 0, len(dtos))
	for _, d := range dtos {
		workers = append(workers, d.toModel())
	}
	return workers, nil
}

// SubmitEvent sends one event and returns the backend's record of it.
func (c *HTTPClient) SubmitEvent(ctx context.Context, event EventUpload) (EventAck, error) {
	var ack EventAck
	if err := c.doJSON(ctx, http.MethodPost, "/events", event, &ack); err != nil {
		return EventAck{}, err
	}
	return ack, nil
}

// SubmitEventsBulk sends a whole batch in one request. The backend
// either accepts all of them or fails the request.
func (c *HTTPClient) SubmitEventsBulk(ctx context.Context, events []EventUpload) ([]EventAck, error) {
	var acks []EventAck
	if err := c.doJSON(ctx, http.MethodPost, "/events/bulk", events, &acks); err != nil {
		return nil, err
	}
	return acks, nil
}

// ensureSession returns a usable session, logging in when the held one
// is missing or about to expire.
func (c *HTTPClient) ensureSession(ctx context.Context) (Session, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session.Valid(time.Now()) {
		return session, nil
	}
	return c.Login(ctx)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	session, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", path, err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
