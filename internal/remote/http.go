package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sethvargo/go-retry"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/avoskresensky/fieldsync/internal/logging"
)

// ClientConfig configures the HTTP transport shared by all entity
// repositories.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration

	// RetryAttempts bounds transparent retries of transient fetch
	// failures. Creates and updates are never retried here; the
	// pending-mutation flush owns mutation retry.
	RetryAttempts uint64
	RetryBase     time.Duration

	// Authorize, when set, decorates every outbound request (e.g. adds an
	// Authorization header). The engine itself never manages sessions.
	Authorize func(*http.Request)
}

// Client is the HTTP backend transport. A circuit breaker sits in front of
// every call so a dead backend fails fast instead of stacking timeouts.
type Client struct {
	baseURL   string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	authorize func(*http.Request)
	attempts  uint64
	retryBase time.Duration
	log       logging.Logger
}

// NewClient builds the shared transport. The breaker opens after a 60%
// failure rate over at least 10 calls and probes again after 30 seconds;
// 4xx responses do not count as failures because they indicate a request
// problem, not an unreachable backend.
func NewClient(cfg ClientConfig, log logging.Logger) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      &http.Client{Timeout: cfg.Timeout},
		authorize: cfg.Authorize,
		attempts:  cfg.RetryAttempts,
		retryBase: cfg.RetryBase,
		log:       log,
	}
	if c.http.Timeout == 0 {
		c.http.Timeout = 15 * time.Second
	}
	if c.retryBase == 0 {
		c.retryBase = 500 * time.Millisecond
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "fieldsync-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && !se.Retryable()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return c
}

// NewAPI wires one HTTP repository per entity type onto the shared
// transport, using conventional REST collection paths.
func NewAPI(c *Client) *API {
	return &API{
		Companies:  &httpRepo[CompanyRecord]{c: c, entity: "company", path: "/companies"},
		Users:      &httpRepo[UserRecord]{c: c, entity: "user", path: "/users"},
		Clients:    &httpRepo[ClientRecord]{c: c, entity: "client", path: "/clients"},
		SubClients: &httpRepo[SubClientRecord]{c: c, entity: "subclient", path: "/subclients"},
		TaskTypes:  &httpRepo[TaskTypeRecord]{c: c, entity: "tasktype", path: "/task-types"},
		Projects:   &httpRepo[ProjectRecord]{c: c, entity: "project", path: "/projects"},
		Tasks:      &httpRepo[TaskRecord]{c: c, entity: "task", path: "/tasks"},
		Events:     &httpRepo[EventRecord]{c: c, entity: "event", path: "/events"},
		Pinger:     c,
	}
}

// Ping probes the backend health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	return err
}

// do executes one HTTP round-trip through the circuit breaker and maps
// failures into the transport error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		c.authorize(req)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(b), 200)}
		}
		return b, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		return nil, err
	}
	return data, nil
}

// doRetry wraps do with bounded fibonacci backoff for transient failures.
// Only used for fetches, which are idempotent.
func (c *Client) doRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	if c.attempts == 0 {
		return c.do(ctx, method, path, query, nil)
	}

	var data []byte
	backoff := retry.WithMaxRetries(c.attempts, retry.NewFibonacci(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		data, err = c.do(ctx, method, path, query, nil)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	return data, err
}

func transient(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Retryable()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// httpRepo implements Repository[R] against conventional REST routes:
// GET path, GET path/{id}, POST path, PATCH path/{id}, DELETE path/{id}.
type httpRepo[R any] struct {
	c      *Client
	entity string
	path   string
}

func (r *httpRepo[R]) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CallError{Entity: r.entity, Op: op, Err: err}
}

func (r *httpRepo[R]) FetchAll(ctx context.Context, scope Scope) ([]R, error) {
	q := url.Values{}
	if scope.CompanyID != "" {
		q.Set("company_id", scope.CompanyID)
	}
	if scope.UserID != "" {
		q.Set("user_id", scope.UserID)
	}
	if scope.ProjectID != "" {
		q.Set("project_id", scope.ProjectID)
	}
	if scope.Since != nil {
		q.Set("changed_since", scope.Since.UTC().Format(time.RFC3339))
	}

	data, err := r.c.doRetry(ctx, http.MethodGet, r.path, q)
	if err != nil {
		return nil, r.wrap("fetch_all", err)
	}

	var records []R
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, r.wrap("fetch_all", fmt.Errorf("%w: %v", ErrDecode, err))
	}
	return records, nil
}

func (r *httpRepo[R]) FetchOne(ctx context.Context, id string) (R, error) {
	var rec R
	data, err := r.c.doRetry(ctx, http.MethodGet, r.path+"/"+url.PathEscape(id), nil)
	if err != nil {
		return rec, r.wrap("fetch_one", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, r.wrap("fetch_one", fmt.Errorf("%w: %v", ErrDecode, err))
	}
	return rec, nil
}

func (r *httpRepo[R]) Create(ctx context.Context, rec R) (R, error) {
	var created R
	data, err := r.c.do(ctx, http.MethodPost, r.path, nil, rec)
	if err != nil {
		return created, r.wrap("create", err)
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return created, r.wrap("create", fmt.Errorf("%w: %v", ErrDecode, err))
	}
	return created, nil
}

func (r *httpRepo[R]) Update(ctx context.Context, id string, fields map[string]any) error {
	_, err := r.c.do(ctx, http.MethodPatch, r.path+"/"+url.PathEscape(id), nil, fields)
	return r.wrap("update", err)
}

func (r *httpRepo[R]) Delete(ctx context.Context, id string) error {
	_, err := r.c.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil)
	return r.wrap("delete", err)
}
