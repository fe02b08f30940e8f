// Package api is the credentialed HTTP client for the quiz backend. It owns
// the access/refresh token pair and renews an expired access token at most
// once per call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atinyakov/QuizDesk/internal/client/storage"
	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/models"
)

const (
	pathLogin     = "/users/login/"
	pathRegister  = "/users/register/"
	pathRefresh   = "/users/api/token/refresh/"
	pathProfile   = "/users/profile/"
	pathQuizzes   = "/quizzes/"
	pathGenerate  = "/quizzes/generate-quiz/"
	pathDashboard = "/quizzes/dashboard/stats/"

	maxBodySize = 10 << 20
)

// authMode says whether a request carries the bearer token.
type authMode int

const (
	// authNone is for login, register and refresh.
	authNone authMode = iota
	// authOptional attaches the token when one is held.
	authOptional
	// authRequired fails locally with AuthError when no token is held.
	authRequired
)

// Client performs every call to the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	store   storage.TokenStore
	log     *zap.Logger

	mu    sync.RWMutex
	creds models.Credentials

	// renewals lets at most one refresh call run per Client.
	renewals singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. Timeouts belong there.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a Client for baseURL and resumes any session held in store.
// A nil store keeps credentials in memory only.
func New(baseURL string, store storage.TokenStore, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if store == nil {
		store = &storage.MemoryStore{}
	}

	c := &Client{
		baseURL: baseURL,
		http:    http.DefaultClient,
		store:   store,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	creds, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	c.creds = creds
	if creds.Complete() {
		c.log.Debug("resumed stored session")
	}
	return c, nil
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Credentials returns a copy of the current token pair.
func (c *Client) Credentials() models.Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// Authenticated reports whether a token pair is held.
func (c *Client) Authenticated() bool {
	return c.Credentials().Complete()
}

func (c *Client) setCredentials(creds models.Credentials) error {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return c.store.Save(creds)
}

// clearCredentials drops the pair. When onlyIf is non-empty the pair is
// kept if its access token has changed since the caller observed it.
func (c *Client) clearCredentials(reason, onlyIf string) {
	c.mu.Lock()
	if onlyIf != "" && c.creds.Access != onlyIf {
		c.mu.Unlock()
		return
	}
	c.creds = models.Credentials{}
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		c.log.Error("failed to clear stored credentials", zap.Error(err))
	}
	c.log.Warn("credentials cleared", zap.String("reason", reason))
}

// request describes one logical call.
type request struct {
	method string
	// target is a path relative to the base URL, query included.
	target string
	body   any
	auth   authMode
}

func (r request) op() string {
	return r.method + " " + r.target
}

// do runs req, renewing the access token once on 401, and decodes a 2xx
// body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", req.op(), err)
		}
		payload = b
	}
	requestID := uuid.NewString()

	if req.auth == authNone {
		status, body, err := c.send(ctx, req, payload, "", requestID)
		if err != nil {
			return err
		}
		return decodeResponse(req, status, body, out)
	}

	creds := c.Credentials()
	if req.auth == authRequired && creds.Access == "" {
		return &errs.AuthError{Message: "not logged in"}
	}

	status, body, err := c.send(ctx, req, payload, creds.Access, requestID)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		return decodeResponse(req, status, body, out)
	}

	c.log.Debug("access token rejected", zap.String("op", req.op()), zap.String("request_id", requestID))
	fresh, err := c.renew(ctx, creds.Access)
	if err != nil {
		return err
	}

	// Exactly one retry. A second 401 ends the session without renewing.
	status, body, err = c.send(ctx, req, payload, fresh.Access, requestID)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		c.clearCredentials("renewed token rejected", fresh.Access)
		return &errs.AuthError{
			Message: "credentials rejected after renewal",
			Err:     errs.NewRequestError(status, serverMessage(body), body),
		}
	}
	return decodeResponse(req, status, body, out)
}

// send performs a single HTTP exchange and returns the status and body.
func (c *Client) send(ctx context.Context, req request, payload []byte, access, requestID string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s: %w", req.op(), err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("op", req.op()),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return 0, nil, &errs.NetworkError{Op: req.op(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, &errs.NetworkError{Op: req.op(), Err: err}
	}

	c.log.Debug("request",
		zap.String("op", req.op()),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("took", time.Since(start)),
	)
	return resp.StatusCode, data, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// renew returns credentials whose access token differs from stale, calling
// the refresh endpoint at most once across all concurrent callers.
func (c *Client) renew(ctx context.Context, stale string) (models.Credentials, error) {
	v, err, shared := c.renewals.Do("refresh", func() (any, error) {
		current := c.Credentials()
		// Someone renewed after our request went out.
		if current.Access != "" && current.Access != stale {
			return current, nil
		}
		if current.Refresh == "" {
			c.clearCredentials("no refresh token", "")
			return nil, &errs.AuthError{Message: "no refresh token held"}
		}

		// The refresh outlives the caller that happened to start it.
		fresh, err := c.refresh(context.WithoutCancel(ctx), current.Refresh)
		if err != nil {
			c.clearCredentials("token renewal failed", "")
			return nil, &errs.AuthError{Message: "token renewal failed", Err: err}
		}
		if err := c.setCredentials(fresh); err != nil {
			c.log.Error("failed to persist renewed credentials", zap.Error(err))
		}
		c.log.Info("access token renewed")
		return fresh, nil
	})
	if err != nil {
		return models.Credentials{}, err
	}
	if shared {
		c.log.Debug("joined in-flight token renewal")
	}
	return v.(models.Credentials), nil
}

// refresh exchanges a refresh token for a new pair. It never recurses into
// renewal.
func (c *Client) refresh(ctx context.Context, refreshToken string) (models.Credentials, error) {
	var tokens tokenResponse
	req := request{method: http.MethodPost, target: pathRefresh, body: refreshRequest{Refresh: refreshToken}, auth: authNone}
	if err := c.do(ctx, req, &tokens); err != nil {
		return models.Credentials{}, err
	}
	if tokens.Access == "" {
		return models.Credentials{}, errors.New("refresh response has no access token")
	}
	if tokens.Refresh == "" {
		tokens.Refresh = refreshToken
	}
	return models.Credentials{Access: tokens.Access, Refresh: tokens.Refresh}, nil
}
