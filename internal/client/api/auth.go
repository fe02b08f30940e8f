package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/models"
)

// LoginResult is what a successful login yields.
type LoginResult struct {
	Credentials models.Credentials
	Profile     models.Profile
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Login exchanges a username and password for a token pair and stores it.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var resp loginResponse
	req := request{
		method: http.MethodPost,
		target: pathLogin,
		body:   loginRequest{Username: username, Password: password},
		auth:   authNone,
	}
	if err := c.do(ctx, req, &resp); err != nil {
		// A rejected login form is a failed login; the fields stay reachable.
		var vErr *errs.ValidationError
		if errors.As(err, &vErr) {
			return nil, &errs.AuthError{Message: vErr.Error(), Err: vErr}
		}
		return nil, err
	}

	creds := models.Credentials{Access: resp.Access, Refresh: resp.Refresh}
	if !creds.Complete() {
		return nil, &errs.AuthError{Message: "login response is missing tokens"}
	}
	if err := c.setCredentials(creds); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}

	return &LoginResult{
		Credentials: creds,
		Profile:     models.Profile{Username: resp.Username, Email: resp.Email},
	}, nil
}

// RegisterRequest carries the sign-up form.
type RegisterRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password2"`
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, r RegisterRequest) error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	req := request{method: http.MethodPost, target: pathRegister, body: r, auth: authNone}
	return c.do(ctx, req, nil)
}

// Logout forgets the token pair. There is no server call.
func (c *Client) Logout() {
	c.clearCredentials("logout", "")
}

type profileResponse struct {
	ID   int `json:"id"`
	User struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
}

// FetchProfile returns the signed-in user's profile.
func (c *Client) FetchProfile(ctx context.Context) (*models.Profile, error) {
	var resp profileResponse
	req := request{method: http.MethodGet, target: pathProfile, auth: authRequired}
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &models.Profile{
		ID:       resp.User.ID,
		Username: resp.User.Username,
		Email:    resp.User.Email,
	}, nil
}
