package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/QuizDesk/internal/client/storage"
	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/models"
	"github.com/atinyakov/QuizDesk/internal/testserver"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// offline fails the test if the client touches the network.
func offline(t *testing.T) *http.Client {
	return &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL)
		return nil, errors.New("offline")
	})}
}

type fixture struct {
	backend *testserver.Backend
	server  *httptest.Server
	store   storage.TokenStore
	client  *Client
	quiz    models.Quiz
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	b := testserver.New(nil)
	b.AddUser("alice", "alice@example.com", "secret")
	quiz := b.AddQuiz("Go basics", "warm-up",
		testserver.QuestionSpec{Text: "Zero value of int?", Choices: []string{"0", "nil"}, Correct: 0},
		testserver.QuestionSpec{Text: "Keyword for goroutines?", Choices: []string{"async", "go"}, Correct: 1},
	)
	srv := b.Start()
	t.Cleanup(srv.Close)

	store := storage.NewFileStore(filepath.Join(t.TempDir(), "tokens.json"))
	c, err := New(srv.URL, store)
	require.NoError(t, err)

	return &fixture{backend: b, server: srv, store: store, client: c, quiz: quiz}
}

func (f *fixture) login(t *testing.T) models.Credentials {
	t.Helper()
	res, err := f.client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	return res.Credentials
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "://bad"} {
		_, err := New(raw, nil)
		assert.Error(t, err, raw)
	}
}

func TestNew_ResumesStoredSession(t *testing.T) {
	store := &storage.MemoryStore{}
	require.NoError(t, store.Save(models.Credentials{Access: "a", Refresh: "r"}))

	c, err := New("http://localhost:8000/", store)
	require.NoError(t, err)
	assert.True(t, c.Authenticated())
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
}

func TestLoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.client.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Profile.Username)
	assert.True(t, f.client.Authenticated())

	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, res.Credentials, stored)

	profile, err := f.client.FetchProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)

	f.client.Logout()
	assert.False(t, f.client.Authenticated())
	stored, err = f.store.Load()
	require.NoError(t, err)
	assert.True(t, stored.Empty())

	_, err = f.client.FetchProfile(ctx)
	var authErr *errs.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestLogin_BadPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Login(context.Background(), "alice", "wrong")
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
	assert.Equal(t, 0, f.backend.RefreshCalls())
	assert.False(t, f.client.Authenticated())
}

func TestLogin_BlankFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Login(context.Background(), "alice", "")
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "password")

	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Field("password"))
	assert.False(t, f.client.Authenticated())
}

func TestRequiredAuth_FailsLocally(t *testing.T) {
	c, err := New("http://backend.invalid", nil, WithHTTPClient(offline(t)))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.FetchProfile(ctx)
	assert.True(t, errs.IsAuth(err))
	_, err = c.FetchDashboard(ctx)
	assert.True(t, errs.IsAuth(err))
	_, err = c.SubmitAttempt(ctx, "6f1c2a52-6c1f-4b8b-9d0e-1b9f0e6e7a11", nil)
	assert.True(t, errs.IsAuth(err))
}

func TestRenewal_Transparent(t *testing.T) {
	f := newFixture(t)
	before := f.login(t)
	f.backend.ExpireAccessTokens()

	quiz, err := f.client.GetQuiz(context.Background(), f.quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, f.quiz.Title, quiz.Title)
	assert.Equal(t, 1, f.backend.RefreshCalls())

	after := f.client.Credentials()
	assert.NotEqual(t, before.Access, after.Access)
	assert.NotEqual(t, before.Refresh, after.Refresh, "backend rotates refresh tokens")

	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, after, stored)
}

func TestRenewal_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	f := newFixture(t)
	before := f.login(t)
	f.backend.KeepRefreshToken(true)
	f.backend.ExpireAccessTokens()

	_, err := f.client.FetchProfile(context.Background())
	require.NoError(t, err)

	after := f.client.Credentials()
	assert.NotEqual(t, before.Access, after.Access)
	assert.Equal(t, before.Refresh, after.Refresh)
}

func TestRenewal_NoRefreshToken(t *testing.T) {
	f := newFixture(t)
	f.client.creds = models.Credentials{Access: "stale"}

	_, err := f.client.FetchProfile(context.Background())
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 0, f.backend.RefreshCalls())
	assert.True(t, f.client.Credentials().Empty())
}

func TestRenewal_RefreshRejected(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.FailRefresh(true)
	f.backend.ExpireAccessTokens()

	_, err := f.client.FetchDashboard(context.Background())
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "renewal failed")
	assert.Equal(t, 1, f.backend.RefreshCalls())

	assert.False(t, f.client.Authenticated())
	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.True(t, stored.Empty())
}

func TestRenewal_SecondUnauthorizedEndsSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.RejectAllAccess(true)

	_, err := f.client.FetchProfile(context.Background())
	var authErr *errs.AuthError
	require.ErrorAs(t, err, &authErr)

	var reqErr *errs.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)

	assert.Equal(t, 1, f.backend.RefreshCalls(), "a rejected retry must not renew again")
	assert.False(t, f.client.Authenticated())
}

func TestRenewal_ConcurrentCallersShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.SetRefreshLatency(100 * time.Millisecond)
	f.backend.ExpireAccessTokens()

	const callers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.client.GetQuiz(context.Background(), f.quiz.ID)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.backend.RefreshCalls())
	assert.True(t, f.client.Authenticated())
}

func TestRenewal_OutlivesCanceledCaller(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.SetRefreshLatency(150 * time.Millisecond)
	f.backend.ExpireAccessTokens()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.client.FetchProfile(ctx)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	require.Eventually(t, func() bool {
		_, err := f.client.FetchProfile(context.Background())
		return err == nil
	}, time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, f.backend.RefreshCalls())
}

func TestNetworkError(t *testing.T) {
	boom := errors.New("connection refused")
	hc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	})}
	c, err := New("http://backend.invalid", nil, WithHTTPClient(hc))
	require.NoError(t, err)

	_, err = c.ListQuizzes(context.Background(), "")
	var netErr *errs.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "GET /quizzes/", netErr.Op)
	assert.ErrorIs(t, err, boom)
}

func TestRequestError_ServerFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.FailNext(http.MethodGet, "/quizzes/", http.StatusInternalServerError, "database unavailable")

	_, err := f.client.ListQuizzes(context.Background(), "")
	var reqErr *errs.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.Equal(t, "database unavailable", reqErr.Message)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.client.Register(ctx, RegisterRequest{
		Username: "bob", Email: "bob@example.com", Password: "pw", PasswordConfirmation: "pw",
	})
	require.NoError(t, err)
	assert.False(t, f.client.Authenticated(), "register does not log in")

	_, err = f.client.Login(ctx, "bob", "pw")
	require.NoError(t, err)
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		req       RegisterRequest
		wantMsg   string
		wantField string
	}{
		{
			name:      "field errors",
			req:       RegisterRequest{Username: "", Email: "nope", Password: "pw", PasswordConfirmation: "pw"},
			wantField: "email",
		},
		{
			name:    "password mismatch",
			req:     RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "a", PasswordConfirmation: "b"},
			wantMsg: "Passwords do not match",
		},
		{
			name:    "duplicate username",
			req:     RegisterRequest{Username: "alice", Email: "other@example.com", Password: "a", PasswordConfirmation: "a"},
			wantMsg: "Username already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.client.Register(context.Background(), tt.req)

			var vErr *errs.ValidationError
			require.ErrorAs(t, err, &vErr)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, vErr.Error())
			}
			if tt.wantField != "" {
				assert.NotEmpty(t, vErr.Field(tt.wantField))
			}
		})
	}
}
