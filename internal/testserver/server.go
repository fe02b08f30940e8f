// Package testserver is an in-memory implementation of the quiz backend's
// HTTP contract. It backs the client, session and shell tests and the local
// development stub.
package testserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/QuizDesk/internal/models"
)

type user struct {
	id       int
	username string
	email    string
	password string
}

type storedQuiz struct {
	quiz    models.Quiz
	correct map[string]string // question ID -> correct choice ID
}

type attempt struct {
	username  string
	quizID    string
	title     string
	score     float64
	correct   int
	wrong     int
	completed time.Time
}

type injected struct {
	status  int
	message string
}

// QuestionSpec describes a question to seed. Correct indexes Choices.
type QuestionSpec struct {
	Text    string
	Choices []string
	Correct int
}

// Backend holds the stub's state. All methods are safe for concurrent use.
type Backend struct {
	log    *zap.Logger
	secret []byte

	mu       sync.Mutex
	users    map[string]*user
	access   map[string]string // access token -> username
	refresh  map[string]string // refresh token -> username
	quizzes  []*storedQuiz
	attempts []attempt
	failures map[string]injected

	refreshCalls   atomic.Int64
	failRefresh    atomic.Bool
	rejectAll      atomic.Bool
	keepRefresh    atomic.Bool
	refreshLatency atomic.Int64
}

// New returns an empty backend.
func New(log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		log:      log,
		secret:   []byte(uuid.NewString()),
		users:    make(map[string]*user),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
		failures: make(map[string]injected),
	}
}

// Start serves b on a local httptest server. Callers Close it.
func (b *Backend) Start() *httptest.Server {
	return httptest.NewServer(b.Handler())
}

// AddUser registers an account directly.
func (b *Backend) AddUser(username, email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = &user{id: len(b.users) + 1, username: username, email: email, password: password}
}

// AddQuiz stores a quiz and returns it as clients will see it.
func (b *Backend) AddQuiz(title, description string, questions ...QuestionSpec) models.Quiz {
	sq := &storedQuiz{
		quiz: models.Quiz{
			ID:          uuid.NewString(),
			Title:       title,
			Description: description,
			CreatedAt:   time.Now().UTC().Truncate(time.Second),
		},
		correct: make(map[string]string),
	}
	for _, qs := range questions {
		q := models.Question{ID: uuid.NewString(), Text: qs.Text}
		for i, text := range qs.Choices {
			c := models.Choice{ID: uuid.NewString(), Text: text}
			q.Choices = append(q.Choices, c)
			if i == qs.Correct {
				sq.correct[q.ID] = c.ID
			}
		}
		sq.quiz.Questions = append(sq.quiz.Questions, q)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.quizzes = append(b.quizzes, sq)
	return sq.quiz
}

// Login mints a token pair for an existing user, bypassing HTTP.
func (b *Backend) Login(username string) models.Credentials {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mintLocked(username)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]string)
}

// FailRefresh makes the refresh endpoint reject every call.
func (b *Backend) FailRefresh(fail bool) { b.failRefresh.Store(fail) }

// RejectAllAccess makes every bearer-authenticated request fail with 401,
// including ones made with freshly renewed tokens.
func (b *Backend) RejectAllAccess(reject bool) { b.rejectAll.Store(reject) }

// KeepRefreshToken makes the refresh endpoint answer with an access token
// only, as a backend without rotation does.
func (b *Backend) KeepRefreshToken(keep bool) { b.keepRefresh.Store(keep) }

// SetRefreshLatency delays each refresh response.
func (b *Backend) SetRefreshLatency(d time.Duration) { b.refreshLatency.Store(int64(d)) }

// RefreshCalls counts hits on the refresh endpoint.
func (b *Backend) RefreshCalls() int { return int(b.refreshCalls.Load()) }

// FailNext makes the next request to method+path answer with status and an
// {"error": message} body.
func (b *Backend) FailNext(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = injected{status: status, message: message}
}

// Attempts returns the number of scored attempts stored for username.
func (b *Backend) Attempts(username string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, a := range b.attempts {
		if a.username == username {
			n++
		}
	}
	return n
}

func (b *Backend) takeFailure(r *http.Request) (injected, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := r.Method + " " + r.URL.Path
	f, ok := b.failures[key]
	if ok {
		delete(b.failures, key)
	}
	return f, ok
}

func (b *Backend) mintLocked(username string) models.Credentials {
	now := time.Now()
	sign := func(kind string, ttl time.Duration) string {
		claims := jwt.MapClaims{
			"token_type": kind,
			"sub":        username,
			"jti":        uuid.NewString(),
			"iat":        now.Unix(),
			"exp":        now.Add(ttl).Unix(),
		}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
		if err != nil {
			panic(fmt.Sprintf("testserver: sign token: %v", err))
		}
		return s
	}

	creds := models.Credentials{
		Access:  sign("access", 5*time.Minute),
		Refresh: sign("refresh", 24*time.Hour),
	}
	b.access[creds.Access] = username
	b.refresh[creds.Refresh] = username
	return creds
}

// validAccess resolves a bearer token. The token must be live and carry a
// valid signature.
func (b *Backend) validAccess(token string) (string, bool) {
	if b.rejectAll.Load() {
		return "", false
	}
	b.mu.Lock()
	username, ok := b.access[token]
	b.mu.Unlock()
	if !ok {
		return "", false
	}
	if _, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return b.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err != nil {
		return "", false
	}
	return username, true
}
