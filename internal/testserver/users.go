package testserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/QuizDesk/internal/middleware"
)

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	fields := map[string][]string{}
	if req.Username == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	if req.Password == "" {
		fields["password"] = []string{"This field may not be blank."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[req.Username]
	if !ok || u.password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	creds := b.mintLocked(u.username)
	writeJSON(w, http.StatusOK, map[string]string{
		"access":   creds.Access,
		"refresh":  creds.Refresh,
		"username": u.username,
		"email":    u.email,
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	fields := map[string][]string{}
	if req.Username == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if req.Password == "" {
		fields["password"] = []string{"This field may not be blank."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	if req.Password != req.Password2 {
		writeError(w, http.StatusBadRequest, "Passwords do not match")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Username]; exists {
		writeError(w, http.StatusBadRequest, "Username already exists")
		return
	}
	for _, u := range b.users {
		if u.email == req.Email {
			writeError(w, http.StatusBadRequest, "Email already exists")
			return
		}
	}
	b.users[req.Username] = &user{
		id:       len(b.users) + 1,
		username: req.Username,
		email:    req.Email,
		password: req.Password,
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	if d := time.Duration(b.refreshLatency.Load()); d > 0 {
		time.Sleep(d)
	}

	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}
	if b.failRefresh.Load() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	username, ok := b.refresh[req.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}

	creds := b.mintLocked(username)
	if b.keepRefresh.Load() {
		delete(b.refresh, creds.Refresh)
		writeJSON(w, http.StatusOK, map[string]string{"access": creds.Access})
		return
	}
	// Rotation blacklists the presented refresh token.
	delete(b.refresh, req.Refresh)
	writeJSON(w, http.StatusOK, map[string]string{"access": creds.Access, "refresh": creds.Refresh})
}

func (b *Backend) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUserIDFromContext(r.Context())

	b.mu.Lock()
	u, ok := b.users[username]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id": u.id,
		"user": map[string]any{
			"id":       u.id,
			"username": u.username,
			"email":    u.email,
		},
		"bio": "",
	})
}
