package testserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/atinyakov/QuizDesk/internal/middleware"
)

// Handler returns the backend's router.
//
// Routes:
//
//	POST /users/login/               → login
//	POST /users/register/            → register
//	POST /users/api/token/refresh/   → refresh
//	GET  /users/profile/             → profile (auth)
//	GET  /quizzes/                   → list
//	GET  /quizzes/{id}/              → detail
//	POST /quizzes/{id}/submit/       → submit (auth)
//	POST /quizzes/generate-quiz/     → generate (auth)
//	GET  /quizzes/dashboard/stats/   → dashboard (auth)
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(b.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(b.injectFailures)

	optional := middleware.BearerAuth(b.validAccess, false)
	required := middleware.BearerAuth(b.validAccess, true)

	r.Route("/users", func(r chi.Router) {
		r.Post("/login/", b.handleLogin)
		r.Post("/register/", b.handleRegister)
		r.Post("/api/token/refresh/", b.handleRefresh)
		r.With(required).Get("/profile/", b.handleProfile)
	})

	r.Route("/quizzes", func(r chi.Router) {
		r.With(optional).Get("/", b.handleList)
		r.With(required).Post("/generate-quiz/", b.handleGenerate)
		r.With(required).Get("/dashboard/stats/", b.handleDashboard)
		r.With(optional).Get("/{id}/", b.handleDetail)
		r.With(required).Post("/{id}/submit/", b.handleSubmit)
	})

	return r
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f, ok := b.takeFailure(r); ok {
			writeJSON(w, f.status, map[string]string{"error": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
