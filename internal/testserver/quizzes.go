package testserver

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/QuizDesk/internal/middleware"
	"github.com/atinyakov/QuizDesk/internal/models"
)

const pageSize = models.PageSize

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Invalid page."})
			return
		}
		page = n
	}

	b.mu.Lock()
	all := make([]models.Quiz, 0, len(b.quizzes))
	for _, sq := range b.quizzes {
		all = append(all, sq.quiz)
	}
	b.mu.Unlock()

	start := (page - 1) * pageSize
	if start > 0 && start >= len(all) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Invalid page."})
		return
	}
	end := min(start+pageSize, len(all))

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	pageURL := func(n int) *string {
		s := fmt.Sprintf("%s://%s/quizzes/", scheme, r.Host)
		if n > 1 {
			s += "?page=" + strconv.Itoa(n)
		}
		return &s
	}
	var next, prev *string
	if end < len(all) {
		next = pageURL(page + 1)
	}
	if page > 1 {
		prev = pageURL(page - 1)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(all),
		"next":     next,
		"previous": prev,
		"results":  all[start:end],
	})
}

func (b *Backend) findQuiz(id string) (*storedQuiz, bool) {
	for _, sq := range b.quizzes {
		if sq.quiz.ID == id {
			return sq, true
		}
	}
	return nil, false
}

func (b *Backend) handleDetail(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	sq, ok := b.findQuiz(chi.URLParam(r, "id"))
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Quiz not found")
		return
	}
	writeJSON(w, http.StatusOK, sq.quiz)
}

func (b *Backend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUserIDFromContext(r.Context())

	var req struct {
		Answers []models.Answer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	sq, ok := b.findQuiz(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	correct := 0
	for _, a := range req.Answers {
		want, known := sq.correct[a.QuestionID]
		if !known {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		if a.ChoiceID == want {
			correct++
		}
	}
	score := 0.0
	if total := len(sq.quiz.Questions); total > 0 {
		score = float64(correct) / float64(total) * 100
	}
	b.attempts = append(b.attempts, attempt{
		username:  username,
		quizID:    sq.quiz.ID,
		title:     sq.quiz.Title,
		score:     score,
		correct:   correct,
		wrong:     len(req.Answers) - correct,
		completed: time.Now().UTC(),
	})
	writeJSON(w, http.StatusCreated, map[string]float64{"score": score})
}

func (b *Backend) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic        string `json:"topic"`
		NumQuestions *int   `json:"num_questions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "Topic is required")
		return
	}
	n := 5
	if req.NumQuestions != nil {
		n = *req.NumQuestions
	}
	if n < 1 || n > 7 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"num_questions": {"Ensure this value is between 1 and 7."},
		})
		return
	}

	specs := make([]QuestionSpec, 0, n)
	for i := 1; i <= n; i++ {
		specs = append(specs, QuestionSpec{
			Text:    fmt.Sprintf("%s question %d?", req.Topic, i),
			Choices: []string{"Option A", "Option B", "Option C", "Option D"},
			Correct: (i - 1) % 4,
		})
	}
	quiz := b.AddQuiz(req.Topic+" Quiz", "Generated quiz about "+req.Topic, specs...)
	writeJSON(w, http.StatusCreated, quiz)
}

func (b *Backend) handleDashboard(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUserIDFromContext(r.Context())

	b.mu.Lock()
	var mine []attempt
	for _, a := range b.attempts {
		if a.username == username {
			mine = append(mine, a)
		}
	}
	b.mu.Unlock()

	var total float64
	correct, wrong := 0, 0
	type agg struct {
		sum      float64
		attempts int
	}
	perQuiz := map[string]*agg{}
	for _, a := range mine {
		total += a.score
		correct += a.correct
		wrong += a.wrong
		if perQuiz[a.title] == nil {
			perQuiz[a.title] = &agg{}
		}
		perQuiz[a.title].sum += a.score
		perQuiz[a.title].attempts++
	}
	avg := 0.0
	if len(mine) > 0 {
		avg = total / float64(len(mine))
	}

	sort.SliceStable(mine, func(i, j int) bool { return mine[i].completed.After(mine[j].completed) })
	recent := []map[string]any{}
	for i, a := range mine {
		if i == 5 {
			break
		}
		recent = append(recent, map[string]any{
			"id":           fmt.Sprintf("%s-%d", a.quizID, i),
			"quiz_title":   a.title,
			"score":        a.score,
			"completed_at": a.completed.Format(time.RFC3339Nano),
		})
	}

	perQuizList := []map[string]any{}
	for title, a := range perQuiz {
		perQuizList = append(perQuizList, map[string]any{
			"quiz_title": title,
			"avg_score":  math.Round(a.sum/float64(a.attempts)*100) / 100,
			"attempts":   a.attempts,
		})
	}
	sort.Slice(perQuizList, func(i, j int) bool {
		return perQuizList[i]["avg_score"].(float64) > perQuizList[j]["avg_score"].(float64)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"user_name":       username,
		"total_attempts":  len(mine),
		"avg_score":       avg,
		"recent_attempts": recent,
		"correct_answers": correct,
		"wrong_answers":   wrong,
		"per_quiz_list":   perQuizList,
	})
}
