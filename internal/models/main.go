// Package models defines the core data structures exchanged with the quiz
// backend.
package models

import (
	"encoding/json"
	"time"
)

// PageSize is the fixed number of quizzes per catalog page.
const PageSize = 6

// Profile is the summary of the signed-in user.
type Profile struct {
	ID       int    `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Quiz is a titled, ordered list of questions.
type Quiz struct {
	// ID is the backend UUID of the quiz.
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Questions   []Question `json:"questions"`
}

// Question is one multiple-choice question. Which choice is correct is
// known only to the backend.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices"`
}

// HasChoice reports whether choiceID belongs to the question.
func (q Question) HasChoice(choiceID string) bool {
	for _, c := range q.Choices {
		if c.ID == choiceID {
			return true
		}
	}
	return false
}

// Choice is one selectable option of a question.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Answer pairs a question with the chosen option, in the submit wire format.
type Answer struct {
	QuestionID string `json:"question"`
	ChoiceID   string `json:"choice"`
}

// ScoreResult is the backend's verdict on a submitted attempt.
type ScoreResult struct {
	// Score is a percentage in [0, 100].
	Score float64 `json:"score"`
}

// CatalogPage is one page of the quiz catalog.
type CatalogPage struct {
	Items      []Quiz
	TotalCount int
	// NextCursor and PreviousCursor are opaque; empty means no such page.
	NextCursor     string
	PreviousCursor string
	PageSize       int
}

// RecentAttempt is one of the latest scored attempts on the dashboard.
type RecentAttempt struct {
	ID          string    `json:"id"`
	QuizTitle   string    `json:"quiz_title"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// QuizAverage is the average score of the user on one quiz.
type QuizAverage struct {
	QuizTitle string  `json:"quiz_title"`
	AvgScore  float64 `json:"avg_score"`
	Attempts  int     `json:"attempts"`
}

// DashboardSnapshot holds aggregated statistics. Raw keeps the payload
// exactly as received.
type DashboardSnapshot struct {
	UserName       string          `json:"user_name"`
	TotalAttempts  int             `json:"total_attempts"`
	AvgScore       float64         `json:"avg_score"`
	RecentAttempts []RecentAttempt `json:"recent_attempts"`
	CorrectAnswers int             `json:"correct_answers"`
	WrongAnswers   int             `json:"wrong_answers"`
	PerQuiz        []QuizAverage   `json:"per_quiz_list"`

	Raw json.RawMessage `json:"-"`
}
