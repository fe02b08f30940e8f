package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/models"
)

// Bounds on the number of questions the generator accepts.
const (
	MinGeneratedQuestions = 1
	MaxGeneratedQuestions = 7
)

type catalogResponse struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []models.Quiz `json:"results"`
}

// ListQuizzes returns one catalog page. An empty pageToken is the first
// page; otherwise pass a cursor from a previous page.
func (c *Client) ListQuizzes(ctx context.Context, pageToken string) (*models.CatalogPage, error) {
	target := pathQuizzes
	if pageToken != "" {
		// Only the query of a cursor is used, so the bearer token is never
		// sent to a host other than the configured backend.
		u, err := url.Parse(pageToken)
		if err != nil {
			return nil, errs.NewFieldError("page", "malformed page cursor")
		}
		if u.RawQuery != "" {
			target += "?" + u.RawQuery
		}
	}

	var resp catalogResponse
	if err := c.do(ctx, request{method: http.MethodGet, target: target, auth: authOptional}, &resp); err != nil {
		return nil, err
	}

	page := &models.CatalogPage{
		Items:      resp.Results,
		TotalCount: resp.Count,
		PageSize:   models.PageSize,
	}
	if resp.Next != nil {
		page.NextCursor = *resp.Next
	}
	if resp.Previous != nil {
		page.PreviousCursor = *resp.Previous
	}
	return page, nil
}

// GetQuiz fetches a quiz with its questions and choices.
func (c *Client) GetQuiz(ctx context.Context, id string) (*models.Quiz, error) {
	id, err := quizID(id)
	if err != nil {
		return nil, err
	}

	var quiz models.Quiz
	req := request{method: http.MethodGet, target: pathQuizzes + id + "/", auth: authOptional}
	if err := c.do(ctx, req, &quiz); err != nil {
		return nil, namedNotFound(err, id)
	}
	return &quiz, nil
}

type submitRequest struct {
	Answers []models.Answer `json:"answers"`
}

// SubmitAttempt sends the chosen answers for scoring.
func (c *Client) SubmitAttempt(ctx context.Context, id string, answers []models.Answer) (*models.ScoreResult, error) {
	id, err := quizID(id)
	if err != nil {
		return nil, err
	}
	if answers == nil {
		answers = []models.Answer{}
	}

	var result struct {
		Score *float64 `json:"score"`
	}
	req := request{
		method: http.MethodPost,
		target: pathQuizzes + id + "/submit/",
		body:   submitRequest{Answers: answers},
		auth:   authRequired,
	}
	if err := c.do(ctx, req, &result); err != nil {
		return nil, namedNotFound(err, id)
	}
	if result.Score == nil {
		return nil, fmt.Errorf("decode %s response: no score", req.op())
	}
	return &models.ScoreResult{Score: *result.Score}, nil
}

// GenerateRequest asks the backend to write a new quiz about Topic.
type GenerateRequest struct {
	Topic         string `json:"topic"`
	QuestionCount int    `json:"num_questions"`
}

// Validate checks the request before it is sent.
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return errs.NewFieldError("topic", "topic is required")
	}
	if r.QuestionCount < MinGeneratedQuestions || r.QuestionCount > MaxGeneratedQuestions {
		return errs.NewFieldError("num_questions",
			fmt.Sprintf("must be between %d and %d", MinGeneratedQuestions, MaxGeneratedQuestions))
	}
	return nil
}

// GenerateQuiz creates a quiz server-side and returns it.
func (c *Client) GenerateQuiz(ctx context.Context, r GenerateRequest) (*models.Quiz, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.Topic = strings.TrimSpace(r.Topic)

	var quiz models.Quiz
	req := request{method: http.MethodPost, target: pathGenerate, body: r, auth: authRequired}
	if err := c.do(ctx, req, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// FetchDashboard returns the user's aggregated statistics.
func (c *Client) FetchDashboard(ctx context.Context) (*models.DashboardSnapshot, error) {
	var raw json.RawMessage
	req := request{method: http.MethodGet, target: pathDashboard, auth: authRequired}
	if err := c.do(ctx, req, &raw); err != nil {
		return nil, err
	}

	var snap models.DashboardSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode dashboard: %w", err)
	}
	snap.Raw = raw
	return &snap, nil
}

// quizID normalizes a quiz id. Anything that is not a UUID cannot exist on
// the backend.
func quizID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", &errs.NotFoundError{Resource: "quiz", ID: id}
	}
	return parsed.String(), nil
}

func namedNotFound(err error, id string) error {
	var nf *errs.NotFoundError
	if errors.As(err, &nf) {
		nf.Resource = "quiz"
		nf.ID = id
	}
	return err
}
