package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/QuizDesk/internal/client/storage"
	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/models"
	"github.com/atinyakov/QuizDesk/internal/testserver"
)

func TestListQuizzes_Pagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		f.backend.AddQuiz(fmt.Sprintf("Quiz %d", i), "")
	}
	ctx := context.Background()

	first, err := f.client.ListQuizzes(ctx, "")
	require.NoError(t, err)
	assert.Len(t, first.Items, models.PageSize)
	assert.Equal(t, 8, first.TotalCount)
	assert.Equal(t, models.PageSize, first.PageSize)
	assert.Empty(t, first.PreviousCursor)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.client.ListQuizzes(ctx, first.NextCursor)
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.Empty(t, second.NextCursor)
	require.NotEmpty(t, second.PreviousCursor)

	back, err := f.client.ListQuizzes(ctx, second.PreviousCursor)
	require.NoError(t, err)
	assert.Equal(t, first.Items[0].ID, back.Items[0].ID)
}

func TestListQuizzes_CursorStaysOnBackend(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		f.backend.AddQuiz(fmt.Sprintf("Quiz %d", i), "")
	}
	f.login(t)

	page, err := f.client.ListQuizzes(context.Background(), "https://elsewhere.example/quizzes/?page=2")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestListQuizzes_BadCursor(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.ListQuizzes(context.Background(), "%zz")
	var vErr *errs.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = f.client.ListQuizzes(context.Background(), "?page=9")
	var nf *errs.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGetQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// anonymous reads are allowed
	quiz, err := f.client.GetQuiz(ctx, f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "Zero value of int?", quiz.Questions[0].Text)
	assert.Len(t, quiz.Questions[1].Choices, 2)

	missing := uuid.NewString()
	_, err = f.client.GetQuiz(ctx, missing)
	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, missing, nf.ID)
	var reqErr *errs.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
}

func TestGetQuiz_MalformedIDNeverHitsNetwork(t *testing.T) {
	c, err := New("http://backend.invalid", nil, WithHTTPClient(offline(t)))
	require.NoError(t, err)

	_, err = c.GetQuiz(context.Background(), "not-a-uuid")
	var nf *errs.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "not-a-uuid", nf.ID)
}

func TestSubmitAttempt(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	answers := []models.Answer{
		{QuestionID: f.quiz.Questions[0].ID, ChoiceID: f.quiz.Questions[0].Choices[0].ID},
		{QuestionID: f.quiz.Questions[1].ID, ChoiceID: f.quiz.Questions[1].Choices[0].ID},
	}
	res, err := f.client.SubmitAttempt(ctx, f.quiz.ID, answers)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, res.Score, 0.001)
	assert.Equal(t, 1, f.backend.Attempts("alice"))

	_, err = f.client.SubmitAttempt(ctx, uuid.NewString(), answers)
	var nf *errs.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestSubmitAttempt_NoScore(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "no score field", body: `{"detail":"ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusCreated,
					Body:       io.NopCloser(strings.NewReader(tt.body)),
					Header:     make(http.Header),
				}, nil
			})}
			store := &storage.MemoryStore{}
			require.NoError(t, store.Save(models.Credentials{Access: "a", Refresh: "r"}))
			c, err := New("http://backend.invalid", store, WithHTTPClient(hc))
			require.NoError(t, err)

			res, err := c.SubmitAttempt(context.Background(), uuid.NewString(), nil)
			assert.ErrorContains(t, err, "no score")
			assert.Nil(t, res)
		})
	}
}

func TestGenerateRequest_Validate(t *testing.T) {
	tests := []struct {
		name  string
		req   GenerateRequest
		field string
	}{
		{name: "blank topic", req: GenerateRequest{Topic: "  ", QuestionCount: 3}, field: "topic"},
		{name: "too few", req: GenerateRequest{Topic: "Go", QuestionCount: 0}, field: "num_questions"},
		{name: "too many", req: GenerateRequest{Topic: "Go", QuestionCount: 8}, field: "num_questions"},
		{name: "ok", req: GenerateRequest{Topic: "Go", QuestionCount: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *errs.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Field(tt.field))
		})
	}
}

func TestGenerateQuiz_LocalValidationSkipsNetwork(t *testing.T) {
	c, err := New("http://backend.invalid", nil, WithHTTPClient(offline(t)))
	require.NoError(t, err)

	_, err = c.GenerateQuiz(context.Background(), GenerateRequest{Topic: "Go", QuestionCount: 9})
	var vErr *errs.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestGenerateQuiz(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	quiz, err := f.client.GenerateQuiz(ctx, GenerateRequest{Topic: " Channels ", QuestionCount: 3})
	require.NoError(t, err)
	assert.Equal(t, "Channels Quiz", quiz.Title)
	assert.Len(t, quiz.Questions, 3)

	fetched, err := f.client.GetQuiz(ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, fetched.ID)
}

func TestGenerateQuiz_ServerRejection(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.FailNext(http.MethodPost, "/quizzes/generate-quiz/", http.StatusBadRequest, "Topic is required")

	_, err := f.client.GenerateQuiz(context.Background(), GenerateRequest{Topic: "Go", QuestionCount: 2})
	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Topic is required", vErr.Error())
	var reqErr *errs.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
}

func TestFetchDashboard(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	extra := f.backend.AddQuiz("Maps", "", testserver.QuestionSpec{Text: "Nil map read?", Choices: []string{"zero", "panic"}, Correct: 0})
	_, err := f.client.SubmitAttempt(ctx, extra.ID, []models.Answer{
		{QuestionID: extra.Questions[0].ID, ChoiceID: extra.Questions[0].Choices[0].ID},
	})
	require.NoError(t, err)

	snap, err := f.client.FetchDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.UserName)
	assert.Equal(t, 1, snap.TotalAttempts)
	assert.InDelta(t, 100.0, snap.AvgScore, 0.001)
	assert.Equal(t, 1, snap.CorrectAnswers)
	require.Len(t, snap.RecentAttempts, 1)
	assert.Equal(t, "Maps", snap.RecentAttempts[0].QuizTitle)
	require.Len(t, snap.PerQuiz, 1)
	assert.Contains(t, string(snap.Raw), "per_quiz_list")
}
