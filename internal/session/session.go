// Package session walks one quiz attempt: it loads the quiz, records one
// choice per question, gates forward navigation on the current question
// being answered and submits the answers for scoring.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/models"
)

// State is the lifecycle stage of a Session.
type State int

const (
	Loading State = iota
	Ready
	Submitting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// QuizService is the part of the API client a Session needs.
type QuizService interface {
	GetQuiz(ctx context.Context, id string) (*models.Quiz, error)
	SubmitAttempt(ctx context.Context, id string, answers []models.Answer) (*models.ScoreResult, error)
}

// Session is the in-progress state of answering one quiz. It is safe for
// concurrent use; the lock is not held across network calls.
type Session struct {
	svc    QuizService
	quizID string
	log    *zap.Logger

	mu      sync.Mutex
	state   State
	busy    bool
	quiz    *models.Quiz
	index   int
	answers map[string]string // question ID -> choice ID
	score   *models.ScoreResult
	err     error
	// submitFailed is set when Failed was reached from Submitting.
	submitFailed bool
}

// New returns a Session in Loading for quizID. Call Load next.
func New(svc QuizService, quizID string, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		svc:     svc,
		quizID:  quizID,
		log:     log.With(zap.String("quiz_id", quizID)),
		state:   Loading,
		answers: make(map[string]string),
	}
}

// Load fetches the quiz. It is valid in Loading, and in Failed to retry.
// On success the session is Ready at the first question with no answers.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return &errs.LogicError{Op: "load", Reason: "a load is already in progress"}
	}
	if s.state != Loading && s.state != Failed {
		st := s.state
		s.mu.Unlock()
		return wrongState("load", st)
	}
	s.state = Loading
	s.busy = true
	s.mu.Unlock()

	quiz, err := s.svc.GetQuiz(ctx, s.quizID)
	if err == nil && (quiz == nil || len(quiz.Questions) == 0) {
		err = errs.NewFieldError("questions", "quiz has no questions")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.fail(err, false)
		return err
	}
	s.quiz = quiz
	s.index = 0
	s.answers = make(map[string]string)
	s.score = nil
	s.err = nil
	s.state = Ready
	s.log.Debug("quiz loaded", zap.Int("questions", len(quiz.Questions)))
	return nil
}

// SelectAnswer records choiceID for the current question, replacing any
// earlier choice.
func (s *Session) SelectAnswer(questionID, choiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return wrongState("select answer", s.state)
	}
	q := s.quiz.Questions[s.index]
	if q.ID != questionID {
		return &errs.LogicError{Op: "select answer", Reason: fmt.Sprintf("question %q is not the current question", questionID)}
	}
	if !q.HasChoice(choiceID) {
		return &errs.LogicError{Op: "select answer", Reason: fmt.Sprintf("choice %q does not belong to question %q", choiceID, questionID)}
	}
	s.answers[questionID] = choiceID
	return nil
}

// GoNext advances one question. It does nothing on the last question and
// fails with IncompleteAnswerError while the current one is unanswered.
func (s *Session) GoNext() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return wrongState("next", s.state)
	}
	if s.index == len(s.quiz.Questions)-1 {
		return nil
	}
	if err := s.requireCurrentAnswered(); err != nil {
		return err
	}
	s.index++
	return nil
}

// GoPrevious moves back one question unless already on the first.
func (s *Session) GoPrevious() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready {
		return wrongState("previous", s.state)
	}
	if s.index > 0 {
		s.index--
	}
	return nil
}

// Submit sends the answers in question order. Unanswered questions are
// omitted. The current question must be answered.
func (s *Session) Submit(ctx context.Context) (*models.ScoreResult, error) {
	s.mu.Lock()
	if s.state != Ready {
		st := s.state
		s.mu.Unlock()
		return nil, wrongState("submit", st)
	}
	if err := s.requireCurrentAnswered(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	answers := s.orderedAnswersLocked()
	s.state = Submitting
	s.mu.Unlock()

	result, err := s.svc.SubmitAttempt(ctx, s.quizID, answers)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fail(err, true)
		return nil, err
	}
	s.score = result
	s.state = Completed
	s.log.Info("attempt scored", zap.Float64("score", result.Score), zap.Int("answered", len(answers)))
	return result, nil
}

// Resume returns a session whose submit failed to Ready, keeping its
// answers and position so the submit can be retried.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Failed || !s.submitFailed {
		return &errs.LogicError{Op: "resume", Reason: "only a failed submit can be resumed"}
	}
	s.state = Ready
	s.err = nil
	s.submitFailed = false
	return nil
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QuizID returns the id the session was created for.
func (s *Session) QuizID() string { return s.quizID }

// Quiz returns the loaded quiz, or nil before a successful Load.
func (s *Session) Quiz() *models.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

// CurrentIndex returns the zero-based position of the question on screen.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// CurrentQuestion returns the question on screen. ok is false until the
// quiz is loaded.
func (s *Session) CurrentQuestion() (q models.Question, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiz == nil {
		return models.Question{}, false
	}
	return s.quiz.Questions[s.index], true
}

// SelectedChoice returns the recorded choice for questionID.
func (s *Session) SelectedChoice(questionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.answers[questionID]
	return id, ok
}

// Answers returns the recorded answers in question order.
func (s *Session) Answers() []models.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedAnswersLocked()
}

// Progress returns how many questions are answered out of the total.
func (s *Session) Progress() (answered, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quiz == nil {
		return 0, 0
	}
	return len(s.answers), len(s.quiz.Questions)
}

// Score returns the result once Completed.
func (s *Session) Score() (*models.ScoreResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score, s.score != nil
}

// Err returns the error that moved the session to Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) requireCurrentAnswered() error {
	q := s.quiz.Questions[s.index]
	if _, ok := s.answers[q.ID]; !ok {
		return &errs.IncompleteAnswerError{QuestionID: q.ID, Index: s.index}
	}
	return nil
}

func (s *Session) orderedAnswersLocked() []models.Answer {
	if s.quiz == nil {
		return nil
	}
	out := make([]models.Answer, 0, len(s.answers))
	for _, q := range s.quiz.Questions {
		if choice, ok := s.answers[q.ID]; ok {
			out = append(out, models.Answer{QuestionID: q.ID, ChoiceID: choice})
		}
	}
	return out
}

func (s *Session) fail(err error, duringSubmit bool) {
	s.err = err
	s.state = Failed
	s.submitFailed = duringSubmit
	during := Loading
	if duringSubmit {
		during = Submitting
	}
	s.log.Warn("quiz session failed", zap.Stringer("during", during), zap.Error(err))
}

func wrongState(op string, st State) error {
	return &errs.LogicError{Op: op, Reason: "not allowed while " + st.String()}
}
