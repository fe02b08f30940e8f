package shell

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/session"
)

const takeHint = "Type a choice number, n (next), p (previous), s (submit) or q (quit)."

// take walks one quiz attempt. An AuthError is returned so the caller can
// end the session; other failures are reported in place.
func (s *Shell) take(ctx context.Context, quizID string) error {
	sess := session.New(s.client, quizID, s.log)
	if err := sess.Load(ctx); err != nil {
		return err
	}

	quiz := sess.Quiz()
	s.printf("\n%s\n", quiz.Title)
	if quiz.Description != "" {
		s.println(quiz.Description)
	}
	s.printf("%d questions. %s\n", len(quiz.Questions), takeHint)

	for {
		switch sess.State() {
		case session.Completed:
			score, _ := sess.Score()
			s.printf("Score: %s\n", formatScore(score.Score))
			return nil
		case session.Failed:
			input, ok := s.prompt("Submit failed. r (retry) or q (quit)> ")
			if !ok || strings.EqualFold(input, "q") {
				s.println("Quiz abandoned.")
				return nil
			}
			if !strings.EqualFold(input, "r") {
				continue
			}
			if err := sess.Resume(); err != nil {
				return err
			}
			if err := s.submit(ctx, sess); err != nil {
				return err
			}
			continue
		}

		s.showQuestion(sess)
		input, ok := s.prompt("> ")
		if !ok {
			s.println("Quiz abandoned.")
			return nil
		}

		switch strings.ToLower(input) {
		case "":
			continue
		case "n":
			s.reportStep(sess.GoNext())
		case "p":
			s.reportStep(sess.GoPrevious())
		case "s":
			if err := s.submit(ctx, sess); err != nil {
				return err
			}
		case "r":
			s.println("Nothing to retry.")
		case "q":
			s.println("Quiz abandoned.")
			return nil
		default:
			s.choose(sess, input)
		}
	}
}

func (s *Shell) showQuestion(sess *session.Session) {
	q, _ := sess.CurrentQuestion()
	answered, total := sess.Progress()
	selected, _ := sess.SelectedChoice(q.ID)

	s.printf("\nQuestion %d/%d (%d answered): %s\n", sess.CurrentIndex()+1, total, answered, q.Text)
	for i, c := range q.Choices {
		s.println(choiceLabel(i+1, c, c.ID == selected))
	}
}

func (s *Shell) choose(sess *session.Session, input string) {
	q, _ := sess.CurrentQuestion()
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(q.Choices) {
		s.println(takeHint)
		return
	}
	s.reportStep(sess.SelectAnswer(q.ID, q.Choices[n-1].ID))
}

// submit sends the attempt. Only an AuthError escapes; anything else leaves
// the session Ready or Failed and is reported here.
func (s *Shell) submit(ctx context.Context, sess *session.Session) error {
	_, err := sess.Submit(ctx)
	if errs.IsAuth(err) {
		return err
	}
	s.reportStep(err)
	return nil
}

// reportStep prints a failed step of the attempt.
func (s *Shell) reportStep(err error) {
	if err == nil {
		return
	}
	var incomplete *errs.IncompleteAnswerError
	if errors.As(err, &incomplete) {
		s.printf("Answer question %d before moving on.\n", incomplete.Index+1)
		return
	}
	s.report(err)
}
