package shell

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/QuizDesk/internal/client/api"
	"github.com/atinyakov/QuizDesk/internal/errs"
	"github.com/atinyakov/QuizDesk/internal/models"
)

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		s.println("Usage: login <username>")
		return nil
	}
	password, ok := s.prompt("Password: ")
	if !ok {
		return nil
	}

	res, err := s.client.Login(ctx, args[0], password)
	if errs.IsAuth(err) {
		s.printf("Login failed: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	s.user = res.Profile.Username
	if s.user == "" {
		s.user = args[0]
	}
	s.printf("Logged in as %s\n", s.user)
	return nil
}

func (s *Shell) register(ctx context.Context, args []string) error {
	if len(args) != 2 {
		s.println("Usage: register <username> <email>")
		return nil
	}
	password, ok := s.prompt("Password: ")
	if !ok {
		return nil
	}
	confirm, ok := s.prompt("Repeat password: ")
	if !ok {
		return nil
	}

	err := s.client.Register(ctx, api.RegisterRequest{
		Username:             args[0],
		Email:                args[1],
		Password:             password,
		PasswordConfirmation: confirm,
	})
	if err != nil {
		return err
	}
	s.printf("Account created. Log in with: login %s\n", args[0])
	return nil
}

func (s *Shell) whoami(ctx context.Context) error {
	if !s.client.Authenticated() {
		s.println("Not logged in.")
		return nil
	}
	profile, err := s.client.FetchProfile(ctx)
	if err != nil {
		return err
	}
	s.user = profile.Username
	s.printf("%s <%s>\n", profile.Username, profile.Email)

	if exp, err := s.client.Credentials().AccessExpiry(); err == nil {
		if left := time.Until(exp).Round(time.Second); left > 0 {
			s.printf("Access token expires in %s\n", left)
		} else {
			s.println("Access token has expired; it will be renewed on the next request.")
		}
	}
	return nil
}

func (s *Shell) listQuizzes(ctx context.Context, cursor string) error {
	page, err := s.client.ListQuizzes(ctx, cursor)
	if err != nil {
		return err
	}
	s.page = page

	if len(page.Items) == 0 {
		s.println("No quizzes yet.")
		return nil
	}
	s.printf("Quizzes (%d in total):\n", page.TotalCount)
	for _, q := range page.Items {
		s.printf("  %s  %s", q.ID, q.Title)
		if n := len(q.Questions); n > 0 {
			s.printf(" (%d questions)", n)
		}
		s.println()
	}

	var hints []string
	if page.PreviousCursor != "" {
		hints = append(hints, "'prev'")
	}
	if page.NextCursor != "" {
		hints = append(hints, "'next'")
	}
	if len(hints) > 0 {
		s.printf("More: %s\n", strings.Join(hints, " or "))
	}
	return nil
}

func (s *Shell) generate(ctx context.Context, args []string) error {
	if len(args) < 2 {
		s.println("Usage: generate <count> <topic...>")
		return nil
	}
	count, err := strconv.Atoi(args[0])
	if err != nil {
		s.println("Usage: generate <count> <topic...>")
		return nil
	}

	s.println("Generating, this can take a while...")
	quiz, err := s.client.GenerateQuiz(ctx, api.GenerateRequest{
		Topic:         strings.Join(args[1:], " "),
		QuestionCount: count,
	})
	if err != nil {
		return err
	}
	s.printf("Created %q (%s) with %d questions.\n", quiz.Title, quiz.ID, len(quiz.Questions))

	if s.promptYesNo("Take it now? (yes/no): ") {
		return s.take(ctx, quiz.ID)
	}
	return nil
}

func (s *Shell) dashboard(ctx context.Context) error {
	snap, err := s.client.FetchDashboard(ctx)
	if err != nil {
		return err
	}

	s.printf("Dashboard for %s\n", snap.UserName)
	s.printf("  Attempts:      %d\n", snap.TotalAttempts)
	s.printf("  Average score: %s\n", formatScore(snap.AvgScore))
	s.printf("  Answers:       %d correct, %d wrong\n", snap.CorrectAnswers, snap.WrongAnswers)

	if len(snap.PerQuiz) > 0 {
		s.println("Per quiz:")
		for _, q := range snap.PerQuiz {
			s.printf("  %-30s %s over %d attempt(s)\n", q.QuizTitle, formatScore(q.AvgScore), q.Attempts)
		}
	}
	if len(snap.RecentAttempts) > 0 {
		s.println("Recent:")
		for _, a := range snap.RecentAttempts {
			s.printf("  %s  %-30s %s\n", a.CompletedAt.Local().Format(time.DateTime), a.QuizTitle, formatScore(a.Score))
		}
	}
	return nil
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64) + "%"
}

// choiceLabel renders a choice line, marking the recorded answer.
func choiceLabel(n int, c models.Choice, selected bool) string {
	mark := " "
	if selected {
		mark = "*"
	}
	return mark + " " + strconv.Itoa(n) + ") " + c.Text
}
