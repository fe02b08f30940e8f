// Package shell is the interactive front end: a line-oriented REPL over the
// API client and quiz sessions.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/QuizDesk/internal/client/api"
	"github.com/atinyakov/QuizDesk/internal/models"
)

const helpText = `Available commands:
  help                          show this help
  login <username>              sign in (password is prompted)
  register <username> <email>   create an account
  logout                        forget the stored session
  whoami                        show the signed-in user
  quizzes                       list the first page of quizzes
  next | prev                   move through the quiz catalog
  take <quiz-id>                answer a quiz
  generate <count> <topic...>   create a quiz about a topic (1-7 questions)
  dashboard                     show your statistics
  exit                          leave`

// Shell runs commands read line by line. It is not safe for concurrent use.
type Shell struct {
	client *api.Client
	log    *zap.Logger

	in  *bufio.Scanner
	out io.Writer

	// user is the name shown in the prompt, when known.
	user string
	page *models.CatalogPage
}

// New returns a Shell over client. A nil log discards everything.
func New(client *api.Client, log *zap.Logger) *Shell {
	if log == nil {
		log = zap.NewNop()
	}
	return &Shell{client: client, log: log}
}

// Run reads commands from in until exit or end of input.
func (s *Shell) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.in = bufio.NewScanner(in)
	s.out = out

	s.printf("QuizDesk (%s)\n", s.client.BaseURL())
	if s.client.Authenticated() {
		s.println("Resumed your previous session.")
	}
	s.println("Type 'help' for a list of commands.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok := s.prompt(s.promptLabel())
		if !ok {
			s.println()
			return s.in.Err()
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		command := strings.ToLower(args[0])
		s.log.Debug("command", zap.String("name", command))
		if command == "exit" || command == "quit" {
			s.println("Bye")
			return nil
		}
		if err := s.dispatch(ctx, command, args[1:]); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			s.report(err)
		}
	}
}

func (s *Shell) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "help":
		s.println(helpText)
		return nil
	case "login":
		return s.login(ctx, args)
	case "register":
		return s.register(ctx, args)
	case "logout":
		s.client.Logout()
		s.user = ""
		s.println("Logged out")
		return nil
	case "whoami":
		return s.whoami(ctx)
	case "quizzes":
		return s.listQuizzes(ctx, "")
	case "next":
		if s.page == nil || s.page.NextCursor == "" {
			s.println("No next page.")
			return nil
		}
		return s.listQuizzes(ctx, s.page.NextCursor)
	case "prev":
		if s.page == nil || s.page.PreviousCursor == "" {
			s.println("No previous page.")
			return nil
		}
		return s.listQuizzes(ctx, s.page.PreviousCursor)
	case "take":
		if len(args) != 1 {
			s.println("Usage: take <quiz-id>")
			return nil
		}
		return s.take(ctx, args[0])
	case "generate":
		return s.generate(ctx, args)
	case "dashboard":
		return s.dashboard(ctx)
	default:
		s.println("Unknown command. Type 'help' for a list of commands.")
		return nil
	}
}

func (s *Shell) promptLabel() string {
	if !s.client.Authenticated() {
		return "quizdesk> "
	}
	if s.user == "" {
		return "quizdesk(signed in)> "
	}
	return fmt.Sprintf("quizdesk(%s)> ", s.user)
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}
