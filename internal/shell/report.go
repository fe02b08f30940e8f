package shell

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/atinyakov/QuizDesk/internal/errs"
)

// report prints err the way the user should see it. An AuthError also
// drops the prompt back to the signed-out state.
func (s *Shell) report(err error) {
	var (
		authErr       *errs.AuthError
		validationErr *errs.ValidationError
		notFoundErr   *errs.NotFoundError
		networkErr    *errs.NetworkError
		requestErr    *errs.RequestError
		logicErr      *errs.LogicError
	)

	switch {
	case errors.As(err, &authErr):
		s.user = ""
		s.page = nil
		s.printf("Session ended: %s. Please log in again.\n", authErr.Error())
	case errors.As(err, &validationErr):
		if len(validationErr.Fields) == 0 {
			s.printf("Invalid input: %s\n", validationErr.Error())
			return
		}
		s.println("Invalid input:")
		names := make([]string, 0, len(validationErr.Fields))
		for name := range validationErr.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s.printf("  %s: %s\n", name, validationErr.Field(name))
		}
	case errors.As(err, &notFoundErr):
		s.printf("Not found: %s\n", notFoundErr.Error())
	case errors.As(err, &networkErr):
		s.printf("Cannot reach the server (%v). Check your connection and try again.\n", networkErr.Err)
	case errors.As(err, &requestErr):
		s.printf("Request failed: %s. Please try again later.\n", requestErr.Message)
	case errors.As(err, &logicErr):
		s.log.Error("session contract violated", zap.Error(err))
		s.printf("Internal error: %v\n", err)
	default:
		s.printf("Error: %v\n", err)
	}
}
