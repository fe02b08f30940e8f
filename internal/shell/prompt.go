package shell

import (
	"strings"
)

// prompt prints label and reads one trimmed line. ok is false at end of
// input.
func (s *Shell) prompt(label string) (string, bool) {
	s.printf("%s", label)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// promptYesNo asks until it gets yes or no. End of input counts as no.
func (s *Shell) promptYesNo(label string) bool {
	for {
		answer, ok := s.prompt(label)
		if !ok {
			return false
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		default:
			s.println("Please answer yes or no.")
		}
	}
}
