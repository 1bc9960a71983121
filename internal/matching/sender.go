package matching

import (
	"regexp"
	"strings"
)

var (
	deAtStart      = regexp.MustCompile(`(?i)^\s*\*{0,2}de:\*{0,2}\s*`)
	deAnywhere     = regexp.MustCompile(`(?i)\bde:\s*`)
	bracketEmail   = regexp.MustCompile(`<([^>]+@[^>]+)>`)
	standaloneMail = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)
)

// SenderEmail returns the address of the original sender of a forwarded thread:
// the bottom-most "De:" header. Lines starting with "De:" (optionally in bold)
// are preferred over inline headers. The result is lowercased.
func SenderEmail(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lines := strings.Split(text, "\n")

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !deAtStart.MatchString(line) {
			continue
		}
		// the bottom-most header decides even when it carries no address
		return emailIn(line)
	}

	for i := len(lines) - 1; i >= 0; i-- {
		loc := deAnywhere.FindStringIndex(lines[i])
		if loc == nil {
			continue
		}
		if email, ok := emailIn(lines[i][loc[1]:]); ok {
			return email, true
		}
	}
	return "", false
}

func emailIn(s string) (string, bool) {
	if m := bracketEmail.FindStringSubmatch(s); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1])), true
	}
	if m := standaloneMail.FindString(s); m != "" {
		return strings.ToLower(m), true
	}
	return "", false
}
