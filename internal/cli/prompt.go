package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// ErrEmptySecret is returned when the user entered nothing at a secret prompt.
var ErrEmptySecret = errors.New("no value entered")

// ReadSecret prompts for a secret on the terminal without echoing it.
func ReadSecret(stdin io.ReadCloser, stdout io.Writer, prompt string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           stdin,
		Stdout:          stdout,
		Stderr:          stdout,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return "", fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	secret, err := rl.ReadPassword(prompt)
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", fmt.Errorf("prompt interrupted")
		}
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return normalizeSecret(string(secret))
}

// normalizeSecret trims what terminals and clipboards add around a pasted
// value, including surrounding quotes and a "name=" prefix copied from a
// cookie jar.
func normalizeSecret(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if name, value, ok := strings.Cut(s, "="); ok && strings.EqualFold(name, "x-ms-RefreshTokenCredential") {
		s = value
	}
	if s == "" {
		return "", ErrEmptySecret
	}
	return s, nil
}
