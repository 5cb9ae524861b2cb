package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInteractionRequired is returned when an MFA code is needed but the
// caller forbids prompting.
var ErrInteractionRequired = errors.New("mfa code required but running non-interactive")

// TerminalPrompter reads the code from an interactive terminal. There is no
// timeout: the process blocks until the operator answers or the context is
// canceled by the caller.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p *TerminalPrompter) PromptCode(_ context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprintf(p.Out, "%s: ", prompt); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return "", errors.New("no code entered")
	}
	return code, nil
}

// NonInteractivePrompter fails instead of prompting.
type NonInteractivePrompter struct{}

func (NonInteractivePrompter) PromptCode(context.Context, string) (string, error) {
	return "", ErrInteractionRequired
}
