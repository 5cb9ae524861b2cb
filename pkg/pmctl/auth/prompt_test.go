package auth

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalPrompter(t *testing.T) {
	var out bytes.Buffer
	p := &TerminalPrompter{In: strings.NewReader("  123456\n"), Out: &out}

	code, err := p.PromptCode(context.Background(), "Enter code")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
	assert.Equal(t, "Enter code: ", out.String())
}

func TestTerminalPrompter_LastLineWithoutNewline(t *testing.T) {
	p := &TerminalPrompter{In: strings.NewReader("123456"), Out: &bytes.Buffer{}}

	code, err := p.PromptCode(context.Background(), "Enter code")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)
}

func TestTerminalPrompter_EmptyInput(t *testing.T) {
	p := &TerminalPrompter{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}

	_, err := p.PromptCode(context.Background(), "Enter code")
	require.Error(t, err)
}

func TestNonInteractivePrompter(t *testing.T) {
	_, err := NonInteractivePrompter{}.PromptCode(context.Background(), "Enter code")
	assert.ErrorIs(t, err, ErrInteractionRequired)
}
