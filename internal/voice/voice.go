// Package voice defines the listen/speak contract for the interactive agent
// and a console implementation of it.
package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// IO is the input/output surface of the interactive agent. A speech backend
// and the console implementation below both satisfy it.
type IO interface {
	// Listen blocks for the next utterance. It returns ErrTimeout or
	// ErrUnrecognized when nothing usable was captured.
	Listen(ctx context.Context) (string, error)
	Speak(ctx context.Context, text string) error
}

var (
	ErrTimeout      = errors.New("voice: listen timed out")
	ErrUnrecognized = errors.New("voice: could not recognize input")
)

// NoInput reports whether err means "nothing usable was heard". Such
// failures re-prompt the caller and never reach the conversation engine.
func NoInput(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnrecognized)
}

// Console reads utterances line by line and prints replies. It is the text
// mode of the agent.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:     bufio.NewReader(in),
		out:    out,
		prompt: "Patient: ",
	}
}

func (c *Console) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := fmt.Fprint(c.out, c.prompt); err != nil {
		return "", fmt.Errorf("voice: write prompt: %w", err)
	}
	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || err != io.EOF) {
		return "", fmt.Errorf("voice: read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ErrUnrecognized
	}
	return line, nil
}

func (c *Console) Speak(_ context.Context, text string) error {
	if _, err := fmt.Fprintf(c.out, "\nAgent: %s\n\n", text); err != nil {
		return fmt.Errorf("voice: write reply: %w", err)
	}
	return nil
}
