package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Authenticator logs an account into an already open browser session.
// A nil error means the timeline became visible.
type Authenticator interface {
	Login(ctx context.Context, account *Account) error
}

// Checkpoint hands control to a human when the site asks for a CAPTCHA or
// other verification the scraper cannot answer.
type Checkpoint interface {
	// AwaitManual blocks until the operator confirms or ctx ends.
	AwaitManual(ctx context.Context, prompt string) error
}

// TerminalCheckpoint prompts on a terminal and waits for ENTER.
type TerminalCheckpoint struct {
	In  io.Reader
	Out io.Writer
	// Interactive reports whether In is attached to a person.
	Interactive func() bool
}

// NewTerminalCheckpoint prompts on stdin/stdout.
func NewTerminalCheckpoint() *TerminalCheckpoint {
	return &TerminalCheckpoint{
		In:  os.Stdin,
		Out: os.Stdout,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// ErrNotInteractive is returned when no one is available to solve a checkpoint.
var ErrNotInteractive = errors.New("manual checkpoint requires an interactive terminal")

func (t *TerminalCheckpoint) AwaitManual(ctx context.Context, prompt string) error {
	if t.Interactive != nil && !t.Interactive() {
		return ErrNotInteractive
	}
	fmt.Fprintf(t.Out, "\n%s\nPress ENTER when done... ", prompt)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(t.In).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// NoCheckpoint fails every manual step immediately.
type NoCheckpoint struct{}

func (NoCheckpoint) AwaitManual(context.Context, string) error { return ErrNotInteractive }
