package reading

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// CommandAnalyzer pipes text through an external reader such as
// `mecab -O yomi`. Every call spawns its own short-lived process; nothing is
// shared between calls.
type CommandAnalyzer struct {
	name string
	args []string
}

// NewCommandAnalyzer splits cmdline on whitespace into program and args.
func NewCommandAnalyzer(cmdline string) (*CommandAnalyzer, error) {
	f := strings.Fields(cmdline)
	if len(f) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrUnavailable)
	}
	return &CommandAnalyzer{name: f[0], args: f[1:]}, nil
}

func (c *CommandAnalyzer) Name() string { return c.name }

func (c *CommandAnalyzer) Reading(ctx context.Context, text string) (string, error) {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.WaitDelay = 100 * time.Millisecond

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctxError(ctx)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s not found", ErrUnavailable, c.name)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !utf8.Valid(out) {
		return "", ErrGarbled
	}

	// one line per input line; join them back with single spaces
	s := strings.Join(strings.Fields(string(out)), " ")
	if s == "" {
		return "", ErrGarbled
	}
	return s, nil
}
