// Package reading turns mixed-script Japanese text into a hiragana reading
// used for kana-insensitive search.
//
// A Normalizer first asks an optional Analyzer for the katakana reading of
// the text (resolving kanji), then folds the result to hiragana. When the
// analyzer is missing, slow, or returns nothing usable, it falls back to Fold,
// which only standardizes script and width and leaves kanji untouched.
package reading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultTimeout       = 300 * time.Millisecond
	DefaultMaxInputRunes = 1000
)

// Analyzer resolves text into its katakana reading.
type Analyzer interface {
	Name() string
	Reading(ctx context.Context, text string) (string, error)
}

// NewAnalyzer builds the analyzer selected by kind: "kagome", "mecab" (runs
// command) or "none". "none" returns a nil Analyzer and no error.
func NewAnalyzer(kind, command string) (Analyzer, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "kagome":
		k, err := NewKagomeAnalyzer()
		if err != nil {
			return nil, err
		}
		return k, nil
	case "mecab", "command":
		c, err := NewCommandAnalyzer(command)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "none", "fold":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown reading analyzer %q", kind)
	}
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTimeout bounds each analyzer call. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(n *Normalizer) { n.timeout = d }
}

// WithMaxInputRunes caps the text handed to the analyzer.
func WithMaxInputRunes(max int) Option {
	return func(n *Normalizer) { n.maxInput = max }
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// Normalizer is stateless apart from the analyzer it wraps and is safe for
// concurrent use.
type Normalizer struct {
	analyzer Analyzer
	timeout  time.Duration
	maxInput int
	logger   *slog.Logger
}

// New returns a Normalizer backed by a. A nil analyzer gives the fold-only
// (degraded) normalizer.
func New(a Analyzer, opts ...Option) *Normalizer {
	n := &Normalizer{
		analyzer: a,
		timeout:  DefaultTimeout,
		maxInput: DefaultMaxInputRunes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AnalyzerName reports the active analyzer, or "fold" when there is none.
func (n *Normalizer) AnalyzerName() string {
	if n.analyzer == nil {
		return "fold"
	}
	return n.analyzer.Name()
}

// Normalize returns the hiragana reading of s. Analyzer failures are absorbed
// here; an error is returned only when the fold itself fails.
func (n *Normalizer) Normalize(ctx context.Context, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	if n.analyzer != nil {
		out, err := n.analyze(ctx, s)
		if err == nil {
			return out, nil
		}
		n.logger.Debug("reading analyzer fell back to fold",
			"analyzer", n.analyzer.Name(), "error", err)
	}

	return Fold(s)
}

func (n *Normalizer) analyze(ctx context.Context, s string) (string, error) {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	yomi, err := n.analyzer.Reading(ctx, truncateRunes(s, n.maxInput))
	if err != nil {
		return "", err
	}
	out, err := Fold(yomi)
	if err != nil || out == "" {
		return "", ErrGarbled
	}
	return out, nil
}
