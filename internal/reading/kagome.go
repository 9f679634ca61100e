package reading

import (
	"context"
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// KagomeAnalyzer reads text in-process with kagome and the IPA dictionary.
// The tokenizer is built once and is safe for concurrent use.
type KagomeAnalyzer struct {
	t *tokenizer.Tokenizer
}

func NewKagomeAnalyzer() (*KagomeAnalyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("%w: kagome: %v", ErrUnavailable, err)
	}
	return &KagomeAnalyzer{t: t}, nil
}

func (k *KagomeAnalyzer) Name() string { return "kagome" }

// Reading returns the katakana reading of text. Tokens without a dictionary
// reading (unknown words, ASCII, spaces) contribute their surface form.
func (k *KagomeAnalyzer) Reading(ctx context.Context, text string) (string, error) {
	if k == nil || k.t == nil {
		return "", ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", ctxError(ctx)
	}

	done := make(chan string, 1)
	go func() {
		defer func() {
			if recover() != nil {
				done <- ""
			}
		}()
		done <- k.read(text)
	}()

	select {
	case out := <-done:
		if strings.TrimSpace(out) == "" {
			return "", ErrGarbled
		}
		return out, nil
	case <-ctx.Done():
		return "", ctxError(ctx)
	}
}

func (k *KagomeAnalyzer) read(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, tok := range k.t.Tokenize(text) {
		if r, ok := tok.Reading(); ok && r != "" && r != "*" {
			b.WriteString(r)
			continue
		}
		b.WriteString(tok.Surface)
	}
	return b.String()
}
