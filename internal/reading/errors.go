package reading

import (
	"context"
	"errors"
)

// Analyzer failures. The Normalizer recovers from all three by falling back
// to Fold; callers outside this package never see them.
var (
	ErrUnavailable = errors.New("reading analyzer unavailable")
	ErrTimeout     = errors.New("reading analyzer timed out")
	ErrGarbled     = errors.New("reading analyzer returned unusable output")
)

// ctxError maps a context failure onto the analyzer taxonomy.
func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrUnavailable
}
