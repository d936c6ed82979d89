package tts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shortforge/shortforge/internal/models"
	"github.com/shortforge/shortforge/internal/segment"
)

// Dispatcher schedules one synthesis call per narration segment, wrapping
// each call in a bounded retry loop. Both dispatch modes produce the same
// per-index result set; fan-out only changes wall-clock time and peak
// concurrent provider calls.
type Dispatcher struct {
	provider    Provider
	mode        models.DispatchMode
	maxRetries  int
	backoffBase time.Duration

	// wait sleeps for the backoff delay; swapped out in tests.
	wait func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(provider Provider, mode models.DispatchMode, maxRetries int, backoffBase time.Duration) *Dispatcher {
	return &Dispatcher{
		provider:    provider,
		mode:        mode,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		wait:        sleepCtx,
	}
}

// SynthesizeAll voices every segment and returns audio indexed by segment
// index, a contiguous 0..N-1 range with no unset slots. In fan-out mode all
// tasks complete (join barrier) before the results are handed back.
func (d *Dispatcher) SynthesizeAll(ctx context.Context, segs []segment.Segment, voiceID string, gender models.VoiceGender) ([][]byte, error) {
	results := make([][]byte, len(segs))

	switch d.mode {
	case models.DispatchFanOut:
		// Each task owns exactly one slot, so the slice itself needs no lock.
		g, gctx := errgroup.WithContext(ctx)
		for _, s := range segs {
			s := s
			g.Go(func() error {
				audio, err := d.synthesizeWithRetry(gctx, s.Text, voiceID, gender)
				if err != nil {
					return fmt.Errorf("segment %d: %w", s.Index, err)
				}
				results[s.Index] = audio
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	default:
		for _, s := range segs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			audio, err := d.synthesizeWithRetry(ctx, s.Text, voiceID, gender)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", s.Index, err)
			}
			results[s.Index] = audio
		}
	}

	for i, r := range results {
		if r == nil {
			return nil, fmt.Errorf("synthesis produced no audio for segment %d", i)
		}
	}
	return results, nil
}

// synthesizeWithRetry is a bounded state machine: Attempting(n) transitions
// to Success, to Fatal, or — on a rate-limit signal with n < maxRetries —
// back to Attempting(n+1) after sleeping base*2^(n+1).
func (d *Dispatcher) synthesizeWithRetry(ctx context.Context, text, voiceID string, gender models.VoiceGender) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		audio, err := d.provider.Synthesize(ctx, text, voiceID, gender)
		if err == nil {
			return audio, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return nil, &SynthesisError{Provider: d.provider.Name(), Err: err}
		}
		if attempt >= d.maxRetries {
			return nil, &RateLimitExceededError{Attempts: attempt + 1}
		}

		delay := time.Duration(float64(d.backoffBase) * math.Pow(2, float64(attempt+1)))
		log.Printf("[tts] rate limited (attempt %d/%d), backing off %v", attempt+1, d.maxRetries+1, delay)
		if err := d.wait(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
