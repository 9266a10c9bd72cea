package application

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davarch/fossa-gate/internal/domain"
	"go.uber.org/zap"
)

// errPending marks a non-terminal observation; the backoff loop sleeps and fetches again.
var errPending = errors.New("not terminal yet")

// Poller holds the timing contract shared by every wait stage.
type Poller struct {
	Name     string
	Interval time.Duration
	Deadline time.Duration
	Log      *zap.Logger

	// NewTimer replaces the sleep timer, nil means a real one.
	NewTimer func() backoff.Timer
}

func (p Poller) named(name string) Poller {
	p.Name = name
	return p
}

// PollUntil fetches observations until isTerminal accepts one. Fetches never
// overlap. A fetch error ends the loop at once. When the deadline, counted from
// this call, runs out the result is a *domain.TimeoutError, even if a fetch is
// still in flight: fetch receives the deadline-bound context.
func PollUntil[T any](ctx context.Context, p Poller, fetch func(context.Context) (T, error), isTerminal func(T) bool) (T, error) {
	var zero T

	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	pctx, cancel := context.WithTimeout(ctx, p.Deadline)
	defer cancel()

	attempt := 0
	op := func() (T, error) {
		attempt++
		obs, err := fetch(pctx)
		if err != nil {
			return zero, backoff.Permanent(err)
		}
		if !isTerminal(obs) {
			return zero, errPending
		}
		return obs, nil
	}

	notify := func(_ error, wait time.Duration) {
		log.Debug("not terminal yet",
			zap.String("stage", p.Name),
			zap.Int("attempt", attempt),
			zap.Duration("next", wait),
		)
	}

	var t backoff.Timer
	if p.NewTimer != nil {
		t = p.NewTimer()
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(p.Interval), pctx)
	obs, err := backoff.RetryNotifyWithTimerAndData(op, bo, notify, t)
	if err == nil {
		log.Debug("terminal", zap.String("stage", p.Name), zap.Int("attempts", attempt))
		return obs, nil
	}

	if ctx.Err() != nil {
		return zero, context.Cause(ctx)
	}

	if errors.Is(pctx.Err(), context.DeadlineExceeded) {
		return zero, &domain.TimeoutError{Stage: p.Name, After: p.Deadline}
	}

	return zero, err
}
