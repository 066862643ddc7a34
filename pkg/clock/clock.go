// Package clock returns the current UTC time in a way that is easily
// overridden for testing, and owns the timestamp format persisted by the
// store.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type contextKeyType string

// ContextKey is used by tests to make the time deterministic.
//
// A test can write a fixed time into a context to use as the return value
// of Now():
//
//	ctx = context.WithValue(ctx, clock.ContextKey, mockTime)
//
// The value may also be a NowProvider evaluated on every call.
const ContextKey contextKeyType = "overrideNow"

// NowProvider is a function evaluated each time Now is called with a
// context carrying it. Providers must be safe for concurrent use when the
// context crosses goroutines.
type NowProvider func() time.Time

// Now returns the current UTC time, or the override carried by ctx.
func Now(ctx context.Context) time.Time {
	if ts := ctx.Value(ContextKey); ts != nil {
		switch v := ts.(type) {
		case NowProvider:
			return v().UTC()
		case time.Time:
			return v.UTC()
		default:
			panic(fmt.Sprintf("unknown value for clock.ContextKey: %v", v))
		}
	}
	return time.Now().UTC()
}

// isoLayout is fixed-width so that lexicographic ordering of stored
// timestamps equals chronological ordering. Microseconds are always
// printed, zero-padded.
const isoLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatISO renders t as a fixed-width ISO-8601 UTC string.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISO parses a timestamp produced by FormatISO. It tolerates plain
// RFC 3339 strings written by external tooling.
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(isoLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// TimeTravelCtx is a test utility that makes it easy to change the
// apparent time mid-test. It embeds a context carrying a NowProvider, so
// any code calling clock.Now(ctx) observes the travelled time.
//
//	ctx := clock.TimeTravelingContext(start)
//	runCycle(ctx)
//	ctx.Advance(2 * time.Second)
//	runCycle(ctx) // sees start+2s
type TimeTravelCtx struct {
	context.Context

	mutex sync.RWMutex
	ts    time.Time
}

// TimeTravelingContext returns a *TimeTravelCtx anchored at start, using
// the background context.
func TimeTravelingContext(start time.Time) *TimeTravelCtx {
	t := &TimeTravelCtx{ts: start.UTC()}
	t.Context = context.WithValue(context.Background(), ContextKey, NowProvider(t.now))
	return t
}

func (t *TimeTravelCtx) now() time.Time {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.ts
}

// SetTime replaces the apparent time. The embedded context remains valid.
func (t *TimeTravelCtx) SetTime(ts time.Time) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.ts = ts.UTC()
}

// Advance moves the apparent time forward by d.
func (t *TimeTravelCtx) Advance(d time.Duration) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.ts = t.ts.Add(d)
}
