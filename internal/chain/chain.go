// Package chain runs ranked, untrusted strategies in order and adopts the
// first one whose outcome is a hit.
//
// Both the vehicle source lookup and the generation backend probe are built on
// this runner: each strategy reports an Outcome instead of returning an error,
// misses advance the chain, and only exhaustion of the whole list is surfaced.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrNoStrategies is returned when Run is called with an empty strategy list.
var ErrNoStrategies = errors.New("chain: no strategies configured")

// Outcome is the tagged result of a single strategy attempt: either a hit
// carrying a value, or a miss carrying a kind and a reason.
type Outcome[T any] struct {
	value  T
	hit    bool
	abort  bool
	kind   string
	reason string
}

// Hit wraps a successful value.
func Hit[T any](v T) Outcome[T] {
	return Outcome[T]{value: v, hit: true}
}

// Miss reports a failed attempt. kind is a short machine-readable class
// (e.g. "blocked", "not_found"); reason is free text for logs and diagnostics.
func Miss[T any](kind, reason string) Outcome[T] {
	return Outcome[T]{kind: kind, reason: reason}
}

// Abort reports a miss that also ends the run: no later strategy is tried.
func Abort[T any](kind, reason string) Outcome[T] {
	return Outcome[T]{abort: true, kind: kind, reason: reason}
}

// IsHit reports whether the attempt succeeded.
func (o Outcome[T]) IsHit() bool { return o.hit }

// Value returns the hit value (zero value on a miss).
func (o Outcome[T]) Value() T { return o.value }

// Kind returns the miss kind (empty on a hit).
func (o Outcome[T]) Kind() string { return o.kind }

// Reason returns the miss reason (empty on a hit).
func (o Outcome[T]) Reason() string { return o.reason }

// Aborted reports whether the miss ended the run.
func (o Outcome[T]) Aborted() bool { return o.abort }

// Strategy is one ranked way of producing a T from a key K.
type Strategy[K, T any] interface {
	Name() string
	Attempt(ctx context.Context, key K) Outcome[T]
}

// Func adapts a plain function into a Strategy.
type Func[K, T any] struct {
	Label string
	Fn    func(ctx context.Context, key K) Outcome[T]
}

// Name implements Strategy.
func (f Func[K, T]) Name() string { return f.Label }

// Attempt implements Strategy.
func (f Func[K, T]) Attempt(ctx context.Context, key K) Outcome[T] { return f.Fn(ctx, key) }

// MissRecord is one miss observed while running a chain.
type MissRecord struct {
	Strategy string
	Kind     string
	Reason   string
	Duration time.Duration
}

func (m MissRecord) String() string {
	if m.Kind == "" {
		return fmt.Sprintf("%s: %s", m.Strategy, m.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", m.Strategy, m.Kind, m.Reason)
}

// ExhaustedError is returned when every strategy missed, or when a strategy
// aborted the run before the list was exhausted.
type ExhaustedError struct {
	Misses []MissRecord
	// Aborted is set when the last miss ended the run early.
	Aborted bool
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Misses))
	for i, m := range e.Misses {
		parts[i] = m.String()
	}
	prefix := "chain exhausted: "
	if e.Aborted {
		prefix = "chain aborted: "
	}
	return prefix + strings.Join(parts, "; ")
}

// HasKind reports whether any recorded miss has the given kind.
func (e *ExhaustedError) HasKind(kind string) bool {
	for _, m := range e.Misses {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

// Result describes a successful run.
type Result[T any] struct {
	Value    T
	Winner   string
	Position int
	Misses   []MissRecord
}

// Options tunes a run. The zero value is valid.
type Options struct {
	// Label is used as the "chain" attribute in logs.
	Label  string
	Logger *slog.Logger
}

// Run attempts strategies strictly in order and returns the first hit.
// It never runs strategies concurrently and never retries one. A cancelled
// context stops the run before the next attempt and is returned as-is. An
// aborted miss stops the run with an *ExhaustedError.
func Run[K, T any](ctx context.Context, key K, strategies []Strategy[K, T], opts Options) (Result[T], error) {
	var res Result[T]
	if len(strategies) == 0 {
		return res, ErrNoStrategies
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		start := time.Now()
		out := s.Attempt(ctx, key)
		elapsed := time.Since(start)

		if out.IsHit() {
			logger.Debug("strategy hit",
				"chain", opts.Label,
				"strategy", s.Name(),
				"position", i,
				"duration_ms", elapsed.Milliseconds(),
			)
			res.Value = out.Value()
			res.Winner = s.Name()
			res.Position = i
			return res, nil
		}

		miss := MissRecord{
			Strategy: s.Name(),
			Kind:     out.Kind(),
			Reason:   out.Reason(),
			Duration: elapsed,
		}
		res.Misses = append(res.Misses, miss)
		logger.Info("strategy missed",
			"chain", opts.Label,
			"strategy", s.Name(),
			"kind", miss.Kind,
			"reason", miss.Reason,
			"aborted", out.Aborted(),
			"duration_ms", elapsed.Milliseconds(),
		)
		if out.Aborted() {
			return res, &ExhaustedError{Misses: res.Misses, Aborted: true}
		}
	}

	return res, &ExhaustedError{Misses: res.Misses}
}
