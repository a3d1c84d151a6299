package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/vincheck-api/internal/chain"
)

// State is the selector's position in its state machine.
type State string

const (
	StateUnselected State = "unselected"
	StateSelected   State = "selected"
	StateFailed     State = "failed"
)

// Status is a diagnostic snapshot of the selector.
type Status struct {
	State      State       `json:"state" doc:"unselected, selected or failed"`
	Configured bool        `json:"configured" doc:"Whether any backend credential is present"`
	Active     *Candidate  `json:"active,omitempty" doc:"Currently adopted candidate"`
	Candidates []Candidate `json:"candidates" doc:"Ranked candidate list"`
	LastProbe  *time.Time  `json:"last_probe,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
}

// SelectorConfig holds configuration for creating a Selector.
type SelectorConfig struct {
	// Candidates returns the ranked list. It is consulted on every probe so
	// catalog reloads apply without a restart.
	Candidates func() []Candidate
	Backends   []Backend
	// Cache defaults to a fresh MemoryCache.
	Cache ActiveCache
	// ProbeTimeout bounds each liveness call. Zero means no extra bound.
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// Selector adopts the first live candidate and re-probes after a failed
// invocation.
type Selector struct {
	candidates   func() []Candidate
	backends     map[string]Backend
	cache        ActiveCache
	probeTimeout time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	failed    bool
	lastProbe time.Time
	lastError string
}

// NewSelector creates a selector.
func NewSelector(cfg SelectorConfig) *Selector {
	if cfg.Candidates == nil {
		defaults := ParseCandidates(DefaultCandidates)
		cfg.Candidates = func() []Candidate { return defaults }
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	backends := make(map[string]Backend, len(cfg.Backends))
	for _, b := range cfg.Backends {
		if b != nil {
			backends[b.Provider()] = b
		}
	}
	return &Selector{
		candidates:   cfg.Candidates,
		backends:     backends,
		cache:        cfg.Cache,
		probeTimeout: cfg.ProbeTimeout,
		logger:       cfg.Logger,
	}
}

// Configured reports whether any candidate has a backend to run on.
func (s *Selector) Configured() bool {
	for _, c := range s.candidates() {
		if _, ok := s.backends[c.Provider]; ok {
			return true
		}
	}
	return false
}

// Ensure returns the cached candidate or probes the ranked list from the top
// and adopts the first that answers.
func (s *Selector) Ensure(ctx context.Context) (Candidate, error) {
	if c, ok := s.cache.Get(); ok {
		return c, nil
	}
	if !s.Configured() {
		return Candidate{}, ErrNotConfigured
	}

	candidates := s.candidates()
	strategies := make([]chain.Strategy[struct{}, Candidate], 0, len(candidates))
	for _, c := range candidates {
		strategies = append(strategies, probeStrategy{selector: s, candidate: c})
	}

	res, err := chain.Run(ctx, struct{}{}, strategies, chain.Options{
		Label:  "backend",
		Logger: s.logger,
	})

	s.mu.Lock()
	s.lastProbe = time.Now()
	if err != nil {
		s.failed = true
		s.lastError = err.Error()
	} else {
		s.failed = false
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Candidate{}, ctxErr
		}
		s.logger.Warn("no generation backend available", "error", err)
		return Candidate{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	s.cache.Set(res.Value)
	s.logger.Info("generation backend selected", "candidate", res.Value.ID, "rank", res.Value.Rank)
	return res.Value, nil
}

// Invoke runs prompt against cand. A failure invalidates the cache so the
// next Ensure re-probes; the error is returned to the caller without retry.
func (s *Selector) Invoke(ctx context.Context, cand Candidate, prompt string) (string, error) {
	backend, ok := s.backends[cand.Provider]
	if !ok {
		return "", fmt.Errorf("%w: no backend for provider %q", ErrBackendInvocationFailed, cand.Provider)
	}

	start := time.Now()
	text, err := backend.Generate(ctx, cand.Model, prompt)
	if err != nil {
		be := WrapError(err, cand.ID)
		s.cache.Invalidate()
		s.mu.Lock()
		s.lastError = be.Error()
		s.mu.Unlock()
		s.logger.Warn("generation backend failed, selection invalidated",
			"candidate", cand.ID,
			"category", be.Category,
			"retryable", be.Retryable,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("%w: %w", ErrBackendInvocationFailed, be)
	}

	s.logger.Debug("generation complete",
		"candidate", cand.ID,
		"response_length", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Generate ensures a backend and invokes it once.
func (s *Selector) Generate(ctx context.Context, prompt string) (string, Candidate, error) {
	cand, err := s.Ensure(ctx)
	if err != nil {
		return "", Candidate{}, err
	}
	text, err := s.Invoke(ctx, cand, prompt)
	return text, cand, err
}

// GenerateWithFallback tries up to limit candidates in rank order for a single
// request. It never reads or writes the shared cache. A failure classified as
// not worth a fallback, such as a rejected API key, ends the walk.
func (s *Selector) GenerateWithFallback(ctx context.Context, prompt string, limit int) (string, Candidate, error) {
	if !s.Configured() {
		return "", Candidate{}, ErrNotConfigured
	}

	var attempts []chain.Strategy[string, generation]
	for _, c := range s.candidates() {
		if limit > 0 && len(attempts) >= limit {
			break
		}
		if _, ok := s.backends[c.Provider]; !ok {
			continue
		}
		attempts = append(attempts, generateStrategy{selector: s, candidate: c})
	}

	res, err := chain.Run(ctx, prompt, attempts, chain.Options{
		Label:  "backend_fallback",
		Logger: s.logger,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", Candidate{}, ctxErr
		}
		return "", Candidate{}, fmt.Errorf("%w: %w", ErrBackendInvocationFailed, err)
	}
	return res.Value.text, res.Value.candidate, nil
}

// Status returns a diagnostic snapshot.
func (s *Selector) Status() Status {
	st := Status{
		State:      StateUnselected,
		Configured: s.Configured(),
		Candidates: s.candidates(),
	}
	if c, ok := s.cache.Get(); ok {
		st.State = StateSelected
		st.Active = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Active == nil && s.failed {
		st.State = StateFailed
	}
	if !s.lastProbe.IsZero() {
		t := s.lastProbe
		st.LastProbe = &t
	}
	st.LastError = s.lastError
	return st
}

// probeStrategy adapts one candidate's liveness call to the chain runner.
type probeStrategy struct {
	selector  *Selector
	candidate Candidate
}

func (p probeStrategy) Name() string { return p.candidate.ID }

func (p probeStrategy) Attempt(ctx context.Context, _ struct{}) chain.Outcome[Candidate] {
	backend, ok := p.selector.backends[p.candidate.Provider]
	if !ok {
		return chain.Miss[Candidate]("not_configured", "no backend for provider "+p.candidate.Provider)
	}
	if p.selector.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.selector.probeTimeout)
		defer cancel()
	}
	if err := backend.Probe(ctx, p.candidate.Model); err != nil {
		be := WrapError(err, p.candidate.ID)
		return chain.Miss[Candidate](be.Category, be.Error())
	}
	return chain.Hit(p.candidate)
}

type generation struct {
	text      string
	candidate Candidate
}

// generateStrategy is one step of the capped per-request fallback.
type generateStrategy struct {
	selector  *Selector
	candidate Candidate
}

func (g generateStrategy) Name() string { return g.candidate.ID }

func (g generateStrategy) Attempt(ctx context.Context, prompt string) chain.Outcome[generation] {
	backend := g.selector.backends[g.candidate.Provider]
	text, err := backend.Generate(ctx, g.candidate.Model, prompt)
	if err != nil {
		be := WrapError(err, g.candidate.ID)
		if !be.ShouldFallback {
			return chain.Abort[generation](be.Category, be.Error())
		}
		return chain.Miss[generation](be.Category, be.Error())
	}
	return chain.Hit(generation{text: text, candidate: g.candidate})
}
