package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/jmylchreest/vincheck-api/internal/chain"
)

// fakeBackend answers per model and records calls.
type fakeBackend struct {
	provider string

	mu         sync.Mutex
	probeErr   map[string]error
	genErr     map[string]error
	answers    map[string]string
	probeCalls []string
	genCalls   []string
}

func newFakeBackend(provider string) *fakeBackend {
	return &fakeBackend{
		provider: provider,
		probeErr: map[string]error{},
		genErr:   map[string]error{},
		answers:  map[string]string{},
	}
}

func (f *fakeBackend) Provider() string { return f.provider }

func (f *fakeBackend) Probe(_ context.Context, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls = append(f.probeCalls, model)
	return f.probeErr[model]
}

func (f *fakeBackend) Generate(_ context.Context, model, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls = append(f.genCalls, model)
	if err := f.genErr[model]; err != nil {
		return "", err
	}
	return f.answers[model], nil
}

func candidatesFunc(ids ...string) func() []Candidate {
	c := ParseCandidates(ids)
	return func() []Candidate { return c }
}

func TestSelector_EnsureAdoptsFirstLive(t *testing.T) {
	fb := newFakeBackend(ProviderGemini)
	fb.probeErr["a"] = ClassifyError(errors.New("not found"), "a", 404)

	s := NewSelector(SelectorConfig{Candidates: candidatesFunc("a", "b", "c"), Backends: []Backend{fb}})
	if st := s.Status(); st.State != StateUnselected {
		t.Fatalf("initial state = %q", st.State)
	}

	cand, err := s.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if cand.ID != "b" {
		t.Errorf("adopted %q, want b", cand.ID)
	}

	// Cached: no further probes.
	if _, err := s.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fb.probeCalls) != 2 {
		t.Errorf("probeCalls = %v, want [a b]", fb.probeCalls)
	}

	st := s.Status()
	if st.State != StateSelected || st.Active == nil || st.Active.ID != "b" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestSelector_EnsureAllFail(t *testing.T) {
	fb := newFakeBackend(ProviderGemini)
	fb.probeErr["a"] = errors.New("unavailable")
	fb.probeErr["b"] = errors.New("unavailable")

	s := NewSelector(SelectorConfig{Candidates: candidatesFunc("a", "b"), Backends: []Backend{fb}})
	_, err := s.Ensure(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	st := s.Status()
	if st.State != StateFailed || st.LastError == "" || st.LastProbe == nil {
		t.Errorf("Status() = %+v", st)
	}

	// Recovery: a later probe succeeds and leaves the failed state.
	delete(fb.probeErr, "b")
	if cand, err := s.Ensure(context.Background()); err != nil || cand.ID != "b" {
		t.Fatalf("Ensure after recovery = %+v, %v", cand, err)
	}
	if s.Status().State != StateSelected {
		t.Errorf("state = %q, want selected", s.Status().State)
	}
}

func TestSelector_InvocationFailureReprobesFullList(t *testing.T) {
	fb := newFakeBackend(ProviderGemini)
	fb.answers["a"] = `{"score":1}`
	s := NewSelector(SelectorConfig{Candidates: candidatesFunc("a", "b"), Backends: []Backend{fb}})

	text, cand, err := s.Generate(context.Background(), "prompt")
	if err != nil || cand.ID != "a" || text != `{"score":1}` {
		t.Fatalf("Generate = %q, %+v, %v", text, cand, err)
	}

	fb.genErr["a"] = ClassifyError(errors.New("boom"), "a", 500)
	_, _, err = s.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrBackendInvocationFailed) {
		t.Fatalf("err = %v, want ErrBackendInvocationFailed", err)
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Category != "provider_error" {
		t.Errorf("BackendError = %+v", be)
	}
	if st := s.Status(); st.State != StateUnselected || st.Active != nil {
		t.Errorf("after failure Status() = %+v, want unselected", st)
	}
	if len(fb.genCalls) != 2 {
		t.Errorf("genCalls = %v, the failing request must not retry", fb.genCalls)
	}

	// Next Ensure starts over from the top of the list.
	fb.probeCalls = nil
	if _, err := s.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(fb.probeCalls) != 1 || fb.probeCalls[0] != "a" {
		t.Errorf("re-probe calls = %v, want [a]", fb.probeCalls)
	}
}

func TestSelector_NotConfigured(t *testing.T) {
	s := NewSelector(SelectorConfig{Candidates: candidatesFunc("openrouter:x/y")})
	if s.Configured() {
		t.Fatal("selector without backends reports configured")
	}
	if _, err := s.Ensure(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Ensure err = %v, want ErrNotConfigured", err)
	}
	if _, _, err := s.GenerateWithFallback(context.Background(), "p", 2); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("GenerateWithFallback err = %v, want ErrNotConfigured", err)
	}
}

func TestSelector_SkipsCandidatesWithoutBackend(t *testing.T) {
	gem := newFakeBackend(ProviderGemini)
	s := NewSelector(SelectorConfig{
		Candidates: candidatesFunc("openrouter:x/y", "gemini-2.5-flash"),
		Backends:   []Backend{gem},
	})
	cand, err := s.Ensure(context.Background())
	if err != nil || cand.ID != "gemini-2.5-flash" {
		t.Fatalf("Ensure = %+v, %v", cand, err)
	}
}

func TestSelector_GenerateWithFallback(t *testing.T) {
	fb := newFakeBackend(ProviderGemini)
	fb.genErr["a"] = errors.New("overloaded")
	fb.answers["b"] = "second"
	fb.answers["c"] = "third"
	cache := NewMemoryCache()
	s := NewSelector(SelectorConfig{Candidates: candidatesFunc("a", "b", "c"), Backends: []Backend{fb}, Cache: cache})

	text, cand, err := s.GenerateWithFallback(context.Background(), "p", 2)
	if err != nil || text != "second" || cand.ID != "b" {
		t.Fatalf("GenerateWithFallback = %q, %+v, %v", text, cand, err)
	}
	if _, ok := cache.Get(); ok {
		t.Error("capped fallback must not write the shared cache")
	}
	if len(fb.probeCalls) != 0 {
		t.Errorf("capped fallback probed: %v", fb.probeCalls)
	}

	fb.genErr["b"] = errors.New("overloaded")
	fb.genCalls = nil
	_, _, err = s.GenerateWithFallback(context.Background(), "p", 2)
	if !errors.Is(err, ErrBackendInvocationFailed) {
		t.Fatalf("err = %v, want ErrBackendInvocationFailed", err)
	}
	if len(fb.genCalls) != 2 {
		t.Errorf("genCalls = %v, cap of 2 not honored", fb.genCalls)
	}
}

func TestSelector_GenerateWithFallbackStopsOnInvalidKey(t *testing.T) {
	fb := newFakeBackend(ProviderOpenRouter)
	fb.genErr["m1"] = ClassifyError(errors.New("unauthorized"), "openrouter:m1", http.StatusUnauthorized)
	fb.answers["m2"] = "second"
	s := NewSelector(SelectorConfig{Candidates: candidatesFunc("openrouter:m1", "openrouter:m2"), Backends: []Backend{fb}})

	text, _, err := s.GenerateWithFallback(context.Background(), "p", 2)
	if err == nil {
		t.Fatalf("GenerateWithFallback = %q, want an error", text)
	}
	if !errors.Is(err, ErrBackendInvocationFailed) {
		t.Errorf("err = %v, want ErrBackendInvocationFailed", err)
	}
	var exhausted *chain.ExhaustedError
	if !errors.As(err, &exhausted) || !exhausted.Aborted || !exhausted.HasKind("invalid_key") {
		t.Errorf("err = %v, want an aborted chain with an invalid_key miss", err)
	}
	if len(fb.genCalls) != 1 || fb.genCalls[0] != "m1" {
		t.Errorf("genCalls = %v, want [m1]", fb.genCalls)
	}
}

func TestSelector_FallbackLeavesCachedSelection(t *testing.T) {
	fb := newFakeBackend(ProviderGemini)
	fb.answers["b"] = "ok"
	cache := NewMemoryCache()
	cache.Set(ParseCandidate("a", 0))
	fb.genErr["a"] = errors.New("boom")

	s := NewSelector(SelectorConfig{Candidates: candidatesFunc("a", "b"), Backends: []Backend{fb}, Cache: cache})
	if _, _, err := s.GenerateWithFallback(context.Background(), "p", 2); err != nil {
		t.Fatal(err)
	}
	if c, ok := cache.Get(); !ok || c.ID != "a" {
		t.Errorf("cache = %+v, %v; fallback must not invalidate", c, ok)
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	if _, ok := c.Get(); ok {
		t.Fatal("new cache not empty")
	}
	c.Set(Candidate{ID: "x"})
	if got, ok := c.Get(); !ok || got.ID != "x" {
		t.Errorf("Get() = %+v, %v", got, ok)
	}
	c.Invalidate()
	if _, ok := c.Get(); ok {
		t.Error("Invalidate did not clear")
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); c.Set(Candidate{ID: "y"}) }()
		go func() { defer wg.Done(); c.Get(); c.Invalidate() }()
	}
	wg.Wait()
}
