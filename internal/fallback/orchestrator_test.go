package fallback

import (
	"context"
	"testing"
	"time"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/models"
	"marketbrief/internal/resilience"
)

// fakeAdapter is a scripted provider for orchestration tests.
type fakeAdapter struct {
	name   string
	fields map[string]any
	err    error
	calls  int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(_ context.Context, _ models.Request) models.ProviderResult {
	f.calls++
	if f.err != nil {
		return models.ProviderResult{Provider: f.name, Success: false, Err: f.err}
	}
	return models.ProviderResult{
		Provider:  f.name,
		Success:   true,
		Fields:    f.fields,
		FetchedAt: time.Now(),
	}
}

func acceptAll(map[string]any) error { return nil }

func firstSuccessConcern(providers ...string) models.Concern {
	return models.Concern{
		Name:      models.ConcernTreasuryYields,
		Providers: providers,
		Merge:     models.MergeFirstSuccess,
	}
}

func backfillConcern(providers ...string) models.Concern {
	return models.Concern{
		Name:      models.ConcernFundamentals,
		Providers: providers,
		Merge:     models.MergeBackfill,
	}
}

func TestFirstSuccessStopsAtFirstValidResult(t *testing.T) {
	primary := &fakeAdapter{name: "a", fields: map[string]any{"v": 1}}
	secondary := &fakeAdapter{name: "b", fields: map[string]any{"v": 2}}
	o := New(primary, secondary)

	merged, err := o.Resolve(context.Background(),
		models.Request{Concern: firstSuccessConcern("a", "b")},
		ResolveOptions{Check: acceptAll})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if merged.Fields["v"] != 1 {
		t.Errorf("merged fields = %v, want primary's", merged.Fields)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times after a validating success, want 0", secondary.calls)
	}
	if merged.Provenance["v"] != "a" {
		t.Errorf("provenance = %v, want field attributed to a", merged.Provenance)
	}
}

func TestFirstSuccessAdvancesPastFailure(t *testing.T) {
	down := &fakeAdapter{name: "a", err: apperrors.NewPermanentError("a", "no key", apperrors.ErrNotConfigured)}
	up := &fakeAdapter{name: "b", fields: map[string]any{"v": 2}}
	o := New(down, up)

	merged, err := o.Resolve(context.Background(),
		models.Request{Concern: firstSuccessConcern("a", "b")},
		ResolveOptions{Check: acceptAll})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if merged.Provenance["v"] != "b" {
		t.Errorf("provenance = %v, want fallback provider", merged.Provenance)
	}
}

func TestFirstSuccessAdvancesPastRejectedResult(t *testing.T) {
	junk := &fakeAdapter{name: "a", fields: map[string]any{"v": -1}}
	good := &fakeAdapter{name: "b", fields: map[string]any{"v": 2}}
	o := New(junk, good)

	merged, err := o.Resolve(context.Background(),
		models.Request{Concern: firstSuccessConcern("a", "b")},
		ResolveOptions{Check: func(fields map[string]any) error {
			if fields["v"] == -1 {
				return apperrors.NewValidationError("v", -1, "out of range")
			}
			return nil
		}})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if merged.Provenance["v"] != "b" {
		t.Errorf("a rejected result must advance the chain, got provenance %v", merged.Provenance)
	}
}

func TestFirstSuccessExhaustion(t *testing.T) {
	a := &fakeAdapter{name: "a", err: apperrors.ErrTimeout}
	b := &fakeAdapter{name: "b", err: apperrors.ErrServerError}
	o := New(a, b)

	_, err := o.Resolve(context.Background(),
		models.Request{Concern: firstSuccessConcern("a", "b")},
		ResolveOptions{Check: acceptAll})

	var exhausted *apperrors.FallbackExhaustedError
	if !apperrors.As(err, &exhausted) {
		t.Fatalf("error = %v, want FallbackExhaustedError", err)
	}
	if len(exhausted.Attempted) != 2 {
		t.Errorf("attempted = %v, want both providers", exhausted.Attempted)
	}
	if !apperrors.Is(err, apperrors.ErrServerError) {
		t.Errorf("exhaustion should carry the last error, got %v", exhausted.LastErr)
	}
}

func TestFirstSuccessSkipsUnregisteredProvider(t *testing.T) {
	b := &fakeAdapter{name: "b", fields: map[string]any{"v": 2}}
	o := New(b)

	merged, err := o.Resolve(context.Background(),
		models.Request{Concern: firstSuccessConcern("ghost", "b")},
		ResolveOptions{Check: acceptAll})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if merged.Provenance["v"] != "b" {
		t.Errorf("provenance = %v", merged.Provenance)
	}
}

func TestBackfillNeverOverwrites(t *testing.T) {
	first := &fakeAdapter{name: "a", fields: map[string]any{"price": 100.0, "sector": "Tech"}}
	second := &fakeAdapter{name: "b", fields: map[string]any{"price": 999.0, "peRatio": 25.0}}
	o := New(first, second)

	merged, err := o.Resolve(context.Background(),
		models.Request{Concern: backfillConcern("a", "b")},
		ResolveOptions{Check: acceptAll})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if merged.Fields["price"] != 100.0 {
		t.Errorf("price = %v, the higher-priority value must win", merged.Fields["price"])
	}
	if merged.Fields["peRatio"] != 25.0 {
		t.Errorf("peRatio = %v, the gap must be backfilled", merged.Fields["peRatio"])
	}
	if merged.Provenance["price"] != "a" || merged.Provenance["peRatio"] != "b" {
		t.Errorf("provenance = %v", merged.Provenance)
	}
}

func TestBackfillCompleteStopsChainEarly(t *testing.T) {
	first := &fakeAdapter{name: "a", fields: map[string]any{"price": 100.0}}
	second := &fakeAdapter{name: "b", fields: map[string]any{"sector": "Tech"}}
	o := New(first, second)

	_, err := o.Resolve(context.Background(),
		models.Request{Concern: backfillConcern("a", "b")},
		ResolveOptions{
			Check: acceptAll,
			Complete: func(fields map[string]any) bool {
				_, ok := fields["price"]
				return ok
			},
		})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if second.calls != 0 {
		t.Errorf("secondary called %d times after completion, want 0", second.calls)
	}
}

func TestBackfillSkipsFailedProvider(t *testing.T) {
	down := &fakeAdapter{name: "a", err: apperrors.ErrServerError}
	up := &fakeAdapter{name: "b", fields: map[string]any{"price": 50.0}}
	o := New(down, up)

	merged, err := o.Resolve(context.Background(),
		models.Request{Concern: backfillConcern("a", "b")},
		ResolveOptions{Check: acceptAll})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if merged.Provenance["price"] != "b" {
		t.Errorf("provenance = %v", merged.Provenance)
	}
}

func TestBackfillEmptyChainExhausts(t *testing.T) {
	a := &fakeAdapter{name: "a", err: apperrors.ErrServerError}
	o := New(a)

	_, err := o.Resolve(context.Background(),
		models.Request{Concern: backfillConcern("a")},
		ResolveOptions{Check: acceptAll})

	var exhausted *apperrors.FallbackExhaustedError
	if !apperrors.As(err, &exhausted) {
		t.Fatalf("error = %v, want FallbackExhaustedError", err)
	}
}

func TestOpenBreakerSkipsProvider(t *testing.T) {
	flaky := &fakeAdapter{name: "a", err: apperrors.ErrServerError}
	steady := &fakeAdapter{name: "b", fields: map[string]any{"v": 2}}

	breakers := resilience.NewRegistry(resilience.BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         time.Hour,
	})
	o := New(flaky, steady).WithBreakers(breakers)

	req := models.Request{Concern: firstSuccessConcern("a", "b")}
	opts := ResolveOptions{Check: acceptAll}

	// Two failing resolutions trip the breaker for provider a.
	for i := 0; i < 2; i++ {
		if _, err := o.Resolve(context.Background(), req, opts); err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
	}
	if _, err := o.Resolve(context.Background(), req, opts); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if flaky.calls != 2 {
		t.Errorf("flaky provider called %d times, want 2 (skipped once its breaker opened)", flaky.calls)
	}
	if steady.calls != 3 {
		t.Errorf("fallback provider called %d times, want 3", steady.calls)
	}
}

func TestBackfillCheckRejectionExhausts(t *testing.T) {
	a := &fakeAdapter{name: "a", fields: map[string]any{"junk": true}}
	o := New(a)

	_, err := o.Resolve(context.Background(),
		models.Request{Concern: backfillConcern("a")},
		ResolveOptions{Check: func(map[string]any) error {
			return apperrors.NewValidationError("price", nil, "missing")
		}})

	var exhausted *apperrors.FallbackExhaustedError
	if !apperrors.As(err, &exhausted) {
		t.Fatalf("error = %v, want FallbackExhaustedError", err)
	}
}
