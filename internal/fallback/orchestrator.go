// Package fallback orchestrates provider chains: providers are tried in
// concern-declared priority order with either first-validating-success or
// field-level backfill merge semantics.
package fallback

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/logging"
	"marketbrief/internal/models"
	"marketbrief/internal/providers"
	"marketbrief/internal/resilience"
)

// CheckFunc reports whether a provider's fields constitute a validating
// result for the concern. A nil error means valid.
type CheckFunc func(fields map[string]any) error

// ResolveOptions carry the concern-specific hooks.
type ResolveOptions struct {
	// Check decides validating success. Required.
	Check CheckFunc
	// Complete stops a backfill chain early once the accumulated record
	// needs nothing more. Optional; when nil every provider in the chain is
	// consulted.
	Complete func(fields map[string]any) bool
}

// Orchestrator resolves concerns against a registry of provider adapters.
type Orchestrator struct {
	adapters map[string]providers.Adapter
	breakers *resilience.Registry
}

// New creates an orchestrator over the given adapters.
func New(adapters ...providers.Adapter) *Orchestrator {
	reg := make(map[string]providers.Adapter, len(adapters))
	for _, a := range adapters {
		reg[a.Name()] = a
	}
	return &Orchestrator{adapters: reg}
}

// Register adds or replaces an adapter.
func (o *Orchestrator) Register(a providers.Adapter) {
	o.adapters[a.Name()] = a
}

// WithBreakers attaches per-provider circuit breakers. A provider whose
// breaker is open is skipped for the cooldown period, advancing the fallback
// chain without waiting on a known-bad upstream.
func (o *Orchestrator) WithBreakers(reg *resilience.Registry) *Orchestrator {
	o.breakers = reg
	return o
}

// fetch runs one adapter call through its breaker, when breakers are enabled.
func (o *Orchestrator) fetch(ctx context.Context, adapter providers.Adapter, req models.Request) models.ProviderResult {
	if o.breakers == nil {
		return adapter.Fetch(ctx, req)
	}

	breaker := o.breakers.Get(adapter.Name())
	if err := breaker.Allow(); err != nil {
		return models.ProviderResult{Provider: adapter.Name(), Success: false, Err: err}
	}

	res := adapter.Fetch(ctx, req)
	if res.Success {
		breaker.RecordSuccess()
	} else {
		breaker.RecordFailure()
	}
	return res
}

// Resolve walks the concern's provider chain in declared priority order and
// returns the merged record, or a FallbackExhaustedError carrying the
// attempted providers and last error. Providers run strictly sequentially;
// each call completes before the next begins.
func (o *Orchestrator) Resolve(ctx context.Context, req models.Request, opts ResolveOptions) (*models.MergedRecord, error) {
	logger := logging.WithConcern(logging.FromContext(ctx), string(req.Concern.Name))

	switch req.Concern.Merge {
	case models.MergeBackfill:
		return o.resolveBackfill(ctx, logger, req, opts)
	default:
		return o.resolveFirstSuccess(ctx, logger, req, opts)
	}
}

func (o *Orchestrator) resolveFirstSuccess(ctx context.Context, logger zerolog.Logger, req models.Request, opts ResolveOptions) (*models.MergedRecord, error) {
	var attempted []string
	var lastErr error

	for _, name := range req.Concern.Providers {
		adapter, ok := o.adapters[name]
		if !ok {
			logger.Warn().Str("provider", name).Msg("Provider not registered, skipping")
			continue
		}
		attempted = append(attempted, name)

		res := o.fetch(ctx, adapter, req)
		if !res.Success {
			lastErr = res.Err
			logger.Debug().Str("provider", name).Err(res.Err).Msg("Provider failed, advancing fallback")
			continue
		}

		if err := opts.Check(res.Fields); err != nil {
			lastErr = err
			logger.Debug().Str("provider", name).Err(err).Msg("Provider result rejected by validation")
			continue
		}

		// First validating success wins; no further providers are consulted.
		return &models.MergedRecord{
			Concern:    req.Concern.Name,
			Fields:     res.Fields,
			Provenance: uniformProvenance(res.Fields, name),
			FetchedAt:  res.FetchedAt,
		}, nil
	}

	return nil, &apperrors.FallbackExhaustedError{
		Concern:   string(req.Concern.Name),
		Attempted: attempted,
		LastErr:   lastErr,
	}
}

func (o *Orchestrator) resolveBackfill(ctx context.Context, logger zerolog.Logger, req models.Request, opts ResolveOptions) (*models.MergedRecord, error) {
	merged := &models.MergedRecord{
		Concern:    req.Concern.Name,
		Fields:     make(map[string]any),
		Provenance: make(map[string]string),
	}

	var attempted []string
	var lastErr error

	for _, name := range req.Concern.Providers {
		adapter, ok := o.adapters[name]
		if !ok {
			logger.Warn().Str("provider", name).Msg("Provider not registered, skipping")
			continue
		}
		attempted = append(attempted, name)

		res := o.fetch(ctx, adapter, req)
		if !res.Success {
			lastErr = res.Err
			logger.Debug().Str("provider", name).Err(res.Err).Msg("Provider failed, advancing fallback")
			continue
		}

		// A lower-priority provider fills only fields still missing; it
		// never overwrites a field set by a higher-priority provider.
		for key, value := range res.Fields {
			if _, exists := merged.Fields[key]; exists {
				continue
			}
			merged.Fields[key] = value
			merged.Provenance[key] = name
		}
		merged.FetchedAt = res.FetchedAt

		if opts.Complete != nil && opts.Complete(merged.Fields) {
			break
		}
	}

	if len(merged.Fields) == 0 {
		return nil, &apperrors.FallbackExhaustedError{
			Concern:   string(req.Concern.Name),
			Attempted: attempted,
			LastErr:   lastErr,
		}
	}

	if err := opts.Check(merged.Fields); err != nil {
		return nil, &apperrors.FallbackExhaustedError{
			Concern:   string(req.Concern.Name),
			Attempted: attempted,
			LastErr:   err,
		}
	}

	if merged.FetchedAt.IsZero() {
		merged.FetchedAt = time.Now()
	}
	return merged, nil
}

func uniformProvenance(fields map[string]any, provider string) map[string]string {
	prov := make(map[string]string, len(fields))
	for key := range fields {
		prov[key] = provider
	}
	return prov
}
