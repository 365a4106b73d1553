package facade

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketbrief/internal/cache"
	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/fallback"
	"marketbrief/internal/geopolitics"
	"marketbrief/internal/models"
	"marketbrief/internal/validate"
)

type scriptedAdapter struct {
	name   string
	fields map[string]any
	err    error
	calls  int
}

func (s *scriptedAdapter) Name() string { return s.name }

func (s *scriptedAdapter) Fetch(_ context.Context, _ models.Request) models.ProviderResult {
	s.calls++
	if s.err != nil {
		return models.ProviderResult{Provider: s.name, Success: false, Err: s.err}
	}
	return models.ProviderResult{Provider: s.name, Success: true, Fields: s.fields, FetchedAt: time.Now()}
}

type deadChat struct{ name string }

func (d *deadChat) Name() string { return d.name }

func (d *deadChat) CompleteWithSystem(context.Context, string, string) (string, error) {
	return "", apperrors.NewTransientError(d.name, "down", apperrors.ErrServerError)
}

func testConcerns() map[models.ConcernName]models.Concern {
	return map[models.ConcernName]models.Concern{
		models.ConcernTreasuryYields: {
			Name:      models.ConcernTreasuryYields,
			Providers: []string{"fred", "alphavantage"},
			TTL:       time.Hour,
			Merge:     models.MergeFirstSuccess,
		},
		models.ConcernFundamentals: {
			Name:      models.ConcernFundamentals,
			Providers: []string{"tradier", "finnhub"},
			TTL:       time.Hour,
			Merge:     models.MergeBackfill,
		},
		models.ConcernGeopoliticalRisks: {
			Name:      models.ConcernGeopoliticalRisks,
			Providers: []string{"openai"},
			TTL:       time.Hour,
			Merge:     models.MergeFirstSuccess,
		},
	}
}

func yieldFields() map[string]any {
	asOf := time.Now().Add(-24 * time.Hour)
	return map[string]any{"yields": []models.TreasuryYield{
		{Term: "2y", YieldPct: 3.90, AsOf: asOf},
		{Term: "10y", YieldPct: 4.32, AsOf: asOf},
	}}
}

func newTestFacade(adapters ...*scriptedAdapter) *Facade {
	orchestrator := fallback.New()
	for _, a := range adapters {
		orchestrator.Register(a)
	}
	validator := validate.New()
	pipeline := geopolitics.New(&deadChat{name: "openai"}, nil, validator,
		7*24*time.Hour, 14*24*time.Hour)
	return NewWithDependencies(testConcerns(), cache.NewLayer(cache.NewMemoryStore()),
		orchestrator, pipeline, validator, zerolog.Nop())
}

func TestAggregateFallsBackWhenPrimaryUnconfigured(t *testing.T) {
	primary := &scriptedAdapter{
		name: "fred",
		err:  apperrors.NewPermanentError("fred", "missing API key", apperrors.ErrNotConfigured),
	}
	alternate := &scriptedAdapter{name: "alphavantage", fields: yieldFields()}
	f := newTestFacade(primary, alternate)

	composite := f.Aggregate(context.Background(), []models.ConcernName{models.ConcernTreasuryYields}, nil)

	result := composite.Results[models.ConcernTreasuryYields]
	require.True(t, result.Success, "the alternate provider must carry the concern: %s", result.Message)
	assert.Equal(t, 1, primary.calls, "the unconfigured primary fails once, without retries")
	assert.Equal(t, 1, alternate.calls)

	record, ok := result.Payload.(models.TreasuryYields)
	require.True(t, ok, "payload has type %T", result.Payload)
	assert.InDelta(t, 0.42, record.Curve.Spread10Y2Y, 1e-9)
	assert.Equal(t, models.CurveNormal, record.Curve.Status)
	assert.Equal(t, "alphavantage", record.Source)
}

func TestAggregateCachesAcrossCalls(t *testing.T) {
	provider := &scriptedAdapter{name: "fred", fields: yieldFields()}
	f := newTestFacade(provider)

	concerns := []models.ConcernName{models.ConcernTreasuryYields}
	first := f.Aggregate(context.Background(), concerns, nil)
	second := f.Aggregate(context.Background(), concerns, nil)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, 1, provider.calls, "the second aggregation must be served from cache")
}

func TestAggregatePartialFailureKeepsCompositeUsable(t *testing.T) {
	provider := &scriptedAdapter{name: "fred", fields: yieldFields()}
	f := newTestFacade(provider)

	composite := f.Aggregate(context.Background(), []models.ConcernName{
		models.ConcernTreasuryYields,
		models.ConcernGeopoliticalRisks,
	}, nil)

	assert.True(t, composite.Success, "overall success is the OR across concerns")

	geo := composite.Results[models.ConcernGeopoliticalRisks]
	assert.False(t, geo.Success, "a placeholder report counts as a failed concern")
	report, ok := geo.Payload.(*models.GeoRiskReport)
	require.True(t, ok, "even a failed concern carries a well-formed payload, got %T", geo.Payload)
	assert.Equal(t, "placeholder", report.Source)
	require.NotEmpty(t, report.Risks)
}

func TestAggregateAllConcernsFailed(t *testing.T) {
	dead := &scriptedAdapter{name: "fred", err: apperrors.ErrServerError}
	f := newTestFacade(dead)

	composite := f.Aggregate(context.Background(), []models.ConcernName{models.ConcernTreasuryYields}, nil)

	assert.False(t, composite.Success)
	result := composite.Results[models.ConcernTreasuryYields]
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)
}

func TestAggregateFundamentalsBackfill(t *testing.T) {
	broker := &scriptedAdapter{name: "tradier", fields: map[string]any{
		"symbol": "AAPL", "price": 230.10, "companyName": "Apple Inc",
	}}
	profile := &scriptedAdapter{name: "finnhub", fields: map[string]any{
		"price": 999.0, "marketCap": 2.8e12, "peRatio": 28.5,
	}}
	f := newTestFacade(broker, profile)

	composite := f.Aggregate(context.Background(),
		[]models.ConcernName{models.ConcernFundamentals}, []string{"AAPL"})

	result := composite.Results[models.ConcernFundamentals]
	require.True(t, result.Success, result.Message)

	records, ok := result.Payload.(map[string]models.StockFundamentals)
	require.True(t, ok, "payload has type %T", result.Payload)
	record := records["AAPL"]
	assert.Equal(t, 230.10, record.Price, "the broker's price must not be overwritten")
	assert.Equal(t, 28.5, record.PERatio, "missing ratios are backfilled")
	assert.Equal(t, "tradier", record.Provenance["price"])
	assert.Equal(t, "finnhub", record.Provenance["peRatio"])
}

func TestInvalidateClearsCachedConcerns(t *testing.T) {
	provider := &scriptedAdapter{name: "fred", fields: yieldFields()}
	f := newTestFacade(provider)

	concerns := []models.ConcernName{models.ConcernTreasuryYields}
	f.Aggregate(context.Background(), concerns, nil)
	require.NoError(t, f.Invalidate(context.Background(), nil))
	f.Aggregate(context.Background(), concerns, nil)

	assert.Equal(t, 2, provider.calls, "invalidation must force recomputation")
}
