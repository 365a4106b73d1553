// Package geopolitics implements the geopolitical-risk event pipeline: a
// discover, analyze, consolidate state machine over LLM providers with a
// secondary-provider fallback branch and per-item failure isolation.
package geopolitics

import (
	"context"
	"fmt"
	"time"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/extract"
	"marketbrief/internal/logging"
	"marketbrief/internal/metrics"
	"marketbrief/internal/models"
	"marketbrief/internal/providers"
	"marketbrief/internal/validate"
	"marketbrief/pkg/utils"
)

// Stage names for logging and metrics.
const (
	stageDiscover    = "discover"
	stageAnalyze     = "analyze"
	stageConsolidate = "consolidate"
	stageFallback    = "fallback"
)

// maxCandidates bounds the discovery stage.
const maxCandidates = 7

// topRisks is how many consolidated items the report keeps.
const topRisks = 5

// CacheKeyPipeline is the pipeline-specific cache key; CacheKeyLegacy is the
// shared key older consumers still read. Reports are published under both.
const (
	CacheKeyPipeline = "geopolitics:pipeline"
	CacheKeyLegacy   = "geoRisks"
)

// Pipeline runs the three-stage geopolitical risk analysis.
type Pipeline struct {
	primary   providers.ChatClient
	secondary providers.ChatClient
	validator *validate.Validator

	eventLookback time.Duration // recency window for discovered events
	riskLookback  time.Duration // recency window for analyzed items

	now func() time.Time
}

// New creates a pipeline over a primary and secondary chat client. The
// secondary may be nil, in which case the fallback branch goes straight to
// the synthetic placeholder.
func New(primary, secondary providers.ChatClient, validator *validate.Validator, eventLookback, riskLookback time.Duration) *Pipeline {
	return &Pipeline{
		primary:       primary,
		secondary:     secondary,
		validator:     validator,
		eventLookback: eventLookback,
		riskLookback:  riskLookback,
		now:           time.Now,
	}
}

// WithClock overrides the pipeline clock for tests.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	p.validator = p.validator.WithClock(now)
	return p
}

// Run executes DISCOVER, ANALYZE and CONSOLIDATE against the primary
// provider. Any unrecoverable stage failure re-runs all three stages against
// the secondary provider; if that also fails, a synthetic placeholder report
// is returned so the concern always yields a well-formed, non-null record.
func (p *Pipeline) Run(ctx context.Context) *models.GeoRiskReport {
	logger := logging.FromContext(ctx)

	report, err := p.runStages(ctx, p.primary)
	if err == nil {
		return report
	}
	logger.Warn().Err(err).Msg("Primary geopolitics pipeline failed, switching provider")
	metrics.PipelineStages.WithLabelValues(stageFallback, metrics.OutcomeFailure).Inc()

	if p.secondary != nil {
		report, err = p.runStages(ctx, p.secondary)
		if err == nil {
			return report
		}
		logger.Error().Err(err).Msg("Secondary geopolitics pipeline failed, emitting placeholder")
	}

	return p.placeholderReport()
}

func (p *Pipeline) runStages(ctx context.Context, chat providers.ChatClient) (*models.GeoRiskReport, error) {
	logger := logging.FromContext(ctx)

	events, err := p.discover(ctx, chat)
	logging.LogPipelineStage(logger, stageDiscover, len(events), err)
	if err != nil {
		metrics.PipelineStages.WithLabelValues(stageDiscover, metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.PipelineStages.WithLabelValues(stageDiscover, metrics.OutcomeSuccess).Inc()

	analyses, err := p.analyzeAll(ctx, chat, events)
	logging.LogPipelineStage(logger, stageAnalyze, len(analyses), err)
	if err != nil {
		metrics.PipelineStages.WithLabelValues(stageAnalyze, metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.PipelineStages.WithLabelValues(stageAnalyze, metrics.OutcomeSuccess).Inc()

	report := p.consolidate(analyses, chat.Name())
	logging.LogPipelineStage(logger, stageConsolidate, len(report.Risks), nil)
	metrics.PipelineStages.WithLabelValues(stageConsolidate, metrics.OutcomeSuccess).Inc()

	return report, nil
}

// discover asks for candidate events and enforces the recency window. Zero
// survivors escalates to the fallback branch.
func (p *Pipeline) discover(ctx context.Context, chat providers.ChatClient) ([]models.GeoEvent, error) {
	text, err := chat.CompleteWithSystem(ctx, discoverSystemPrompt, discoverUserPrompt(p.now(), maxCandidates))
	if err != nil {
		return nil, err
	}

	items, err := extract.ExtractJSONArray(text)
	if err != nil {
		return nil, err
	}

	events := make([]models.GeoEvent, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := obj["date"].(string); ok {
			if t, err := utils.ParseFlexibleDate(s); err == nil {
				obj["date"] = t.Format(time.RFC3339)
			}
		}

		var event models.GeoEvent
		if err := extract.Decode(obj, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if len(events) > maxCandidates {
		events = events[:maxCandidates]
	}

	kept, _ := validate.FilterValid(events, func(e models.GeoEvent) []error {
		return p.validator.Record(e, "date", e.Date, p.eventLookback)
	})
	if len(kept) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrNoCandidates, "discover stage")
	}
	return kept, nil
}

// analyzeAll runs one independent deep-dive per candidate, in discovery
// order. A candidate's failure drops that candidate alone; the stage succeeds
// when at least one survives.
func (p *Pipeline) analyzeAll(ctx context.Context, chat providers.ChatClient, events []models.GeoEvent) ([]models.GeoRiskAnalysis, error) {
	logger := logging.FromContext(ctx)

	analyses := make([]models.GeoRiskAnalysis, 0, len(events))
	for _, event := range events {
		analysis, err := p.analyzeOne(ctx, chat, event)
		if err != nil {
			logger.Debug().Err(err).Str("headline", event.Headline).Msg("Dropping candidate")
			continue
		}
		analyses = append(analyses, *analysis)
	}

	if len(analyses) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrNoCandidates, "analyze stage")
	}
	return analyses, nil
}

func (p *Pipeline) analyzeOne(ctx context.Context, chat providers.ChatClient, event models.GeoEvent) (*models.GeoRiskAnalysis, error) {
	text, err := chat.CompleteWithSystem(ctx, analyzeSystemPrompt, analyzeUserPrompt(event))
	if err != nil {
		return nil, err
	}

	fields, err := extract.ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	score, ok := toFloat(fields["impactScore"])
	if !ok {
		return nil, apperrors.NewValidationError("impactScore", fields["impactScore"], "missing or non-numeric")
	}

	analysis := &models.GeoRiskAnalysis{
		Name:         event.Headline,
		Description:  event.Description,
		Region:       event.Region,
		ImpactScore:  score,
		ImpactLevel:  models.ImpactLevelFromScore(score),
		MarketImpact: stringField(fields, "marketImpact"),
		Source:       event.Source,
		SourceURL:    event.URL,
		LastUpdated:  event.Date,
	}
	analysis.SectorImpacts = stringSlice(fields["sectorImpacts"])
	analysis.ExpertOpinions = stringSlice(fields["expertOpinions"])

	if errs := p.validator.Record(analysis, "lastUpdated", analysis.LastUpdated, p.riskLookback); len(errs) > 0 {
		return nil, fmt.Errorf("analysis rejected: %v", errs[0])
	}
	return analysis, nil
}

// placeholderReport is the last-resort output when both providers failed.
func (p *Pipeline) placeholderReport() *models.GeoRiskReport {
	score := 5.0
	return &models.GeoRiskReport{
		RiskIndex: models.RiskIndexFromScores([]float64{score}),
		Overview:  "Geopolitical risk data is temporarily unavailable; baseline risk assumed.",
		Risks: []models.GeoRiskAnalysis{{
			Name:         "Global geopolitical conditions",
			Description:  "Live geopolitical analysis could not be retrieved from any provider. A neutral baseline risk entry is shown instead.",
			Region:       "Global",
			ImpactScore:  score,
			ImpactLevel:  models.ImpactLevelFromScore(score),
			MarketImpact: "No specific market impact identified.",
			Source:       "marketbrief",
			LastUpdated:  p.now(),
		}},
		Source:    "placeholder",
		FetchedAt: p.now(),
	}
}

func toFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
