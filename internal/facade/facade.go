// Package facade is the top-level entry point of the data-retrieval core. It
// combines the cache layer, the fallback orchestrator and the geopolitical
// pipeline into one composite, partial-success-tolerant aggregation.
package facade

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketbrief/internal/cache"
	"marketbrief/internal/config"
	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/fallback"
	"marketbrief/internal/geopolitics"
	"marketbrief/internal/logging"
	"marketbrief/internal/metrics"
	"marketbrief/internal/models"
	"marketbrief/internal/providers"
	"marketbrief/internal/resilience"
	"marketbrief/internal/validate"
	"marketbrief/pkg/utils"
)

// Facade aggregates all concerns for one newsletter invocation.
type Facade struct {
	cfg          *config.Config
	concerns     map[models.ConcernName]models.Concern
	cacheLayer   *cache.Layer
	orchestrator *fallback.Orchestrator
	pipeline     *geopolitics.Pipeline
	validator    *validate.Validator
	logger       zerolog.Logger
}

// New wires the facade from configuration. Configuration lookups happen here
// once: adapters receive concrete values and never consult config themselves.
func New(cfg *config.Config, store cache.Store, logger zerolog.Logger) *Facade {
	retry := utils.RetryConfig{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
	}

	chatOpts := providers.ChatOptions{
		Model:       cfg.LLM.OpenAIModel,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
	openaiChat := providers.NewOpenAIChatClient(cfg.Credentials.OpenAIAPIKey, chatOpts)

	perplexityOpts := chatOpts
	perplexityOpts.Model = cfg.LLM.PerplexityModel
	perplexityChat := providers.NewPerplexityChatClient(
		cfg.Credentials.PerplexityAPIKey, cfg.LLM.PerplexityURL, perplexityOpts)

	orchestrator := fallback.New(
		providers.NewFREDAdapter(cfg.Credentials.FREDAPIKey, "", retry),
		providers.NewAlphaVantageAdapter(cfg.Credentials.AlphaVantageAPIKey, "", retry),
		providers.NewYahooAdapter("", retry),
		providers.NewTradierAdapter(cfg.Credentials.TradierAPIKey, "", retry),
		providers.NewFMPAdapter(cfg.Credentials.FMPAPIKey, "", retry),
		providers.NewFinnhubAdapter(cfg.Credentials.FinnhubAPIKey, "", retry),
		providers.NewLLMAdapter(perplexityChat, retry),
	).WithBreakers(resilience.NewRegistry(resilience.DefaultBreakerConfig()))

	validator := validate.New()
	pipeline := geopolitics.New(openaiChat, perplexityChat, validator,
		cfg.EventLookback(),
		time.Duration(cfg.Concerns.RiskLookbackDays)*24*time.Hour)

	return &Facade{
		cfg:          cfg,
		concerns:     cfg.ConcernSet(),
		cacheLayer:   cache.NewLayer(store),
		orchestrator: orchestrator,
		pipeline:     pipeline,
		validator:    validator,
		logger:       logger,
	}
}

// NewWithDependencies wires a facade from pre-built collaborators, used by
// tests and by callers that need custom adapters.
func NewWithDependencies(concerns map[models.ConcernName]models.Concern, layer *cache.Layer, orchestrator *fallback.Orchestrator, pipeline *geopolitics.Pipeline, validator *validate.Validator, logger zerolog.Logger) *Facade {
	return &Facade{
		concerns:     concerns,
		cacheLayer:   layer,
		orchestrator: orchestrator,
		pipeline:     pipeline,
		validator:    validator,
		logger:       logger,
	}
}

// Aggregate retrieves every requested concern, one at a time, and records a
// per-concern success flag and message. Overall success is the logical OR
// across concerns: the composite is usable even when some concerns failed.
func (f *Facade) Aggregate(ctx context.Context, concerns []models.ConcernName, symbols []string) models.CompositeResult {
	ctx = logging.WithLogger(ctx, f.logger)

	composite := models.CompositeResult{
		Results:   make(map[models.ConcernName]models.ConcernResult),
		Timestamp: time.Now(),
	}

	for _, name := range concerns {
		var result models.ConcernResult
		switch name {
		case models.ConcernTreasuryYields:
			result = f.treasuryYields(ctx)
		case models.ConcernInflation:
			result = f.inflation(ctx)
		case models.ConcernFedPolicy:
			result = f.fedPolicy(ctx)
		case models.ConcernGeopoliticalRisks:
			result = f.geopoliticalRisks(ctx)
		case models.ConcernFundamentals:
			result = f.fundamentals(ctx, symbols)
		default:
			result = models.ConcernResult{
				Concern: name, Success: false,
				Message:   "unknown concern",
				Timestamp: time.Now(),
			}
		}

		outcome := metrics.OutcomeSuccess
		if !result.Success {
			outcome = metrics.OutcomeFailure
		}
		metrics.ConcernResults.WithLabelValues(string(name), outcome).Inc()

		composite.Results[name] = result
		composite.Success = composite.Success || result.Success
	}

	return composite
}

func (f *Facade) treasuryYields(ctx context.Context) models.ConcernResult {
	concern := f.concerns[models.ConcernTreasuryYields]
	req := models.Request{Concern: concern}

	record, err := cache.GetOrCompute(ctx, f.cacheLayer, concern.CacheKey(""), concern.TTL, func() (models.TreasuryYields, error) {
		merged, err := f.orchestrator.Resolve(ctx, req, fallback.ResolveOptions{
			Check: func(fields map[string]any) error {
				_, err := normalizeTreasuryYields(f.validator, fields)
				return err
			},
		})
		if err != nil {
			return models.TreasuryYields{}, err
		}
		record, err := normalizeTreasuryYields(f.validator, merged.Fields)
		if err != nil {
			return models.TreasuryYields{}, err
		}
		record.Source = merged.Provenance["yields"]
		return record, nil
	})

	return concernResult(models.ConcernTreasuryYields, record, err)
}

func (f *Facade) inflation(ctx context.Context) models.ConcernResult {
	concern := f.concerns[models.ConcernInflation]
	req := models.Request{Concern: concern}

	record, err := cache.GetOrCompute(ctx, f.cacheLayer, concern.CacheKey(""), concern.TTL, func() (models.InflationData, error) {
		merged, err := f.orchestrator.Resolve(ctx, req, fallback.ResolveOptions{
			Check: func(fields map[string]any) error {
				_, err := normalizeInflation(f.validator, fields)
				return err
			},
		})
		if err != nil {
			return models.InflationData{}, err
		}
		record, err := normalizeInflation(f.validator, merged.Fields)
		if err != nil {
			return models.InflationData{}, err
		}
		record.Source = merged.Provenance["cpiYoY"]
		return record, nil
	})

	return concernResult(models.ConcernInflation, record, err)
}

func (f *Facade) fedPolicy(ctx context.Context) models.ConcernResult {
	concern := f.concerns[models.ConcernFedPolicy]
	req := models.Request{Concern: concern}

	record, err := cache.GetOrCompute(ctx, f.cacheLayer, concern.CacheKey(""), concern.TTL, func() (models.FedPolicy, error) {
		merged, err := f.orchestrator.Resolve(ctx, req, fallback.ResolveOptions{
			Check: func(fields map[string]any) error {
				_, err := normalizeFedPolicy(f.validator, fields)
				return err
			},
		})
		if err != nil {
			return models.FedPolicy{}, err
		}
		record, err := normalizeFedPolicy(f.validator, merged.Fields)
		if err != nil {
			return models.FedPolicy{}, err
		}
		record.Source = merged.Provenance["rateUpperPct"]
		return record, nil
	})

	return concernResult(models.ConcernFedPolicy, record, err)
}

func (f *Facade) geopoliticalRisks(ctx context.Context) models.ConcernResult {
	concern := f.concerns[models.ConcernGeopoliticalRisks]

	report, err := cache.GetOrCompute(ctx, f.cacheLayer, geopolitics.CacheKeyPipeline, concern.TTL, func() (*models.GeoRiskReport, error) {
		report := f.pipeline.Run(ctx)
		// The report is also published under the legacy shared key for
		// consumers that predate the pipeline.
		if err := cache.PutAs(ctx, f.cacheLayer, geopolitics.CacheKeyLegacy, report, concern.TTL); err != nil {
			f.logger.Warn().Err(err).Msg("Legacy geopolitics cache write failed")
		}
		return report, nil
	})

	result := concernResult(models.ConcernGeopoliticalRisks, report, err)
	if err == nil && report.Source == "placeholder" {
		result.Success = false
		result.Message = "all geopolitical providers failed; placeholder returned"
	}
	return result
}

func (f *Facade) fundamentals(ctx context.Context, symbols []string) models.ConcernResult {
	concern := f.concerns[models.ConcernFundamentals]

	// Per-symbol failure domains: one bad symbol does not sink the concern.
	records := make(map[string]models.StockFundamentals, len(symbols))
	var lastErr error
	for _, symbol := range symbols {
		symbol := symbol
		req := models.Request{Concern: concern, Symbol: symbol}

		record, err := cache.GetOrCompute(ctx, f.cacheLayer, concern.CacheKey(symbol), concern.TTL, func() (models.StockFundamentals, error) {
			merged, err := f.orchestrator.Resolve(ctx, req, fallback.ResolveOptions{
				Check: func(fields map[string]any) error {
					probe := &models.MergedRecord{Concern: concern.Name, Fields: fields, FetchedAt: time.Now()}
					_, err := normalizeFundamentals(f.validator, probe, symbol)
					return err
				},
				Complete: fundamentalsComplete,
			})
			if err != nil {
				return models.StockFundamentals{}, err
			}
			return normalizeFundamentals(f.validator, merged, symbol)
		})
		if err != nil {
			lastErr = err
			f.logger.Warn().Err(err).Str("symbol", symbol).Msg("Fundamentals retrieval failed")
			continue
		}
		records[symbol] = record
	}

	if len(records) == 0 {
		err := lastErr
		if err == nil {
			err = apperrors.ErrDataNotFound
		}
		return models.ConcernResult{
			Concern:   models.ConcernFundamentals,
			Success:   false,
			Message:   err.Error(),
			Payload:   map[string]models.StockFundamentals{},
			Timestamp: time.Now(),
		}
	}

	result := models.ConcernResult{
		Concern:   models.ConcernFundamentals,
		Success:   true,
		Message:   "ok",
		Payload:   records,
		Timestamp: time.Now(),
	}
	if lastErr != nil {
		result.Message = "partial: " + lastErr.Error()
	}
	return result
}

// Invalidate clears every concern's cache keys together.
func (f *Facade) Invalidate(ctx context.Context, symbols []string) error {
	keys := []string{geopolitics.CacheKeyPipeline, geopolitics.CacheKeyLegacy}
	for _, concern := range f.concerns {
		if concern.Name == models.ConcernFundamentals {
			for _, symbol := range symbols {
				keys = append(keys, concern.CacheKey(symbol))
			}
			continue
		}
		keys = append(keys, concern.CacheKey(""))
	}
	return f.cacheLayer.Invalidate(ctx, keys...)
}

// concernResult packages a typed payload or failure into the in-band result
// shape. Failures carry a degenerate zero payload so downstream always
// receives a well-formed object.
func concernResult[T any](name models.ConcernName, payload T, err error) models.ConcernResult {
	result := models.ConcernResult{
		Concern:   name,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if err != nil {
		result.Success = false
		result.Message = err.Error()
		return result
	}
	result.Success = true
	result.Message = "ok"
	return result
}
