package providers

import (
	"context"
	"fmt"
	"time"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// avMaturities maps curve terms to Alpha Vantage maturity params, in
// ascending term order.
var avMaturities = []struct {
	term     string
	maturity string
}{
	{"3m", "3month"},
	{"2y", "2year"},
	{"5y", "5year"},
	{"10y", "10year"},
	{"30y", "30year"},
}

// AlphaVantageAdapter fetches rates from the Alpha Vantage economic API, the
// alternate source behind FRED.
type AlphaVantageAdapter struct {
	apiKey string
	base   string
	http   *httpClient
	retry  utils.RetryConfig
}

// NewAlphaVantageAdapter creates an Alpha Vantage adapter. baseURL is
// overridable for tests; pass "" for the real endpoint.
func NewAlphaVantageAdapter(apiKey, baseURL string, retry utils.RetryConfig) *AlphaVantageAdapter {
	if baseURL == "" {
		baseURL = alphaVantageBaseURL
	}
	return &AlphaVantageAdapter{
		apiKey: apiKey,
		base:   baseURL,
		http:   newHTTPClient("alphavantage"),
		retry:  retry,
	}
}

// Name returns the provider name.
func (a *AlphaVantageAdapter) Name() string { return "alphavantage" }

type avParams struct {
	Function string `url:"function"`
	Interval string `url:"interval,omitempty"`
	Maturity string `url:"maturity,omitempty"`
	APIKey   string `url:"apikey"`
}

type avDataPoint struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type avSeriesResponse struct {
	Name string        `json:"name"`
	Data []avDataPoint `json:"data"`
	// Alpha Vantage reports throttling inside a 200 body.
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// Fetch retrieves the concern's data from Alpha Vantage.
func (a *AlphaVantageAdapter) Fetch(ctx context.Context, req models.Request) models.ProviderResult {
	return run(ctx, a.Name(), a.retry, req, func() (map[string]any, error) {
		if err := requireKey(a.Name(), a.apiKey); err != nil {
			return nil, err
		}

		switch req.Concern.Name {
		case models.ConcernTreasuryYields:
			return a.fetchTreasuryYields(ctx)
		case models.ConcernInflation:
			return a.fetchInflation(ctx)
		default:
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("unsupported concern %s", req.Concern.Name), apperrors.ErrBadRequest)
		}
	})
}

func (a *AlphaVantageAdapter) series(ctx context.Context, params avParams) ([]avDataPoint, error) {
	params.APIKey = a.apiKey

	var resp avSeriesResponse
	if err := a.http.getJSON(ctx, a.base, params, &resp); err != nil {
		return nil, err
	}
	if resp.Note != "" || resp.Information != "" {
		// Rate-limit notices arrive as 200s with an explanatory body.
		return nil, apperrors.NewTransientError(a.Name(), "throttled", apperrors.ErrRateLimited)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewTransientError(a.Name(), "series empty", apperrors.ErrDataNotFound)
	}
	return resp.Data, nil
}

func (a *AlphaVantageAdapter) fetchTreasuryYields(ctx context.Context) (map[string]any, error) {
	yields := make([]models.TreasuryYield, 0, len(avMaturities))
	for _, m := range avMaturities {
		data, err := a.series(ctx, avParams{
			Function: "TREASURY_YIELD",
			Interval: "daily",
			Maturity: m.maturity,
		})
		if err != nil {
			return nil, err
		}

		latest, ok := asFloat(data[0].Value)
		if !ok {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("unparseable %s yield", m.maturity), apperrors.ErrBadRequest)
		}
		asOf, err := time.Parse("2006-01-02", data[0].Date)
		if err != nil {
			return nil, apperrors.NewPermanentError(a.Name(), "unparseable series date", err)
		}

		y := models.TreasuryYield{Term: m.term, YieldPct: latest, AsOf: asOf}
		if len(data) > 1 {
			if prev, ok := asFloat(data[1].Value); ok {
				y.ChangePct = latest - prev
			}
		}
		yields = append(yields, y)
	}

	return map[string]any{"yields": yields}, nil
}

func (a *AlphaVantageAdapter) fetchInflation(ctx context.Context) (map[string]any, error) {
	// The CPI function returns index levels; the year-over-year rate is
	// computed against the observation twelve months back.
	data, err := a.series(ctx, avParams{Function: "CPI", Interval: "monthly"})
	if err != nil {
		return nil, err
	}
	if len(data) < 13 {
		return nil, apperrors.NewTransientError(a.Name(), "insufficient CPI history", apperrors.ErrDataNotFound)
	}

	latest, okL := asFloat(data[0].Value)
	yearAgo, okY := asFloat(data[12].Value)
	if !okL || !okY || yearAgo == 0 {
		return nil, apperrors.NewPermanentError(a.Name(), "unparseable CPI levels", apperrors.ErrBadRequest)
	}

	fields := map[string]any{
		"cpiYoY": (latest - yearAgo) / yearAgo * 100,
	}
	if asOf, err := time.Parse("2006-01-02", data[0].Date); err == nil {
		fields["asOf"] = asOf
	}
	return fields, nil
}
