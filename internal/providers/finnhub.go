package providers

import (
	"context"
	"fmt"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubAdapter fetches company profiles and metrics from Finnhub, the
// second profile/ratio source. In the fundamentals chain it runs last and
// backfills whatever the brokerage and FMP left missing.
type FinnhubAdapter struct {
	apiKey string
	base   string
	http   *httpClient
	retry  utils.RetryConfig
}

// NewFinnhubAdapter creates a Finnhub adapter. baseURL is overridable for
// tests; pass "" for the real endpoint.
func NewFinnhubAdapter(apiKey, baseURL string, retry utils.RetryConfig) *FinnhubAdapter {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	return &FinnhubAdapter{
		apiKey: apiKey,
		base:   baseURL,
		http:   newHTTPClient("finnhub"),
		retry:  retry,
	}
}

// Name returns the provider name.
func (a *FinnhubAdapter) Name() string { return "finnhub" }

type finnhubParams struct {
	Symbol string `url:"symbol"`
	Metric string `url:"metric,omitempty"`
	Token  string `url:"token"`
}

type finnhubProfile struct {
	Name string `json:"name"`
	// Market capitalization arrives in millions.
	MarketCapitalization float64 `json:"marketCapitalization"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	Ticker               string  `json:"ticker"`
}

type finnhubMetrics struct {
	Metric map[string]any `json:"metric"`
}

// Fetch retrieves profile and metric fields for one symbol.
func (a *FinnhubAdapter) Fetch(ctx context.Context, req models.Request) models.ProviderResult {
	return run(ctx, a.Name(), a.retry, req, func() (map[string]any, error) {
		if err := requireKey(a.Name(), a.apiKey); err != nil {
			return nil, err
		}
		if req.Concern.Name != models.ConcernFundamentals || req.Symbol == "" {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("unsupported request for concern %s", req.Concern.Name), apperrors.ErrBadRequest)
		}

		var profile finnhubProfile
		url := fmt.Sprintf("%s/stock/profile2", a.base)
		if err := a.http.getJSON(ctx, url, finnhubParams{Symbol: req.Symbol, Token: a.apiKey}, &profile); err != nil {
			return nil, err
		}
		if profile.Ticker == "" {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("symbol %s not found", req.Symbol), apperrors.ErrDataNotFound)
		}

		fields := map[string]any{
			"symbol": profile.Ticker,
		}
		putNonEmpty(fields, "companyName", profile.Name)
		putNonEmpty(fields, "industry", profile.FinnhubIndustry)
		putNonZero(fields, "marketCap", profile.MarketCapitalization*1e6)

		// Metrics are best effort.
		var metrics finnhubMetrics
		url = fmt.Sprintf("%s/stock/metric", a.base)
		if err := a.http.getJSON(ctx, url, finnhubParams{Symbol: req.Symbol, Metric: "all", Token: a.apiKey}, &metrics); err == nil {
			mapped := map[string]string{
				"peTTM":                        "peRatio",
				"pbAnnual":                     "pbRatio",
				"dividendYieldIndicatedAnnual": "dividendYield",
				"epsTTM":                       "eps",
				"beta":                         "beta",
				"roeTTM":                       "roe",
				"totalDebt/totalEquityAnnual":  "debtToEquity",
			}
			for vendor, shared := range mapped {
				if v, ok := asFloat(metrics.Metric[vendor]); ok && v != 0 {
					fields[shared] = v
				}
			}
		}

		return fields, nil
	})
}
