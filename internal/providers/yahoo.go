package providers

import (
	"context"
	"fmt"
	"time"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// yahooTerms maps curve terms to the legacy yield index symbols, in ascending
// term order.
var yahooTerms = []struct {
	term   string
	symbol string
}{
	{"3m", "^IRX"},
	{"2y", "2YY=F"},
	{"5y", "^FVX"},
	{"10y", "^TNX"},
	{"30y", "^TYX"},
}

// YahooAdapter scrapes the legacy quote endpoint. It is the last-resort rates
// source behind the series APIs.
type YahooAdapter struct {
	base  string
	http  *httpClient
	retry utils.RetryConfig
}

// NewYahooAdapter creates a Yahoo adapter. baseURL is overridable for tests;
// pass "" for the real endpoint. The endpoint is unauthenticated.
func NewYahooAdapter(baseURL string, retry utils.RetryConfig) *YahooAdapter {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	h := newHTTPClient("yahoo")
	// The legacy endpoint rejects requests without a browser-ish agent.
	h.header.Set("User-Agent", "Mozilla/5.0 (compatible; marketbrief/1.0)")
	return &YahooAdapter{base: baseURL, http: h, retry: retry}
}

// Name returns the provider name.
func (a *YahooAdapter) Name() string { return "yahoo" }

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves treasury yields from the legacy quote endpoint.
func (a *YahooAdapter) Fetch(ctx context.Context, req models.Request) models.ProviderResult {
	return run(ctx, a.Name(), a.retry, req, func() (map[string]any, error) {
		if req.Concern.Name != models.ConcernTreasuryYields {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("unsupported concern %s", req.Concern.Name), apperrors.ErrBadRequest)
		}
		return a.fetchTreasuryYields(ctx)
	})
}

func (a *YahooAdapter) fetchTreasuryYields(ctx context.Context) (map[string]any, error) {
	yields := make([]models.TreasuryYield, 0, len(yahooTerms))
	for _, t := range yahooTerms {
		var resp yahooChartResponse
		if err := a.http.getJSON(ctx, fmt.Sprintf("%s/%s", a.base, t.symbol), nil, &resp); err != nil {
			return nil, err
		}
		if resp.Chart.Error != nil {
			return nil, apperrors.NewPermanentError(a.Name(), resp.Chart.Error.Description, apperrors.ErrBadRequest)
		}
		if len(resp.Chart.Result) == 0 {
			return nil, apperrors.NewTransientError(a.Name(),
				fmt.Sprintf("no quote for %s", t.symbol), apperrors.ErrDataNotFound)
		}

		meta := resp.Chart.Result[0].Meta
		yield := normalizeYieldQuote(meta.RegularMarketPrice)
		prev := normalizeYieldQuote(meta.PreviousClose)

		y := models.TreasuryYield{
			Term:     t.term,
			YieldPct: yield,
			AsOf:     time.Unix(meta.RegularMarketTime, 0).UTC(),
		}
		if prev > 0 {
			y.ChangePct = yield - prev
		}
		yields = append(yields, y)
	}

	return map[string]any{"yields": yields}, nil
}

// normalizeYieldQuote maps the CBOE yield-index scale (10x the yield) back to
// a percentage when the vendor returns the undivided index level.
func normalizeYieldQuote(v float64) float64 {
	if v > 20 {
		return v / 10
	}
	return v
}
