package providers

import (
	"context"
	"fmt"
	"time"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

const fredBaseURL = "https://api.stlouisfed.org/fred/series/observations"

// treasurySeries maps curve terms to FRED series ids, in ascending term order.
var treasurySeries = []struct {
	term   string
	series string
}{
	{"3m", "DGS3MO"},
	{"2y", "DGS2"},
	{"5y", "DGS5"},
	{"10y", "DGS10"},
	{"30y", "DGS30"},
}

// FREDAdapter fetches rate series from the government FRED API.
type FREDAdapter struct {
	apiKey string
	base   string
	http   *httpClient
	retry  utils.RetryConfig
}

// NewFREDAdapter creates a FRED adapter. baseURL is overridable for tests;
// pass "" for the real endpoint.
func NewFREDAdapter(apiKey, baseURL string, retry utils.RetryConfig) *FREDAdapter {
	if baseURL == "" {
		baseURL = fredBaseURL
	}
	return &FREDAdapter{
		apiKey: apiKey,
		base:   baseURL,
		http:   newHTTPClient("fred"),
		retry:  retry,
	}
}

// Name returns the provider name.
func (a *FREDAdapter) Name() string { return "fred" }

type fredParams struct {
	SeriesID  string `url:"series_id"`
	APIKey    string `url:"api_key"`
	FileType  string `url:"file_type"`
	SortOrder string `url:"sort_order"`
	Limit     int    `url:"limit"`
	Units     string `url:"units,omitempty"`
}

type fredObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type fredResponse struct {
	Observations []fredObservation `json:"observations"`
}

// Fetch retrieves the concern's series set from FRED.
func (a *FREDAdapter) Fetch(ctx context.Context, req models.Request) models.ProviderResult {
	return run(ctx, a.Name(), a.retry, req, func() (map[string]any, error) {
		if err := requireKey(a.Name(), a.apiKey); err != nil {
			return nil, err
		}

		switch req.Concern.Name {
		case models.ConcernTreasuryYields:
			return a.fetchTreasuryYields(ctx)
		case models.ConcernInflation:
			return a.fetchInflation(ctx)
		case models.ConcernFedPolicy:
			return a.fetchFedPolicy(ctx)
		default:
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("unsupported concern %s", req.Concern.Name), apperrors.ErrBadRequest)
		}
	})
}

// latest returns the newest numeric observations of a series, newest first.
// FRED publishes missing days as ".", which are skipped.
func (a *FREDAdapter) latest(ctx context.Context, seriesID, units string, n int) ([]fredObservation, error) {
	var resp fredResponse
	err := a.http.getJSON(ctx, a.base, fredParams{
		SeriesID:  seriesID,
		APIKey:    a.apiKey,
		FileType:  "json",
		SortOrder: "desc",
		Limit:     n + 5,
		Units:     units,
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]fredObservation, 0, n)
	for _, obs := range resp.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		out = append(out, obs)
		if len(out) == n {
			break
		}
	}
	if len(out) == 0 {
		return nil, apperrors.NewTransientError(a.Name(),
			fmt.Sprintf("series %s has no observations", seriesID), apperrors.ErrDataNotFound)
	}
	return out, nil
}

func (a *FREDAdapter) fetchTreasuryYields(ctx context.Context) (map[string]any, error) {
	yields := make([]models.TreasuryYield, 0, len(treasurySeries))
	for _, s := range treasurySeries {
		obs, err := a.latest(ctx, s.series, "", 2)
		if err != nil {
			return nil, err
		}

		latest, ok := asFloat(obs[0].Value)
		if !ok {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("unparseable observation for %s", s.series), apperrors.ErrBadRequest)
		}
		asOf, err := time.Parse("2006-01-02", obs[0].Date)
		if err != nil {
			return nil, apperrors.NewPermanentError(a.Name(), "unparseable observation date", err)
		}

		y := models.TreasuryYield{Term: s.term, YieldPct: latest, AsOf: asOf}
		if len(obs) > 1 {
			if prev, ok := asFloat(obs[1].Value); ok {
				y.ChangePct = latest - prev
			}
		}
		yields = append(yields, y)
	}

	return map[string]any{"yields": yields}, nil
}

func (a *FREDAdapter) fetchInflation(ctx context.Context) (map[string]any, error) {
	// units=pc1 asks FRED for the percent change from a year ago directly.
	cpi, err := a.latest(ctx, "CPIAUCSL", "pc1", 1)
	if err != nil {
		return nil, err
	}
	core, err := a.latest(ctx, "CPILFESL", "pc1", 1)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if v, ok := asFloat(cpi[0].Value); ok {
		fields["cpiYoY"] = v
	}
	if v, ok := asFloat(core[0].Value); ok {
		fields["coreCpiYoY"] = v
	}
	if asOf, err := time.Parse("2006-01-02", cpi[0].Date); err == nil {
		fields["asOf"] = asOf
	}

	// PCE is best-effort backfill material.
	if pce, err := a.latest(ctx, "PCEPI", "pc1", 1); err == nil {
		if v, ok := asFloat(pce[0].Value); ok {
			fields["pceYoY"] = v
		}
	}

	return fields, nil
}

func (a *FREDAdapter) fetchFedPolicy(ctx context.Context) (map[string]any, error) {
	lower, err := a.latest(ctx, "DFEDTARL", "", 2)
	if err != nil {
		return nil, err
	}
	upper, err := a.latest(ctx, "DFEDTARU", "", 2)
	if err != nil {
		return nil, err
	}

	lo, okLo := asFloat(lower[0].Value)
	hi, okHi := asFloat(upper[0].Value)
	if !okLo || !okHi {
		return nil, apperrors.NewPermanentError(a.Name(), "unparseable target range", apperrors.ErrBadRequest)
	}

	stance := "Holding"
	if len(upper) > 1 {
		if prev, ok := asFloat(upper[1].Value); ok {
			switch {
			case hi > prev:
				stance = "Tightening"
			case hi < prev:
				stance = "Easing"
			}
		}
	}

	fields := map[string]any{
		"rateLowerPct": lo,
		"rateUpperPct": hi,
		"stance":       stance,
	}
	if asOf, err := time.Parse("2006-01-02", upper[0].Date); err == nil {
		fields["asOf"] = asOf
	}
	return fields, nil
}
