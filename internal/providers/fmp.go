package providers

import (
	"context"
	"fmt"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPAdapter fetches company profiles and trailing ratios from the Financial
// Modeling Prep API, the first of the two profile/ratio sources.
type FMPAdapter struct {
	apiKey string
	base   string
	http   *httpClient
	retry  utils.RetryConfig
}

// NewFMPAdapter creates an FMP adapter. baseURL is overridable for tests;
// pass "" for the real endpoint.
func NewFMPAdapter(apiKey, baseURL string, retry utils.RetryConfig) *FMPAdapter {
	if baseURL == "" {
		baseURL = fmpBaseURL
	}
	return &FMPAdapter{
		apiKey: apiKey,
		base:   baseURL,
		http:   newHTTPClient("fmp"),
		retry:  retry,
	}
}

// Name returns the provider name.
func (a *FMPAdapter) Name() string { return "fmp" }

type fmpKeyParams struct {
	APIKey string `url:"apikey"`
}

type fmpProfile struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Sector      string  `json:"sector"`
	Industry    string  `json:"industry"`
	Price       float64 `json:"price"`
	MktCap      float64 `json:"mktCap"`
	Beta        float64 `json:"beta"`
}

type fmpRatios struct {
	PERatioTTM       float64 `json:"peRatioTTM"`
	PBRatioTTM       float64 `json:"priceToBookRatioTTM"`
	DividendYieldTTM float64 `json:"dividendYielTTM"`
	EPSTTM           float64 `json:"netIncomePerShareTTM"`
	ROETTM           float64 `json:"returnOnEquityTTM"`
	DebtToEquityTTM  float64 `json:"debtEquityRatioTTM"`
}

// Fetch retrieves profile and ratio fields for one symbol.
func (a *FMPAdapter) Fetch(ctx context.Context, req models.Request) models.ProviderResult {
	return run(ctx, a.Name(), a.retry, req, func() (map[string]any, error) {
		if err := requireKey(a.Name(), a.apiKey); err != nil {
			return nil, err
		}
		if req.Concern.Name != models.ConcernFundamentals || req.Symbol == "" {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("unsupported request for concern %s", req.Concern.Name), apperrors.ErrBadRequest)
		}

		var profiles []fmpProfile
		url := fmt.Sprintf("%s/profile/%s", a.base, req.Symbol)
		if err := a.http.getJSON(ctx, url, fmpKeyParams{APIKey: a.apiKey}, &profiles); err != nil {
			return nil, err
		}
		if len(profiles) == 0 {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("symbol %s not found", req.Symbol), apperrors.ErrDataNotFound)
		}
		p := profiles[0]

		fields := map[string]any{
			"symbol": p.Symbol,
		}
		putNonEmpty(fields, "companyName", p.CompanyName)
		putNonEmpty(fields, "sector", p.Sector)
		putNonEmpty(fields, "industry", p.Industry)
		putNonZero(fields, "price", p.Price)
		putNonZero(fields, "marketCap", p.MktCap)
		putNonZero(fields, "beta", p.Beta)

		// Ratios are best effort; the profile alone is a usable result.
		var ratios []fmpRatios
		url = fmt.Sprintf("%s/ratios-ttm/%s", a.base, req.Symbol)
		if err := a.http.getJSON(ctx, url, fmpKeyParams{APIKey: a.apiKey}, &ratios); err == nil && len(ratios) > 0 {
			r := ratios[0]
			putNonZero(fields, "peRatio", r.PERatioTTM)
			putNonZero(fields, "pbRatio", r.PBRatioTTM)
			putNonZero(fields, "dividendYield", r.DividendYieldTTM*100)
			putNonZero(fields, "eps", r.EPSTTM)
			putNonZero(fields, "roe", r.ROETTM*100)
			putNonZero(fields, "debtToEquity", r.DebtToEquityTTM)
		}

		return fields, nil
	})
}

func putNonEmpty(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func putNonZero(fields map[string]any, key string, value float64) {
	if value != 0 {
		fields[key] = value
	}
}
