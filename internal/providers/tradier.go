package providers

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

const tradierBaseURL = "https://api.tradier.com/v1"

// TradierAdapter fetches quotes from the brokerage API. It is the
// highest-priority fundamentals source and supplies the price-side fields;
// the profile APIs backfill the ratio fields it does not carry.
type TradierAdapter struct {
	apiKey string
	base   string
	http   *httpClient
	retry  utils.RetryConfig
}

// NewTradierAdapter creates a Tradier adapter. baseURL is overridable for
// tests; pass "" for the real endpoint.
func NewTradierAdapter(apiKey, baseURL string, retry utils.RetryConfig) *TradierAdapter {
	if baseURL == "" {
		baseURL = tradierBaseURL
	}
	h := newHTTPClient("tradier")
	h.header.Set("Authorization", "Bearer "+apiKey)
	return &TradierAdapter{apiKey: apiKey, base: baseURL, http: h, retry: retry}
}

// Name returns the provider name.
func (a *TradierAdapter) Name() string { return "tradier" }

type tradierQuoteParams struct {
	Symbols string `url:"symbols"`
}

type tradierQuote struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	Last        float64 `json:"last"`
	Week52High  float64 `json:"week_52_high"`
	Week52Low   float64 `json:"week_52_low"`
}

// The quotes member is an object for one symbol and an array for many;
// quoteEnvelope tolerates both.
type tradierResponse struct {
	Quotes struct {
		Quote json.RawMessage `json:"quote"`
	} `json:"quotes"`
}

// Fetch retrieves quote fields for one symbol.
func (a *TradierAdapter) Fetch(ctx context.Context, req models.Request) models.ProviderResult {
	return run(ctx, a.Name(), a.retry, req, func() (map[string]any, error) {
		if err := requireKey(a.Name(), a.apiKey); err != nil {
			return nil, err
		}
		if req.Concern.Name != models.ConcernFundamentals || req.Symbol == "" {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("unsupported request for concern %s", req.Concern.Name), apperrors.ErrBadRequest)
		}

		var resp tradierResponse
		url := fmt.Sprintf("%s/markets/quotes", a.base)
		if err := a.http.getJSON(ctx, url, tradierQuoteParams{Symbols: req.Symbol}, &resp); err != nil {
			return nil, err
		}

		quote, err := decodeTradierQuote(resp.Quotes.Quote)
		if err != nil {
			return nil, apperrors.NewPermanentError(a.Name(), "decoding quote", err)
		}
		if quote.Symbol == "" {
			return nil, apperrors.NewPermanentError(a.Name(),
				fmt.Sprintf("symbol %s not found", req.Symbol), apperrors.ErrDataNotFound)
		}

		fields := map[string]any{
			"symbol": quote.Symbol,
			"price":  quote.Last,
		}
		if quote.Description != "" {
			fields["companyName"] = quote.Description
		}
		return fields, nil
	})
}

func decodeTradierQuote(raw json.RawMessage) (tradierQuote, error) {
	var one tradierQuote
	if err := json.Unmarshal(raw, &one); err == nil {
		return one, nil
	}
	var many []tradierQuote
	if err := json.Unmarshal(raw, &many); err != nil {
		return tradierQuote{}, err
	}
	if len(many) == 0 {
		return tradierQuote{}, nil
	}
	return many[0], nil
}
