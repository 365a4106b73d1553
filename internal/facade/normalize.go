package facade

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/extract"
	"marketbrief/internal/models"
	"marketbrief/internal/validate"
)

// termRank orders curve terms ascending for presentation.
var termRank = map[string]int{"1m": 0, "3m": 1, "6m": 2, "1y": 3, "2y": 4, "5y": 5, "10y": 6, "30y": 7}

func normalizeTreasuryYields(v *validate.Validator, fields map[string]any) (models.TreasuryYields, error) {
	var record models.TreasuryYields

	yields, err := yieldsFromFields(fields)
	if err != nil {
		return record, err
	}

	sort.SliceStable(yields, func(i, j int) bool {
		return termRank[yields[i].Term] < termRank[yields[j].Term]
	})

	curve, err := models.DeriveCurve(yields)
	if err != nil {
		return record, err
	}

	record = models.TreasuryYields{
		Yields:    yields,
		Curve:     curve,
		FetchedAt: time.Now(),
	}
	if errs := v.Struct(record); len(errs) > 0 {
		return models.TreasuryYields{}, errs[0]
	}
	return record, nil
}

// yieldsFromFields accepts both the in-process typed slice produced by
// adapters and the generic shape a JSON roundtrip yields.
func yieldsFromFields(fields map[string]any) ([]models.TreasuryYield, error) {
	raw, ok := fields["yields"]
	if !ok {
		return nil, apperrors.NewValidationError("yields", nil, "missing")
	}

	if typed, ok := raw.([]models.TreasuryYield); ok {
		return typed, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, apperrors.Wrap(err, "re-encoding yields")
	}
	var yields []models.TreasuryYield
	if err := json.Unmarshal(encoded, &yields); err != nil {
		return nil, apperrors.NewValidationError("yields", nil, "unexpected shape")
	}
	if len(yields) == 0 {
		return nil, apperrors.NewValidationError("yields", nil, "empty")
	}
	return yields, nil
}

func normalizeInflation(v *validate.Validator, fields map[string]any) (models.InflationData, error) {
	var record models.InflationData
	if err := extract.Decode(fields, &record); err != nil {
		return record, err
	}
	if record.AsOf.IsZero() {
		return models.InflationData{}, apperrors.NewValidationError("asOf", nil, "missing")
	}

	record.Trend = inflationTrend(record.CPIYoY)
	if errs := v.Struct(record); len(errs) > 0 {
		return models.InflationData{}, errs[0]
	}
	return record, nil
}

func inflationTrend(cpiYoY float64) string {
	switch {
	case cpiYoY >= 4:
		return "Elevated"
	case cpiYoY >= 2.5:
		return "Above target"
	case cpiYoY >= 1:
		return "Near target"
	default:
		return "Subdued"
	}
}

func normalizeFedPolicy(v *validate.Validator, fields map[string]any) (models.FedPolicy, error) {
	var record models.FedPolicy
	if err := extract.Decode(fields, &record); err != nil {
		return record, err
	}
	if record.AsOf.IsZero() {
		return models.FedPolicy{}, apperrors.NewValidationError("asOf", nil, "missing")
	}
	if record.Stance == "" {
		record.Stance = "Holding"
	}
	if errs := v.Struct(record); len(errs) > 0 {
		return models.FedPolicy{}, errs[0]
	}
	return record, nil
}

// fundamentalsFields is the full field set backfill aims to complete.
var fundamentalsFields = []string{
	"companyName", "sector", "industry", "price", "marketCap",
	"peRatio", "pbRatio", "dividendYield", "eps", "beta", "roe", "debtToEquity",
}

func normalizeFundamentals(v *validate.Validator, merged *models.MergedRecord, symbol string) (models.StockFundamentals, error) {
	var record models.StockFundamentals
	if err := extract.Decode(merged.Fields, &record); err != nil {
		return record, err
	}
	if record.Symbol == "" {
		record.Symbol = symbol
	}
	record.Provenance = merged.Provenance
	record.FetchedAt = merged.FetchedAt

	if errs := v.Struct(record); len(errs) > 0 {
		return models.StockFundamentals{}, errs[0]
	}
	if record.Price == 0 && record.MarketCap == 0 {
		return models.StockFundamentals{}, apperrors.NewValidationError("price", nil,
			fmt.Sprintf("no usable fields for %s", symbol))
	}
	return record, nil
}

func fundamentalsComplete(fields map[string]any) bool {
	for _, key := range fundamentalsFields {
		if _, ok := fields[key]; !ok {
			return false
		}
	}
	return true
}
