package models

import (
	"fmt"
	"time"
)

// YieldCurveStatus classifies the 10y-2y spread.
type YieldCurveStatus string

const (
	CurveNormal   YieldCurveStatus = "Normal"
	CurveFlat     YieldCurveStatus = "Flat"
	CurveInverted YieldCurveStatus = "Inverted"
)

// flatSpreadThreshold is the 10y-2y spread below which the curve is
// considered flat rather than normal (percentage points).
const flatSpreadThreshold = 0.25

// TreasuryYield is one point on the curve.
type TreasuryYield struct {
	Term      string    `json:"term" validate:"required"`
	YieldPct  float64   `json:"yieldPct" validate:"gte=0,lte=25"`
	ChangePct float64   `json:"changePct"`
	AsOf      time.Time `json:"asOf" validate:"required"`
}

// YieldCurve is the derived curve summary.
type YieldCurve struct {
	Spread10Y2Y float64          `json:"spread10y2y"`
	Status      YieldCurveStatus `json:"status" validate:"required,oneof=Normal Flat Inverted"`
	Narrative   string           `json:"narrative"`
}

// TreasuryYields is the normalized treasury-yield record: yields in ascending
// term order plus the derived curve summary.
type TreasuryYields struct {
	Yields    []TreasuryYield `json:"yields" validate:"required,min=1,dive"`
	Curve     YieldCurve      `json:"curve"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// DeriveCurve computes the 10y-2y spread summary from the yield set.
// Returns an error when either pivot term is absent.
func DeriveCurve(yields []TreasuryYield) (YieldCurve, error) {
	var y10, y2 *TreasuryYield
	for i := range yields {
		switch yields[i].Term {
		case "2y":
			y2 = &yields[i]
		case "10y":
			y10 = &yields[i]
		}
	}
	if y10 == nil || y2 == nil {
		return YieldCurve{}, fmt.Errorf("yield curve needs both 2y and 10y terms")
	}

	spread := y10.YieldPct - y2.YieldPct
	curve := YieldCurve{Spread10Y2Y: spread}
	switch {
	case spread < 0:
		curve.Status = CurveInverted
		curve.Narrative = fmt.Sprintf("The yield curve is inverted (10y-2y spread %.2f%%), a pattern that has historically preceded recessions.", spread)
	case spread < flatSpreadThreshold:
		curve.Status = CurveFlat
		curve.Narrative = fmt.Sprintf("The yield curve is flat (10y-2y spread %.2f%%), signaling uncertainty about the growth outlook.", spread)
	default:
		curve.Status = CurveNormal
		curve.Narrative = fmt.Sprintf("The yield curve is normal (10y-2y spread %.2f%%), consistent with expectations of continued growth.", spread)
	}
	return curve, nil
}

// InflationData is the normalized inflation record.
type InflationData struct {
	CPIYoY     float64   `json:"cpiYoY" validate:"gte=-5,lte=30"`
	CoreCPIYoY float64   `json:"coreCpiYoY" validate:"gte=-5,lte=30"`
	PCEYoY     float64   `json:"pceYoY,omitempty"`
	Trend      string    `json:"trend"`
	AsOf       time.Time `json:"asOf" validate:"required"`
	Source     string    `json:"source"`
}

// FedPolicy is the normalized Fed policy record.
type FedPolicy struct {
	RateLowerPct  float64   `json:"rateLowerPct" validate:"gte=0,lte=25"`
	RateUpperPct  float64   `json:"rateUpperPct" validate:"gte=0,lte=25,gtefield=RateLowerPct"`
	Stance        string    `json:"stance"`
	NextMeeting   string    `json:"nextMeeting,omitempty"`
	Commentary    string    `json:"commentary,omitempty"`
	AsOf          time.Time `json:"asOf" validate:"required"`
	Source        string    `json:"source"`
}

// StockFundamentals is the normalized per-symbol fundamentals record.
// Provenance records which provider supplied each populated field; downstream
// analysis depends on it.
type StockFundamentals struct {
	Symbol        string            `json:"symbol" validate:"required"`
	CompanyName   string            `json:"companyName,omitempty"`
	Sector        string            `json:"sector,omitempty"`
	Industry      string            `json:"industry,omitempty"`
	Price         float64           `json:"price,omitempty"`
	MarketCap     float64           `json:"marketCap,omitempty"`
	PERatio       float64           `json:"peRatio,omitempty"`
	PBRatio       float64           `json:"pbRatio,omitempty"`
	DividendYield float64           `json:"dividendYield,omitempty"`
	EPS           float64           `json:"eps,omitempty"`
	Beta          float64           `json:"beta,omitempty"`
	ROE           float64           `json:"roe,omitempty"`
	DebtToEquity  float64           `json:"debtToEquity,omitempty"`
	Provenance    map[string]string `json:"provenance,omitempty"`
	FetchedAt     time.Time         `json:"fetchedAt"`
}
