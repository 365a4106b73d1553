package models

import (
	"testing"
	"time"
)

func yieldSet(y2, y10 float64) []TreasuryYield {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	return []TreasuryYield{
		{Term: "2y", YieldPct: y2, AsOf: asOf},
		{Term: "10y", YieldPct: y10, AsOf: asOf},
	}
}

func TestDeriveCurve(t *testing.T) {
	tests := []struct {
		name       string
		y2, y10    float64
		wantSpread float64
		wantStatus YieldCurveStatus
	}{
		{"normal", 3.90, 4.32, 0.42, CurveNormal},
		{"flat", 4.10, 4.30, 0.20, CurveFlat},
		{"inverted", 4.80, 4.30, -0.50, CurveInverted},
		{"zero spread is flat", 4.30, 4.30, 0, CurveFlat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			curve, err := DeriveCurve(yieldSet(tt.y2, tt.y10))
			if err != nil {
				t.Fatalf("DeriveCurve() error: %v", err)
			}
			if diff := curve.Spread10Y2Y - tt.wantSpread; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("spread = %v, want %v", curve.Spread10Y2Y, tt.wantSpread)
			}
			if curve.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", curve.Status, tt.wantStatus)
			}
			if curve.Narrative == "" {
				t.Error("narrative is empty")
			}
		})
	}
}

func TestDeriveCurveMissingPivot(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	_, err := DeriveCurve([]TreasuryYield{{Term: "10y", YieldPct: 4.3, AsOf: asOf}})
	if err == nil {
		t.Error("expected error when the 2y term is missing")
	}
}

func TestImpactLevelFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  ImpactLevel
	}{
		{10, ImpactSevere},
		{8, ImpactSevere},
		{7.9, ImpactHigh},
		{6, ImpactHigh},
		{5.5, ImpactMedium},
		{4, ImpactMedium},
		{3.9, ImpactLow},
		{1, ImpactLow},
	}
	for _, tt := range tests {
		if got := ImpactLevelFromScore(tt.score); got != tt.want {
			t.Errorf("ImpactLevelFromScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestRiskIndexFromScores(t *testing.T) {
	// mean of [9 7 5 3 2 8 6] is 40/7; x10 rounds to 57.
	got := RiskIndexFromScores([]float64{9, 7, 5, 3, 2, 8, 6})
	if got != 57 {
		t.Errorf("RiskIndexFromScores = %d, want 57", got)
	}

	if got := RiskIndexFromScores(nil); got != 0 {
		t.Errorf("empty scores = %d, want 0", got)
	}
	if got := RiskIndexFromScores([]float64{10, 10}); got != 100 {
		t.Errorf("max scores = %d, want 100", got)
	}
}

func TestConcernCacheKey(t *testing.T) {
	c := Concern{Name: ConcernFundamentals}
	if got := c.CacheKey(""); got != "concern:fundamentals" {
		t.Errorf("CacheKey() = %q", got)
	}
	if got := c.CacheKey("AAPL"); got != "concern:fundamentals:AAPL" {
		t.Errorf("CacheKey(AAPL) = %q", got)
	}
}
