package models

import (
	"math"
	"time"
)

// ImpactLevel is the bucketed severity of a geopolitical risk.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "Low"
	ImpactMedium ImpactLevel = "Medium"
	ImpactHigh   ImpactLevel = "High"
	ImpactSevere ImpactLevel = "Severe"
)

// ImpactLevelFromScore buckets a 1-10 impact score. Levels are always derived
// through this function, never set directly.
func ImpactLevelFromScore(score float64) ImpactLevel {
	switch {
	case score >= 8:
		return ImpactSevere
	case score >= 6:
		return ImpactHigh
	case score >= 4:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// GeoEvent is a discovery-stage candidate event. It exists only between the
// discover and analyze stages and is never cached.
type GeoEvent struct {
	Headline    string    `json:"headline" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Region      string    `json:"region" validate:"required"`
	Source      string    `json:"source" validate:"required"`
	URL         string    `json:"url"`
}

// GeoRiskAnalysis is one fully analyzed geopolitical risk.
type GeoRiskAnalysis struct {
	Name           string      `json:"name" validate:"required"`
	Description    string      `json:"description" validate:"required"`
	Region         string      `json:"region" validate:"required"`
	ImpactScore    float64     `json:"impactScore" validate:"gte=1,lte=10"`
	ImpactLevel    ImpactLevel `json:"impactLevel" validate:"required,oneof=Low Medium High Severe"`
	MarketImpact   string      `json:"marketImpact"`
	SectorImpacts  []string    `json:"sectorImpacts,omitempty"`
	ExpertOpinions []string    `json:"expertOpinions,omitempty"`
	Source         string      `json:"source"`
	SourceURL      string      `json:"sourceUrl"`
	LastUpdated    time.Time   `json:"lastUpdated"`
}

// GeoRiskReport is the consolidated geopolitical-risk record.
type GeoRiskReport struct {
	RiskIndex int               `json:"riskIndex" validate:"gte=0,lte=100"`
	Overview  string            `json:"overview"`
	Risks     []GeoRiskAnalysis `json:"risks" validate:"required,min=1,dive"`
	Source    string            `json:"source"`
	FetchedAt time.Time         `json:"fetchedAt"`
}

// RiskIndexFromScores computes round(mean(score) x 10) over the surviving
// analyses.
func RiskIndexFromScores(scores []float64) int {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(sum / float64(len(scores)) * 10))
}
