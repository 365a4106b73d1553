package geopolitics

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

// Truncation limits for consolidated items.
const (
	maxDescriptionSentences = 2
	maxImpactSentences      = 1
	truncationFallbackChars = 150
)

// themeVocabulary maps lowercase keywords to display themes. The match is a
// heuristic, not a closed taxonomy; its output is approximate and may vary
// across runs.
var themeVocabulary = []struct {
	keywords []string
	theme    string
}{
	{[]string{"war", "conflict", "military", "invasion", "strike", "attack", "troops"}, "armed conflict"},
	{[]string{"sanction", "tariff", "trade", "export control", "embargo"}, "trade tensions and sanctions"},
	{[]string{"election", "coup", "protest", "government", "political"}, "political instability"},
	{[]string{"oil", "energy", "opec", "gas", "pipeline"}, "energy supply risk"},
	{[]string{"cyber", "hack", "ransomware"}, "cyber threats"},
	{[]string{"nuclear", "missile", "weapons test"}, "nuclear and missile tensions"},
	{[]string{"shipping", "strait", "canal", "blockade"}, "shipping disruption"},
}

// trackingParams are stripped from source URLs during canonicalization.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true,
	"fbclid": true, "gclid": true, "ref": true, "cmpid": true,
}

// regionSections substitute a region-appropriate section URL when a provider
// returned a generic homepage link.
var regionSections = map[string]string{
	"europe":      "https://www.reuters.com/world/europe/",
	"asia":        "https://www.reuters.com/world/asia-pacific/",
	"middle east": "https://www.reuters.com/world/middle-east/",
	"africa":      "https://www.reuters.com/world/africa/",
	"americas":    "https://www.reuters.com/world/americas/",
}

const defaultSection = "https://www.reuters.com/world/"

// consolidate computes the risk index, buckets severities, truncates prose,
// derives the thematic overview, selects the top items by score and
// canonicalizes source URLs.
func (p *Pipeline) consolidate(analyses []models.GeoRiskAnalysis, source string) *models.GeoRiskReport {
	scores := make([]float64, 0, len(analyses))
	for i := range analyses {
		a := &analyses[i]
		scores = append(scores, a.ImpactScore)

		a.ImpactLevel = models.ImpactLevelFromScore(a.ImpactScore)
		a.Description = utils.TruncateSentences(a.Description, maxDescriptionSentences, truncationFallbackChars)
		a.MarketImpact = utils.TruncateSentences(a.MarketImpact, maxImpactSentences, truncationFallbackChars)
		a.SourceURL = canonicalizeURL(a.SourceURL, a.Region)
	}

	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].ImpactScore > analyses[j].ImpactScore
	})
	if len(analyses) > topRisks {
		analyses = analyses[:topRisks]
	}

	return &models.GeoRiskReport{
		RiskIndex: models.RiskIndexFromScores(scores),
		Overview:  deriveOverview(analyses),
		Risks:     analyses,
		Source:    source,
		FetchedAt: p.now(),
	}
}

// deriveOverview matches item text against the theme vocabulary; when no
// keyword matches it falls back to naming the leading risks directly.
func deriveOverview(analyses []models.GeoRiskAnalysis) string {
	var themes []string
	seen := make(map[string]bool)

	for _, a := range analyses {
		text := strings.ToLower(a.Name + " " + a.Description)
		for _, entry := range themeVocabulary {
			if seen[entry.theme] {
				continue
			}
			for _, kw := range entry.keywords {
				if strings.Contains(text, kw) {
					themes = append(themes, entry.theme)
					seen[entry.theme] = true
					break
				}
			}
		}
	}

	if len(themes) > 3 {
		themes = themes[:3]
	}
	if len(themes) > 0 {
		return fmt.Sprintf("Geopolitical risk is currently driven by %s.", joinNatural(themes))
	}

	// Generic name-based fallback.
	names := make([]string, 0, 2)
	for i, a := range analyses {
		if i == 2 {
			break
		}
		names = append(names, a.Name)
	}
	if len(names) == 0 {
		return "No dominant geopolitical theme identified."
	}
	return fmt.Sprintf("Key developments to watch: %s.", joinNatural(names))
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// canonicalizeURL strips tracking query parameters and substitutes a
// region-appropriate section URL when the link points at a bare homepage.
func canonicalizeURL(raw, region string) string {
	if raw == "" {
		return sectionForRegion(region)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return sectionForRegion(region)
	}

	// Homepage links carry no story path.
	if u.Path == "" || u.Path == "/" {
		return sectionForRegion(region)
	}

	q := u.Query()
	for param := range q {
		if trackingParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

func sectionForRegion(region string) string {
	if section, ok := regionSections[strings.ToLower(strings.TrimSpace(region))]; ok {
		return section
	}
	return defaultSection
}
