package geopolitics

import (
	"fmt"
	"strings"
	"time"

	"marketbrief/internal/models"
)

const discoverSystemPrompt = `You are a geopolitical analyst for financial markets. Respond only with JSON, no commentary.`

func discoverUserPrompt(now time.Time, maxEvents int) string {
	return fmt.Sprintf(`List the %d most market-relevant geopolitical events from roughly the last 48 to 72 hours (today is %s).
Return a JSON array where each element is:
{"headline": string, "date": "YYYY-MM-DD", "description": string, "region": string, "source": string, "url": string}
Every element must include headline, date, description, region and source. Do not include events older than three days.`,
		maxEvents, now.UTC().Format("2006-01-02"))
}

const analyzeSystemPrompt = `You are a geopolitical risk analyst assessing market impact for a financial newsletter. Respond only with JSON, no commentary.`

func analyzeUserPrompt(event models.GeoEvent) string {
	var sb strings.Builder
	sb.WriteString("Analyze the market risk of this geopolitical event:\n")
	sb.WriteString(fmt.Sprintf("Headline: %s\n", event.Headline))
	sb.WriteString(fmt.Sprintf("Date: %s\n", event.Date.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Region: %s\n", event.Region))
	sb.WriteString(fmt.Sprintf("Description: %s\n\n", event.Description))
	sb.WriteString(`Return JSON:
{"impactScore": number between 1 and 10, "marketImpact": string of at most 3 sentences, "sectorImpacts": [string], "expertOpinions": [string]}`)
	return sb.String()
}
