package geopolitics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/models"
	"marketbrief/internal/validate"
)

// fakeChat scripts one response for the discovery prompt and a queue of
// responses for the per-event analysis prompts.
type fakeChat struct {
	name        string
	discover    string
	discoverErr error
	analyze     []string
	analyzeErr  error

	analyzeCalls int
}

func (f *fakeChat) Name() string { return f.name }

func (f *fakeChat) CompleteWithSystem(_ context.Context, systemPrompt, _ string) (string, error) {
	if systemPrompt == discoverSystemPrompt {
		return f.discover, f.discoverErr
	}
	if f.analyzeErr != nil {
		return "", f.analyzeErr
	}
	i := f.analyzeCalls
	f.analyzeCalls++
	if i >= len(f.analyze) {
		return "", apperrors.ErrEmptyResponse
	}
	return f.analyze[i], nil
}

func eventJSON(headline string, date time.Time) string {
	return fmt.Sprintf(`{"headline": %q, "date": %q, "description": "Details of %s.", "region": "Europe", "source": "wire", "url": "https://example.com/%s"}`,
		headline, date.Format("2006-01-02"), headline, headline)
}

func analysisJSON(score float64) string {
	return fmt.Sprintf(`{"impactScore": %v, "marketImpact": "Volatility expected.", "sectorImpacts": ["energy"], "expertOpinions": ["watch closely"]}`, score)
}

func newTestPipeline(primary, secondary *fakeChat) *Pipeline {
	var p *Pipeline
	if secondary != nil {
		p = New(primary, secondary, validate.New(), 7*24*time.Hour, 14*24*time.Hour)
	} else {
		p = New(primary, nil, validate.New(), 7*24*time.Hour, 14*24*time.Hour)
	}
	return p.WithClock(func() time.Time { return testNow })
}

func TestPipelineHappyPath(t *testing.T) {
	fresh := testNow.Add(-24 * time.Hour)
	primary := &fakeChat{
		name:     "openai",
		discover: "[" + eventJSON("eventA", fresh) + "," + eventJSON("eventB", fresh) + "]",
		analyze:  []string{analysisJSON(8), analysisJSON(5)},
	}

	report := newTestPipeline(primary, nil).Run(context.Background())

	require.Len(t, report.Risks, 2)
	assert.Equal(t, "openai", report.Source)
	assert.Equal(t, 65, report.RiskIndex, "mean of 8 and 5 is 6.5, scaled to 65")
	assert.Equal(t, "eventA", report.Risks[0].Name, "risks sort by descending score")
	assert.NotEmpty(t, report.Overview)
}

func TestPipelineDropsStaleCandidates(t *testing.T) {
	fresh := testNow.Add(-24 * time.Hour)
	stale := testNow.Add(-10 * 24 * time.Hour)
	primary := &fakeChat{
		name:     "openai",
		discover: "[" + eventJSON("stale", stale) + "," + eventJSON("fresh", fresh) + "]",
		analyze:  []string{analysisJSON(6)},
	}

	report := newTestPipeline(primary, nil).Run(context.Background())

	require.Len(t, report.Risks, 1)
	assert.Equal(t, "fresh", report.Risks[0].Name)
	assert.Equal(t, 1, primary.analyzeCalls, "stale candidates must never reach the analyze stage")
}

func TestPipelinePerItemAnalysisFailure(t *testing.T) {
	fresh := testNow.Add(-24 * time.Hour)
	primary := &fakeChat{
		name:     "openai",
		discover: "[" + eventJSON("good", fresh) + "," + eventJSON("bad", fresh) + "]",
		analyze:  []string{analysisJSON(7), "the model rambled and produced no json"},
	}

	report := newTestPipeline(primary, nil).Run(context.Background())

	require.Len(t, report.Risks, 1, "one bad analysis drops that item alone")
	assert.Equal(t, "good", report.Risks[0].Name)
	assert.Equal(t, "openai", report.Source)
}

func TestPipelineFallsBackToSecondary(t *testing.T) {
	fresh := testNow.Add(-24 * time.Hour)
	primary := &fakeChat{
		name:        "openai",
		discoverErr: apperrors.NewTransientError("openai", "down", apperrors.ErrServerError),
	}
	secondary := &fakeChat{
		name:     "perplexity",
		discover: "[" + eventJSON("eventA", fresh) + "]",
		analyze:  []string{analysisJSON(6)},
	}

	report := newTestPipeline(primary, secondary).Run(context.Background())

	require.Len(t, report.Risks, 1)
	assert.Equal(t, "perplexity", report.Source)
}

func TestPipelineZeroSurvivorsTriggersFallback(t *testing.T) {
	stale := testNow.Add(-30 * 24 * time.Hour)
	primary := &fakeChat{
		name:     "openai",
		discover: "[" + eventJSON("ancient", stale) + "]",
	}
	fresh := testNow.Add(-24 * time.Hour)
	secondary := &fakeChat{
		name:     "perplexity",
		discover: "[" + eventJSON("current", fresh) + "]",
		analyze:  []string{analysisJSON(4)},
	}

	report := newTestPipeline(primary, secondary).Run(context.Background())

	assert.Equal(t, "perplexity", report.Source, "a survivor-free discovery must escalate to the secondary provider")
}

func TestPipelinePlaceholderWhenAllProvidersFail(t *testing.T) {
	down := apperrors.NewTransientError("x", "down", apperrors.ErrServerError)
	primary := &fakeChat{name: "openai", discoverErr: down}
	secondary := &fakeChat{name: "perplexity", discoverErr: down}

	report := newTestPipeline(primary, secondary).Run(context.Background())

	require.NotNil(t, report)
	assert.Equal(t, "placeholder", report.Source)
	assert.Equal(t, 50, report.RiskIndex, "the placeholder assumes a neutral 5.0 score")
	require.Len(t, report.Risks, 1)
	assert.Equal(t, models.ImpactMedium, report.Risks[0].ImpactLevel)
}

func TestPipelineCapsCandidates(t *testing.T) {
	fresh := testNow.Add(-24 * time.Hour)
	var events string
	for i := 0; i < 10; i++ {
		if i > 0 {
			events += ","
		}
		events += eventJSON(fmt.Sprintf("event%d", i), fresh)
	}
	analyses := make([]string, maxCandidates)
	for i := range analyses {
		analyses[i] = analysisJSON(5)
	}
	primary := &fakeChat{name: "openai", discover: "[" + events + "]", analyze: analyses}

	newTestPipeline(primary, nil).Run(context.Background())

	assert.Equal(t, maxCandidates, primary.analyzeCalls, "discovery is capped before analysis")
}
