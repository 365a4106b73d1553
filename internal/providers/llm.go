package providers

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/extract"
	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

// ChatClient is the minimal chat-completion surface the pipeline needs.
type ChatClient interface {
	// Name identifies the backing provider.
	Name() string
	// CompleteWithSystem sends a system and user prompt and returns the raw
	// response text, which may wrap JSON in prose or code fences.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ChatOptions tune the completion requests.
type ChatOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIChatClient implements ChatClient over the OpenAI API.
type OpenAIChatClient struct {
	name   string
	client *openai.Client
	opts   ChatOptions
}

// NewOpenAIChatClient creates an OpenAI-backed chat client.
func NewOpenAIChatClient(apiKey string, opts ChatOptions) *OpenAIChatClient {
	return &OpenAIChatClient{
		name:   "openai",
		client: openai.NewClient(apiKey),
		opts:   opts,
	}
}

// NewPerplexityChatClient creates a Perplexity-backed chat client. The API is
// OpenAI-compatible, so the same client works with the base URL swapped.
func NewPerplexityChatClient(apiKey, baseURL string, opts ChatOptions) *OpenAIChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIChatClient{
		name:   "perplexity",
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
	}
}

// Name returns the provider name.
func (c *OpenAIChatClient) Name() string { return c.name }

// CompleteWithSystem sends a prompt with system message to the LLM.
func (c *OpenAIChatClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", classifyChatError(c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewTransientError(c.name, "no choices in response", apperrors.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyChatError(name string, err error) error {
	var apiErr *openai.APIError
	if apperrors.As(err, &apiErr) {
		return apperrors.FromStatusCode(name, apiErr.HTTPStatusCode)
	}
	if apperrors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTransientError(name, "completion timed out", apperrors.ErrTimeout)
	}
	return apperrors.NewTransientError(name, "completion failed", err)
}

// LLMAdapter exposes a chat client as a regular provider adapter for the
// macro concerns, extracting the structured payload out of the response text.
type LLMAdapter struct {
	chat  ChatClient
	retry utils.RetryConfig
}

// NewLLMAdapter wraps a chat client as an Adapter.
func NewLLMAdapter(chat ChatClient, retry utils.RetryConfig) *LLMAdapter {
	return &LLMAdapter{chat: chat, retry: retry}
}

// Name returns the provider name.
func (a *LLMAdapter) Name() string { return a.chat.Name() }

// Fetch asks the model for the concern's record and extracts it.
func (a *LLMAdapter) Fetch(ctx context.Context, req models.Request) models.ProviderResult {
	return run(ctx, a.Name(), a.retry, req, func() (map[string]any, error) {
		system, user, err := macroPrompt(req.Concern.Name)
		if err != nil {
			return nil, err
		}

		text, err := a.chat.CompleteWithSystem(ctx, system, user)
		if err != nil {
			return nil, err
		}

		fields, err := extract.ExtractJSON(text)
		if err != nil {
			return nil, err
		}
		return normalizeLLMFields(fields), nil
	})
}

const macroSystemPrompt = `You are a financial data assistant. Respond with a single JSON object and no commentary. Use numbers for numeric fields and ISO 8601 dates.`

func macroPrompt(concern models.ConcernName) (string, string, error) {
	today := time.Now().UTC().Format("2006-01-02")
	switch concern {
	case models.ConcernInflation:
		return macroSystemPrompt, fmt.Sprintf(
			"Report the latest US inflation readings as of %s. "+
				`Return JSON: {"cpiYoY": number, "coreCpiYoY": number, "pceYoY": number, "asOf": "YYYY-MM-DD"}`, today), nil
	case models.ConcernFedPolicy:
		return macroSystemPrompt, fmt.Sprintf(
			"Report the current Federal Reserve policy stance as of %s. "+
				`Return JSON: {"rateLowerPct": number, "rateUpperPct": number, "stance": "Tightening|Holding|Easing", "nextMeeting": "YYYY-MM-DD", "commentary": string, "asOf": "YYYY-MM-DD"}`, today), nil
	default:
		return "", "", apperrors.NewPermanentError("llm",
			fmt.Sprintf("unsupported concern %s", concern), apperrors.ErrBadRequest)
	}
}

// normalizeLLMFields coerces extracted date strings into time.Time so the
// merged record carries the same types as the REST adapters produce.
func normalizeLLMFields(fields map[string]any) map[string]any {
	for _, key := range []string{"asOf", "date", "lastUpdated"} {
		if s, ok := fields[key].(string); ok {
			if t, err := utils.ParseFlexibleDate(s); err == nil {
				fields[key] = t
			}
		}
	}
	return fields
}
