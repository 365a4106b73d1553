// Package providers implements one adapter per upstream data source. An
// adapter fetches one provider's view of a concern, maps vendor fields and
// units into the shared shape, and never lets an error cross the
// ProviderResult boundary. Vendor field names do not leak past this package.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"

	apperrors "marketbrief/internal/errors"
	"marketbrief/internal/logging"
	"marketbrief/internal/metrics"
	"marketbrief/internal/models"
	"marketbrief/pkg/utils"
)

// defaultTimeout bounds every upstream call.
const defaultTimeout = 20 * time.Second

// Adapter fetches one provider's view of a concern.
type Adapter interface {
	// Name returns the unique provider name used in concern configuration.
	Name() string
	// Fetch retrieves and field-maps the provider's data for the request.
	// All errors are caught internally and carried in the result.
	Fetch(ctx context.Context, req models.Request) models.ProviderResult
}

// run executes fn under the retry policy and converts any terminal error,
// including retry exhaustion, into a ProviderResult failure.
func run(ctx context.Context, name string, retry utils.RetryConfig, req models.Request, fn func() (map[string]any, error)) models.ProviderResult {
	logger := logging.WithProvider(logging.FromContext(ctx), name)
	start := time.Now()

	attempt := 0
	fields, err := utils.RetryWithResult(ctx, retry, func() (map[string]any, error) {
		if attempt > 0 {
			metrics.Retries.WithLabelValues(name).Inc()
		}
		attempt++
		return fn()
	})

	logging.LogProviderCall(logger, name, string(req.Concern.Name), time.Since(start), err)

	if err != nil {
		metrics.ProviderCalls.WithLabelValues(name, string(req.Concern.Name), metrics.OutcomeFailure).Inc()
		return models.ProviderResult{
			Provider:  name,
			Success:   false,
			Err:       err,
			FetchedAt: time.Now(),
		}
	}

	metrics.ProviderCalls.WithLabelValues(name, string(req.Concern.Name), metrics.OutcomeSuccess).Inc()
	return models.ProviderResult{
		Provider:  name,
		Success:   true,
		Fields:    fields,
		FetchedAt: time.Now(),
	}
}

// httpClient is the shared HTTP plumbing for REST adapters.
type httpClient struct {
	name   string
	client *http.Client
	header http.Header
}

func newHTTPClient(name string) *httpClient {
	return &httpClient{
		name:   name,
		client: &http.Client{Timeout: defaultTimeout},
		header: make(http.Header),
	}
}

// getJSON performs a GET with struct-encoded query params and decodes the
// JSON body. HTTP statuses and transport failures are classified into the
// transient/permanent taxonomy.
func (h *httpClient) getJSON(ctx context.Context, rawURL string, params any, out any) error {
	u := rawURL
	if params != nil {
		vals, err := query.Values(params)
		if err != nil {
			return apperrors.NewPermanentError(h.name, "encoding query params", err)
		}
		u = rawURL + "?" + vals.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperrors.NewPermanentError(h.name, "building request", err)
	}
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return classifyTransport(h.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.FromStatusCode(h.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperrors.NewTransientError(h.name, "reading response body", err)
	}
	if len(body) == 0 {
		return apperrors.NewTransientError(h.name, "empty body", apperrors.ErrEmptyResponse)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewPermanentError(h.name, "decoding response", err)
	}
	return nil
}

func classifyTransport(name string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return apperrors.NewTransientError(name, "request timed out", apperrors.ErrTimeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTransientError(name, "request timed out", apperrors.ErrTimeout)
	}
	return apperrors.NewTransientError(name, "transport failure", err)
}

// requireKey guards adapters whose provider is unconfigured: a missing API key
// is a permanent failure, advancing fallback immediately without retries.
func requireKey(name, key string) error {
	if key == "" {
		return apperrors.NewPermanentError(name, "missing API key", apperrors.ErrNotConfigured)
	}
	return nil
}

// asFloat converts the loosely typed numbers found in vendor payloads.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
