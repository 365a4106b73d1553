// Package models provides domain models for the newsletter data-retrieval core.
package models

import (
	"time"
)

// ConcernName identifies a logical data domain to retrieve.
type ConcernName string

const (
	ConcernTreasuryYields    ConcernName = "treasuryYields"
	ConcernInflation         ConcernName = "inflation"
	ConcernFedPolicy         ConcernName = "fedPolicy"
	ConcernFundamentals      ConcernName = "fundamentals"
	ConcernGeopoliticalRisks ConcernName = "geopoliticalRisks"
)

// MergeStrategy controls how the orchestrator combines provider results.
type MergeStrategy string

const (
	// MergeFirstSuccess stops at the first provider whose result validates.
	MergeFirstSuccess MergeStrategy = "FIRST_SUCCESS"
	// MergeBackfill accumulates fields across providers in priority order;
	// later providers fill only fields still missing.
	MergeBackfill MergeStrategy = "BACKFILL"
)

// Concern describes one data domain: its provider chain in priority order,
// cache TTL, recency lookback and merge rule. Provider order and merge rule
// are configuration, not code.
type Concern struct {
	Name      ConcernName
	Providers []string
	TTL       time.Duration
	Lookback  time.Duration
	Merge     MergeStrategy
}

// CacheKey returns the concern-qualified cache key. Keys are collision-free
// by construction: concern names are distinct and the symbol suffix is
// separated by a colon.
func (c Concern) CacheKey(symbol string) string {
	if symbol == "" {
		return "concern:" + string(c.Name)
	}
	return "concern:" + string(c.Name) + ":" + symbol
}

// Request carries the parameters of one retrieval.
type Request struct {
	Concern Concern
	Symbol  string // set for per-symbol concerns such as fundamentals
}

// ProviderResult is the only thing an adapter may return. Adapters catch all
// errors internally; Err is carried as data, never thrown past the boundary.
type ProviderResult struct {
	Provider  string
	Success   bool
	Fields    map[string]any
	Err       error
	FetchedAt time.Time
}

// MergedRecord is the orchestrator's output before normalization: the
// accumulated fields plus the provider that supplied each one.
type MergedRecord struct {
	Concern    ConcernName
	Fields     map[string]any
	Provenance map[string]string // field name -> provider name
	FetchedAt  time.Time
}

// ConcernResult is the per-concern slot of a CompositeResult. Payload is the
// concern's typed normalized record; on failure it is a degenerate placeholder
// so downstream renderers always receive a well-formed object.
type ConcernResult struct {
	Concern   ConcernName `json:"concern"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// CompositeResult aggregates all concerns for one invocation. Success is the
// logical OR across concerns: the composite stays usable under partial failure.
type CompositeResult struct {
	Success   bool                          `json:"success"`
	Results   map[ConcernName]ConcernResult `json:"results"`
	Timestamp time.Time                     `json:"timestamp"`
}
