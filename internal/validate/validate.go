// Package validate enforces schema, range, enum and recency rules on records
// before they are cached or handed downstream.
package validate

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "marketbrief/internal/errors"
)

// Validator wraps a shared struct validator with domain recency rules.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New creates a Validator. The clock is injectable for tests.
func New() *Validator {
	return &Validator{
		v:   validator.New(validator.WithRequiredStructEnabled()),
		now: time.Now,
	}
}

// WithClock returns a copy using the given clock.
func (va *Validator) WithClock(now func() time.Time) *Validator {
	return &Validator{v: va.v, now: now}
}

// Struct validates a record against its struct tags (required, ranges, enum
// membership). Failures are returned as a slice of field-level errors.
func (va *Validator) Struct(record any) []error {
	err := va.v.Struct(record)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []error{err}
	}

	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.NewValidationError(
			fe.Field(), fe.Value(), fmt.Sprintf("failed rule %q", fe.Tag())))
	}
	return out
}

// Recency rejects records whose embedded date is in the future or older than
// the lookback window. Dates are never coerced: a stale or future record is
// dropped outright. The boundary day passes: a date exactly lookback old is
// accepted.
func (va *Validator) Recency(field string, date time.Time, lookback time.Duration) error {
	if date.IsZero() {
		return apperrors.NewValidationError(field, date, "date is required")
	}

	now := va.now()
	if date.After(now) {
		return apperrors.NewValidationError(field, date, "date is in the future")
	}
	if lookback > 0 && now.Sub(date) > lookback {
		return apperrors.NewValidationError(field, date,
			fmt.Sprintf("older than the %s lookback window", lookback))
	}
	return nil
}

// Record runs Struct validation plus a recency check in one call.
func (va *Validator) Record(record any, dateField string, date time.Time, lookback time.Duration) []error {
	errs := va.Struct(record)
	if err := va.Recency(dateField, date, lookback); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// FilterValid applies check to each item of a collection and keeps the
// survivors: a failing item is dropped and processing continues. The concern
// as a whole fails only when every item fails, which callers detect from an
// empty survivor set alongside a non-empty drop list.
func FilterValid[T any](items []T, check func(T) []error) (kept []T, dropped []error) {
	for _, item := range items {
		if errs := check(item); len(errs) > 0 {
			dropped = append(dropped, errs...)
			continue
		}
		kept = append(kept, item)
	}
	return kept, dropped
}
