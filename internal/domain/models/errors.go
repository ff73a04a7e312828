package models

import "errors"

var (
	// ErrFutureDateRequested is returned before any network attempt for a day after today.
	ErrFutureDateRequested = errors.New("requested date is in the future")
	// ErrAllSourcesExhausted means every tier failed; no synthetic data is produced.
	ErrAllSourcesExhausted = errors.New("all market data sources exhausted")
	// ErrNarrativeUnavailable is recovered into static fallback text and never reaches callers.
	ErrNarrativeUnavailable = errors.New("narrative unavailable")
	ErrInvalidDate          = errors.New("invalid date")
)
