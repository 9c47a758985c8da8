package contract

import "errors"

var (
	ErrValidation            = errors.New("validation failed")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrStateStore            = errors.New("state store failure")
	ErrPromptMissing         = errors.New("required prompt is missing")

	// Recovered locally; only ever logged.
	ErrClassificationFormat = errors.New("classifier output is not a known intent")
	ErrExtractionParse      = errors.New("lead record could not be parsed")
)
