package ml

import "errors"

// Sentinel errors returned by the model and prediction layers. Callers
// match them with errors.Is; wrapped messages carry the detail.
var (
	// ErrModelNotFound means no artifact exists at the resolved path.
	ErrModelNotFound = errors.New("model not found")

	// ErrModelCorrupt means the artifact exists but is not valid JSON.
	ErrModelCorrupt = errors.New("model corrupt")

	// ErrModelInvalid means the artifact decoded but fails structural
	// validation, such as an out-of-range child index.
	ErrModelInvalid = errors.New("model invalid")

	// ErrUnsupportedFormat means the request payload has a shape the
	// normalizer cannot turn into rows.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrPredictionFailed wraps any failure inside the model call.
	ErrPredictionFailed = errors.New("prediction failed")
)
