package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product record is not in the catalog
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrUnknownCandidateField is returned when a merge targets a list the context does not have
	ErrUnknownCandidateField = errors.New("unknown candidate field")

	// ErrSchemaValidation is returned when a generated record does not satisfy the product contract
	ErrSchemaValidation = errors.New("product schema validation failed")

	// ErrGenerationFailed is returned when the structured-generation service request fails
	ErrGenerationFailed = errors.New("structured generation request failed")

	// ErrGeneratorUnavailable is returned when no structured-generation service is configured
	ErrGeneratorUnavailable = errors.New("structured generation service not configured")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
