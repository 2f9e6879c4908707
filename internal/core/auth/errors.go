package auth

import "errors"

// Authentication failures. Missing, malformed, unknown and invalid keys map
// to Unauthenticated without revealing which check failed; a revoked key
// maps to PermissionDenied.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
	ErrUnavailable      = errors.New("key store unavailable")
)
