// Package auth provides HMAC-based API key authentication for the filter API.
package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/spelfilter/internal/types"
)

// APIKeyHeader is the metadata key carrying the API key.
const APIKeyHeader = "x-api-key"

// touchInterval throttles last_used_at writes for busy keys.
const touchInterval = time.Minute

type contextKey string

const ownerKey = contextKey("owner")

// KeyStore is the storage the authenticator needs. Implemented by *db.Store.
type KeyStore interface {
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*types.APIKey, error)
	TouchAPIKey(ctx context.Context, id types.APIKeyID, at time.Time) error
}

// Authenticator validates API keys against HMAC secrets held in memory and
// key hashes held in the store.
type Authenticator struct {
	secrets map[string][]byte
	keys    KeyStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuthenticator creates an authenticator. secrets maps secret ID to secret.
func NewAuthenticator(secrets map[string][]byte, keys KeyStore, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secrets: secrets, keys: keys, logger: logger, now: time.Now}
}

// Authenticate validates apiKey and returns the owner it belongs to.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	computed := ComputeHMAC(secret, apiKey)
	key, err := a.keys.GetAPIKeyByHash(ctx, hex.EncodeToString(computed))
	if errors.Is(err, types.ErrAPIKeyNotFound) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	stored, err := hex.DecodeString(key.KeyHash)
	if err != nil || !VerifyHMAC(stored, computed) {
		return "", ErrInvalidKey
	}
	if key.RevokedAt != nil {
		return "", ErrKeyRevoked
	}

	now := a.now()
	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) > touchInterval {
		if err := a.keys.TouchAPIKey(ctx, key.APIKeyID, now); err != nil {
			a.logger.Warn("failed to record api key use", "api_key_id", key.APIKeyID, "error", err)
		}
	}

	return key.Owner, nil
}

// UnaryInterceptor authenticates every unary call and stores the owner in
// the handler context. Methods in skip (full method names) are not
// authenticated.
func (a *Authenticator) UnaryInterceptor(skip ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]bool, len(skip))
	for _, m := range skip {
		open[m] = true
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		keys := md.Get(APIKeyHeader)
		if len(keys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		owner, err := a.Authenticate(ctx, keys[0])
		switch {
		case err == nil:
		case errors.Is(err, ErrKeyRevoked):
			return nil, status.Error(codes.PermissionDenied, err.Error())
		case errors.Is(err, ErrUnavailable):
			a.logger.Error("api key lookup failed", "method", info.FullMethod, "error", err)
			return nil, status.Error(codes.Unavailable, ErrUnavailable.Error())
		default:
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(WithOwner(ctx, owner), req)
	}
}

// WithOwner returns a context carrying the authenticated owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromContext returns the authenticated owner, or "" if none.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}
