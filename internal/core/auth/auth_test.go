package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/spelfilter/internal/types"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

var testSecret = []byte("0123456789abcdef0123456789abcdef-test-secret")

type memoryKeys struct {
	keys    map[string]*types.APIKey
	touched []types.APIKeyID
	err     error
}

func (m *memoryKeys) GetAPIKeyByHash(_ context.Context, keyHash string) (*types.APIKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	k, ok := m.keys[keyHash]
	if !ok {
		return nil, types.ErrAPIKeyNotFound
	}
	return k, nil
}

func (m *memoryKeys) TouchAPIKey(_ context.Context, id types.APIKeyID, _ time.Time) error {
	m.touched = append(m.touched, id)
	return nil
}

func newTestAuth(t *testing.T) (*Authenticator, *memoryKeys, string) {
	t.Helper()
	key, hash, err := GenerateAPIKey(testSecretID, testSecret)
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v, want nil", err)
	}
	store := &memoryKeys{keys: map[string]*types.APIKey{
		hash: {APIKeyID: "key-1", Owner: "owner-1", SecretID: testSecretID, KeyHash: hash},
	}}
	a := NewAuthenticator(map[string][]byte{testSecretID: testSecret}, store, nil)
	return a, store, key
}

func TestParseAPIKey(t *testing.T) {
	random := strings.Repeat("ab", 32)
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid", key: FormatAPIKey(testSecretID, random)},
		{name: "wrong prefix", key: "tk-v1-" + testSecretID + "-" + random, wantErr: true},
		{name: "wrong version", key: "sf-v2-" + testSecretID + "-" + random, wantErr: true},
		{name: "short secret id", key: "sf-v1-abc-" + random, wantErr: true},
		{name: "short random", key: "sf-v1-" + testSecretID + "-abc", wantErr: true},
		{name: "uppercase hex", key: "sf-v1-" + strings.ToUpper(testSecretID) + "-" + random, wantErr: true},
		{name: "extra segment", key: FormatAPIKey(testSecretID, random) + "-x", wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secretID, data, err := ParseAPIKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKeyFormat) {
					t.Errorf("ParseAPIKey() error = %v, want %v", err, ErrInvalidKeyFormat)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAPIKey() error = %v, want nil", err)
			}
			if secretID != testSecretID || data != random {
				t.Errorf("ParseAPIKey() = %s, %s", secretID, data)
			}
		})
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, hash, err := GenerateAPIKey(testSecretID, testSecret)
	if err != nil {
		t.Fatalf("GenerateAPIKey() error = %v, want nil", err)
	}
	if _, _, err := ParseAPIKey(key); err != nil {
		t.Errorf("ParseAPIKey(generated) error = %v, want nil", err)
	}
	if len(hash) != 64 {
		t.Errorf("len(hash) = %d, want 64", len(hash))
	}

	other, _, _ := GenerateAPIKey(testSecretID, testSecret)
	if other == key {
		t.Errorf("GenerateAPIKey() returned the same key twice")
	}

	if _, _, err := GenerateAPIKey("nothex", testSecret); err == nil {
		t.Errorf("GenerateAPIKey(bad id) error = nil, want error")
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	a, store, key := newTestAuth(t)

	owner, err := a.Authenticate(ctx, key)
	if err != nil {
		t.Fatalf("Authenticate() error = %v, want nil", err)
	}
	if owner != "owner-1" {
		t.Errorf("Authenticate() = %s, want owner-1", owner)
	}
	if len(store.touched) != 1 {
		t.Errorf("touched = %v, want one touch", store.touched)
	}

	// A recent use is not written again.
	for _, k := range store.keys {
		used := time.Now()
		k.LastUsedAt = &used
	}
	if _, err := a.Authenticate(ctx, key); err != nil {
		t.Fatalf("Authenticate() error = %v, want nil", err)
	}
	if len(store.touched) != 1 {
		t.Errorf("touched = %v, want throttled", store.touched)
	}

	unknown := FormatAPIKey("fedcba9876543210fedcba9876543210", strings.Repeat("0", 64))
	if _, err := a.Authenticate(ctx, unknown); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Authenticate(unknown secret) error = %v, want %v", err, ErrUnknownKey)
	}

	forged := FormatAPIKey(testSecretID, strings.Repeat("0", 64))
	if _, err := a.Authenticate(ctx, forged); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Authenticate(forged) error = %v, want %v", err, ErrInvalidKey)
	}

	for _, k := range store.keys {
		revoked := time.Now()
		k.RevokedAt = &revoked
	}
	if _, err := a.Authenticate(ctx, key); !errors.Is(err, ErrKeyRevoked) {
		t.Errorf("Authenticate(revoked) error = %v, want %v", err, ErrKeyRevoked)
	}

	store.err = errors.New("connection refused")
	if _, err := a.Authenticate(ctx, key); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Authenticate(store down) error = %v, want %v", err, ErrUnavailable)
	}
}

func TestUnaryInterceptor(t *testing.T) {
	a, store, key := newTestAuth(t)
	interceptor := a.UnaryInterceptor("/grpc.health.v1.Health/Check")

	var gotOwner string
	handler := func(ctx context.Context, req any) (any, error) {
		gotOwner = OwnerFromContext(ctx)
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/spelfilter.v1.FilterService/Check"}

	tests := []struct {
		name     string
		md       metadata.MD
		setup    func()
		wantCode codes.Code
	}{
		{name: "valid key", md: metadata.Pairs(APIKeyHeader, key), wantCode: codes.OK},
		{name: "missing key", md: metadata.Pairs("other", "x"), wantCode: codes.Unauthenticated},
		{name: "malformed key", md: metadata.Pairs(APIKeyHeader, "nope"), wantCode: codes.Unauthenticated},
		{
			name:     "store unavailable",
			md:       metadata.Pairs(APIKeyHeader, key),
			setup:    func() { store.err = errors.New("down") },
			wantCode: codes.Unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.err = nil
			gotOwner = ""
			if tt.setup != nil {
				tt.setup()
			}
			ctx := metadata.NewIncomingContext(context.Background(), tt.md)
			_, err := interceptor(ctx, nil, info, handler)
			if got := status.Code(err); got != tt.wantCode {
				t.Fatalf("interceptor code = %v, want %v (err %v)", got, tt.wantCode, err)
			}
			if tt.wantCode == codes.OK && gotOwner != "owner-1" {
				t.Errorf("OwnerFromContext() = %q, want owner-1", gotOwner)
			}
		})
	}

	t.Run("skipped method", func(t *testing.T) {
		store.err = nil
		health := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
		if _, err := interceptor(context.Background(), nil, health, handler); err != nil {
			t.Errorf("interceptor(health) error = %v, want nil", err)
		}
	})
}
