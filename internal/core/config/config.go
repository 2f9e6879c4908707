// Package config provides configuration management for the spelfilter services.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/solatis/spelfilter/internal/types"
)

// EnvPrefix is prepended to every environment variable the services read.
const EnvPrefix = "SF"

// Environment variables holding HMAC secrets. Secrets are never read from
// config files.
const (
	hmacSecretEnv       = EnvPrefix + "_HMAC_SECRET"
	hmacSecretEnvPrefix = EnvPrefix + "_HMAC_SECRET_"
)

// minSecretBytes is the shortest accepted HMAC secret.
const minSecretBytes = 32

// FilterAPIConfig holds configuration for the gRPC filter API service.
type FilterAPIConfig struct {
	Host           string
	Port           int
	MaxConnections int // concurrent streams per client connection
	RequestTimeout time.Duration
	MaxBatchSize   int    // inline records accepted by one Filter call
	MaxQueryLength int    // bytes, capped at types.MaxQueryLength
	DataDir        string // holds the SQLite database when no --db-url is given
}

// DefaultFilterAPIConfig returns configuration with default values.
func DefaultFilterAPIConfig() *FilterAPIConfig {
	return &FilterAPIConfig{
		Host:           "0.0.0.0",
		Port:           50061,
		MaxConnections: 1000,
		RequestTimeout: 30 * time.Second,
		MaxBatchSize:   1000,
		MaxQueryLength: types.MaxQueryLength,
		DataDir:        "./data",
	}
}

// Addr returns host:port for net.Listen.
func (c *FilterAPIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HMACSecrets reads API key secrets from SF_HMAC_SECRET and the rotation
// slots SF_HMAC_SECRET_1, SF_HMAC_SECRET_2, ... (stopping at the first gap).
// The result maps secret ID to decoded secret bytes.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, secret, err := ParseHMACSecret(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("%s: duplicate secret_id '%s' (check %s and %s* for conflicts)",
				key, secretID, hmacSecretEnv, hmacSecretEnvPrefix)
		}
		secrets[secretID] = secret
		return nil
	}

	if val := os.Getenv(hmacSecretEnv); val != "" {
		if err := add(hmacSecretEnv, val); err != nil {
			return nil, err
		}
	}

	for i := 1; ; i++ {
		key := fmt.Sprintf("%s%d", hmacSecretEnvPrefix, i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecret parses one `<secret_id>:<base64_secret>` entry. The secret
// ID is 32 lowercase hex chars (a UUIDv7 without hyphens) and the decoded
// secret must be at least 32 bytes.
func ParseHMACSecret(envValue string) (secretID string, secret []byte, err error) {
	secretID, encoded, ok := strings.Cut(strings.TrimSpace(envValue), ":")
	if !ok {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	if len(secretID) != 32 || strings.ToLower(secretID) != secretID {
		return "", nil, fmt.Errorf("secret_id must be 32 lowercase hex chars (UUIDv7 without hyphens)")
	}
	if _, err := hex.DecodeString(secretID); err != nil {
		return "", nil, fmt.Errorf("secret_id must be hex chars only")
	}

	secret, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < minSecretBytes {
		return "", nil, fmt.Errorf("secret must be at least %d bytes, got %d", minSecretBytes, len(secret))
	}

	return secretID, secret, nil
}

// SigningSecret returns the SF_HMAC_SECRET entry, the secret that signs
// newly issued API keys. Rotation slots only verify existing keys.
func SigningSecret() (secretID string, secret []byte, err error) {
	val := os.Getenv(hmacSecretEnv)
	if val == "" {
		return "", nil, fmt.Errorf("%s not set", hmacSecretEnv)
	}
	secretID, secret, err = ParseHMACSecret(val)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", hmacSecretEnv, err)
	}
	return secretID, secret, nil
}
