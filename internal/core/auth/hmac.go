package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key layout: sf-v1-<secret_id>-<random>, 32 and 64 lowercase hex chars.
const (
	keyPrefix     = "sf"
	keyVersion    = "v1"
	secretIDLen   = 32
	randomDataLen = 64
)

// ParseAPIKey splits an API key into its secret ID and random part.
func ParseAPIKey(key string) (secretID, randomData string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0] != keyPrefix || parts[1] != keyVersion {
		return "", "", ErrInvalidKeyFormat
	}

	secretID, randomData = parts[2], parts[3]
	if len(secretID) != secretIDLen || len(randomData) != randomDataLen {
		return "", "", ErrInvalidKeyFormat
	}
	if !isLowerHex(secretID) || !isLowerHex(randomData) {
		return "", "", ErrInvalidKeyFormat
	}

	return secretID, randomData, nil
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// ComputeHMAC returns the HMAC-SHA256 of apiKey under secret.
func ComputeHMAC(secret []byte, apiKey string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return h.Sum(nil)
}

// VerifyHMAC compares two MACs in constant time.
func VerifyHMAC(expected, computed []byte) bool {
	return hmac.Equal(expected, computed)
}

// FormatAPIKey assembles a key from its parts.
func FormatAPIKey(secretID, randomData string) string {
	return fmt.Sprintf("%s-%s-%s-%s", keyPrefix, keyVersion, secretID, randomData)
}

// GenerateAPIKey creates a new key under the given secret. It returns the
// key, shown once to the user, and the hex MAC that is stored.
func GenerateAPIKey(secretID string, secret []byte) (key, keyHash string, err error) {
	if len(secretID) != secretIDLen || !isLowerHex(secretID) {
		return "", "", fmt.Errorf("secret_id must be %d lowercase hex chars", secretIDLen)
	}

	random := make([]byte, randomDataLen/2)
	if _, err := rand.Read(random); err != nil {
		return "", "", fmt.Errorf("failed to generate key material: %w", err)
	}

	key = FormatAPIKey(secretID, hex.EncodeToString(random))
	return key, hex.EncodeToString(ComputeHMAC(secret, key)), nil
}
