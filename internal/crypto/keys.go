package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/cassiomorais/gateway/internal/domain/errors"
)

// KeyResolver resolves the encryption key for a merchant. A missing key is
// a configuration fault, not a business outcome.
type KeyResolver interface {
	Key(merchantID string) ([]byte, error)
}

// ConfigKeyResolver resolves merchant keys from configuration. Keys are
// supplied base64 encoded and must decode to 32 bytes (AES-256).
type ConfigKeyResolver struct {
	keys map[string][]byte
}

// NewConfigKeyResolver decodes the configured merchant key map.
func NewConfigKeyResolver(encoded map[string]string) (*ConfigKeyResolver, error) {
	keys := make(map[string][]byte, len(encoded))
	for merchantID, b64 := range encoded {
		key, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode key for merchant %s: %w", merchantID, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key for merchant %s must be 32 bytes, got %d", merchantID, len(key))
		}
		keys[merchantID] = key
	}
	return &ConfigKeyResolver{keys: keys}, nil
}

// Key returns the merchant's key or ErrMerchantKeyNotFound.
func (r *ConfigKeyResolver) Key(merchantID string) ([]byte, error) {
	key, ok := r.keys[merchantID]
	if !ok {
		return nil, fmt.Errorf("merchant %s: %w", merchantID, errors.ErrMerchantKeyNotFound)
	}
	return key, nil
}
