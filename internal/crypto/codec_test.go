package crypto_test

import (
	"encoding/base64"
	"testing"

	"github.com/cassiomorais/gateway/internal/crypto"
	"github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return key
}

func TestAESGCMCodec_RoundTrip(t *testing.T) {
	codec := crypto.NewAESGCMCodec()
	key := testKey(0x01)

	for _, plaintext := range []string{"", "4111111111111111", "01/2030", "123", "some longer value with spaces"} {
		ct, err := codec.Encrypt(plaintext, key)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, ct)

		got, err := codec.Decrypt(ct, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestAESGCMCodec_WrongKeyNeverRecoversPlaintext(t *testing.T) {
	codec := crypto.NewAESGCMCodec()

	ct, err := codec.Encrypt("4111111111111111", testKey(0x01))
	require.NoError(t, err)

	got, err := codec.Decrypt(ct, testKey(0x02))
	assert.ErrorIs(t, err, errors.ErrDecryptionFailed)
	assert.Empty(t, got)
}

func TestAESGCMCodec_NonDeterministicCiphertext(t *testing.T) {
	codec := crypto.NewAESGCMCodec()
	key := testKey(0x01)

	a, err := codec.Encrypt("123", key)
	require.NoError(t, err)
	b, err := codec.Encrypt("123", key)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "random nonce must make ciphertexts differ")
}

func TestAESGCMCodec_GarbageCiphertext(t *testing.T) {
	codec := crypto.NewAESGCMCodec()

	_, err := codec.Decrypt("not base64!!!", testKey(0x01))
	assert.ErrorIs(t, err, errors.ErrDecryptionFailed)

	_, err = codec.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")), testKey(0x01))
	assert.ErrorIs(t, err, errors.ErrDecryptionFailed)
}

func TestConfigKeyResolver(t *testing.T) {
	encoded := map[string]string{
		"merchant-1": base64.StdEncoding.EncodeToString(testKey(0x01)),
	}

	resolver, err := crypto.NewConfigKeyResolver(encoded)
	require.NoError(t, err)

	key, err := resolver.Key("merchant-1")
	require.NoError(t, err)
	assert.Equal(t, testKey(0x01), key)

	_, err = resolver.Key("merchant-unknown")
	assert.ErrorIs(t, err, errors.ErrMerchantKeyNotFound)
}

func TestConfigKeyResolver_RejectsBadKeys(t *testing.T) {
	_, err := crypto.NewConfigKeyResolver(map[string]string{"m": "%%%"})
	assert.Error(t, err)

	_, err = crypto.NewConfigKeyResolver(map[string]string{"m": base64.StdEncoding.EncodeToString([]byte("too-short"))})
	assert.Error(t, err)
}
