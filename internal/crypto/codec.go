// Package crypto implements the merchant-keyed sensitive-data codec.
// Card and account fields are encrypted with the owning merchant's key
// before they reach any store; a different merchant's key can never
// recover the plaintext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/cassiomorais/gateway/internal/domain/errors"
)

// Encrypter encrypts a plaintext field with a merchant key.
type Encrypter interface {
	Encrypt(plaintext string, key []byte) (string, error)
}

// Decrypter decrypts a stored ciphertext with a merchant key.
type Decrypter interface {
	Decrypt(ciphertext string, key []byte) (string, error)
}

// Codec combines both directions of the sensitive-data contract.
type Codec interface {
	Encrypter
	Decrypter
}

// AESGCMCodec is the default Codec: AES-256-GCM with a random nonce
// prepended to the ciphertext, base64 encoded for storage.
type AESGCMCodec struct{}

// NewAESGCMCodec creates the default codec.
func NewAESGCMCodec() *AESGCMCodec {
	return &AESGCMCodec{}
}

func gcmForKey(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext under the given key.
func (c *AESGCMCodec) Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := gcmForKey(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decrypts a stored ciphertext under the given key. A wrong key or
// tampered ciphertext surfaces as ErrDecryptionFailed, never as garbage
// plaintext (GCM authenticates).
func (c *AESGCMCodec) Decrypt(ciphertext string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrDecryptionFailed, err)
	}

	gcm, err := gcmForKey(key)
	if err != nil {
		return "", err
	}

	if len(raw) < gcm.NonceSize() {
		return "", errors.ErrDecryptionFailed
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.ErrDecryptionFailed
	}
	return string(plaintext), nil
}
