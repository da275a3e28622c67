// Package cipher seals wallet secrets with AES-256-GCM. The persisted shape
// keeps the 16-byte nonce, auth tag and ciphertext as separate hex fields so
// records written by earlier deployments of the storage layout stay readable.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
)

const nonceSize = 16

// Encrypt serializes v to JSON and seals it under a 256-bit key with a fresh
// random nonce. Nonces are never reused: each call draws a new one.
func Encrypt(key []byte, v any) (*domain.EncryptedBlob, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize secret: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - gcm.Overhead()

	return &domain.EncryptedBlob{
		IV:         hex.EncodeToString(nonce),
		AuthTag:    hex.EncodeToString(sealed[split:]),
		Ciphertext: hex.EncodeToString(sealed[:split]),
	}, nil
}

// Decrypt opens a blob into out. Any malformed field, wrong key or failed
// tag check yields domain.ErrIntegrity, never partial plaintext.
func Decrypt(key []byte, blob *domain.EncryptedBlob, out any) error {
	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	nonce, err := hex.DecodeString(blob.IV)
	if err != nil || len(nonce) != nonceSize {
		return domain.ErrIntegrity
	}
	tag, err := hex.DecodeString(blob.AuthTag)
	if err != nil || len(tag) != gcm.Overhead() {
		return domain.ErrIntegrity
	}
	ciphertext, err := hex.DecodeString(blob.Ciphertext)
	if err != nil {
		return domain.ErrIntegrity
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return domain.ErrIntegrity
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return domain.ErrIntegrity
	}
	return nil
}

func newGCM(key []byte) (stdcipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := stdcipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}
