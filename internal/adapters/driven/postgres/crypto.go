package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// tokenBlobVersion is the version byte for the encrypted blob format.
	// Allows future format changes without re-encrypting existing rows.
	tokenBlobVersion = 0x01

	// nonceSize is the AES-GCM nonce size (12 bytes is standard)
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32
)

var (
	// ErrInvalidBlobSize is returned when the encrypted blob is too small.
	ErrInvalidBlobSize = errors.New("encrypted token blob is too small")

	// ErrUnsupportedVersion is returned when the blob version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported token blob version")

	// ErrDecryptionFailed is returned when decryption fails (wrong key or corrupted data).
	ErrDecryptionFailed = errors.New("failed to decrypt token blob")
)

// TokenCipher encrypts OAuth tokens before they hit the database.
// Blob format: version(1) || nonce(12) || ciphertext(N)
type TokenCipher struct {
	gcm cipher.AEAD
}

// NewTokenCipher derives an AES-256 key from the passphrase via HKDF-SHA256
// and returns a cipher ready for use. The same passphrase always derives the
// same key, so rows stay readable across restarts and instances.
func NewTokenCipher(passphrase string) (*TokenCipher, error) {
	if passphrase == "" {
		return nil, errors.New("token encryption passphrase is empty")
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("drive-core token encryption"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &TokenCipher{gcm: gcm}, nil
}

// Encrypt seals a token into a blob.
func (c *TokenCipher) Encrypt(token string) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := c.gcm.Seal(nil, nonce, []byte(token), nil)

	blob := make([]byte, 1+nonceSize+len(ciphertext))
	blob[0] = tokenBlobVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], ciphertext)

	return blob, nil
}

// Decrypt opens a blob back into the token string.
func (c *TokenCipher) Decrypt(blob []byte) (string, error) {
	minSize := 1 + nonceSize + c.gcm.Overhead()
	if len(blob) < minSize {
		return "", ErrInvalidBlobSize
	}

	if blob[0] != tokenBlobVersion {
		return "", fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+nonceSize]
	ciphertext := blob[1+nonceSize:]

	plaintext, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
