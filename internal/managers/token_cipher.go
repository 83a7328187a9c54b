package managers

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/FluidspaceWeb/development-server/internal/domain"

	"golang.org/x/crypto/chacha20poly1305"
)

// tokenCipher seals refresh tokens with XChaCha20-Poly1305 under a single
// process-wide key loaded at startup.
type tokenCipher struct {
	key []byte
}

func NewTokenCipher(keyBase64 string) (domain.TokenCipher, error) {
	key, err := decodeCipherKey(keyBase64)
	if err != nil {
		return nil, err
	}

	return &tokenCipher{key: key}, nil
}

func (c *tokenCipher) Encrypt(plaintext string) (domain.EncryptedToken, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return domain.EncryptedToken{}, fmt.Errorf("%w: %v", domain.ErrCrypto, err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return domain.EncryptedToken{}, fmt.Errorf("%w: nonce generation failed: %v", domain.ErrCrypto, err)
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)

	return domain.EncryptedToken{
		Token: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce: base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

func (c *tokenCipher) Decrypt(token domain.EncryptedToken) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(token.Token)
	if err != nil {
		return "", fmt.Errorf("%w: invalid token encoding: %v", domain.ErrCrypto, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(token.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: invalid nonce encoding: %v", domain.ErrCrypto, err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCrypto, err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed", domain.ErrCrypto)
	}

	return string(plaintext), nil
}

func decodeCipherKey(keyBase64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 key: %v", domain.ErrCrypto, err)
	}

	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: invalid key length: expected %d bytes, got %d", domain.ErrCrypto, chacha20poly1305.KeySize, len(key))
	}

	return key, nil
}

// GenerateCipherKey returns a fresh random base64 key suitable for
// INTEGRATION_TOKEN_CRYPTO_KEY.
func GenerateCipherKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate cipher key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(key), nil
}
