// Package cryptoutil implements password-at-rest encryption for stored
// journal credentials. The wire format is "ivHex:cipherHex" with AES-256-CBC
// and a fresh random IV per call, compatible with the records already present
// in the sessions table.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidKey indicates the configured encryption key is unusable.
	ErrInvalidKey = errors.New("cryptoutil: invalid encryption key")

	// ErrMalformedCiphertext indicates the stored value is not "ivHex:cipherHex".
	ErrMalformedCiphertext = errors.New("cryptoutil: malformed ciphertext")

	// ErrBadPadding indicates the decrypted block padding is invalid,
	// usually a wrong key.
	ErrBadPadding = errors.New("cryptoutil: bad padding")
)

// keySalt is the fixed application salt for passphrase-derived keys.
// Derivation must be deterministic so that records written before a restart
// stay decryptable.
var keySalt = []byte("mystat-reminder-bot.v1")

// Cipher encrypts and decrypts short strings with a process-wide key.
type Cipher struct {
	key []byte
}

// NewCipher builds a Cipher from the configured ENCRYPTION_KEY value.
// A 64-character hex string is used verbatim as the 32-byte AES key
// (the original deployment format); anything else is treated as a passphrase
// and stretched with argon2id.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrInvalidKey)
	}

	if len(secret) == 64 {
		key, err := hex.DecodeString(secret)
		if err == nil {
			return &Cipher{key: key}, nil
		}
	}

	key := argon2.IDKey([]byte(secret), keySalt, 1, 64*1024, 4, 32)
	return &Cipher{key: key}, nil
}

// Encrypt encrypts plaintext and returns "ivHex:cipherHex".
// A new random 16-byte IV is generated per call, so two encryptions of the
// same plaintext produce different ciphertexts.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("cryptoutil: read iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted), nil
}

// Decrypt is the exact inverse of Encrypt.
func (c *Cipher) Decrypt(value string) (string, error) {
	ivHex, cipherHex, ok := strings.Cut(value, ":")
	if !ok {
		return "", ErrMalformedCiphertext
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: bad iv", ErrMalformedCiphertext)
	}

	encrypted, err := hex.DecodeString(cipherHex)
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: bad cipher block", ErrMalformedCiphertext)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, encrypted)

	plaintext, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// pkcs7Pad pads data to a multiple of blockSize.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// pkcs7Unpad strips and validates PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrBadPadding
	}

	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrBadPadding
		}
	}

	return data[:len(data)-padLen], nil
}
