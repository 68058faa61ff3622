package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived symmetric key size: 256 bits.
	KeySize = 32

	// SaltSize is the per-message KDF salt size: 256 bits.
	SaltSize = 32

	// NonceSize is the AES-GCM nonce size: 96 bits.
	NonceSize = 12

	// TagSize is the GCM authentication tag size: 128 bits.
	TagSize = 16

	// PBKDF2Iterations follows the OWASP recommendation for
	// PBKDF2-HMAC-SHA256. Changing it invalidates all existing
	// ciphertext, since the iteration count is not carried on the wire.
	PBKDF2Iterations = 600_000
)

// Sentinel errors; all failures returned by this package wrap one of
// these, so callers can classify with errors.Is.
var (
	ErrEmptySecret        = errors.New("secret cannot be empty")
	ErrUnknownMode        = errors.New("unknown encryption mode")
	ErrModeNotImplemented = errors.New("encryption mode not implemented")
	ErrInvalidIV          = errors.New("invalid IV length")
	ErrInvalidSalt        = errors.New("invalid salt length")
	ErrDecrypt            = errors.New("decryption failed")
)

// Result carries the components of one encryption: everything the
// ingestion endpoint needs to later reverse it given the secret. It is
// transient; callers consume it immediately to build an entry.
type Result struct {
	// Payload is the base64-encoded ciphertext (including the GCM tag).
	Payload string

	// IV and Salt are base64-encoded.
	IV   string
	Salt string

	// Mode is the scheme tag the payload was sealed with.
	Mode Mode
}

// Encryptor seals and opens log messages under a shared secret.
// Safe for concurrent use.
type Encryptor struct {
	secret string
	mode   Mode

	mu    sync.RWMutex
	cache map[string][]byte // secret:mode:salt -> derived key
}

// NewEncryptor creates an Encryptor using the default mode
// (AES-256-GCM with PBKDF2-SHA256-600K).
func NewEncryptor(secret string) (*Encryptor, error) {
	return NewEncryptorMode(secret, ModeAES256GCMPBKDF2)
}

// NewEncryptorMode creates an Encryptor with an explicit default mode.
func NewEncryptorMode(secret string, mode Mode) (*Encryptor, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("crypto: %w", ErrEmptySecret)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("crypto: %w: %d", ErrUnknownMode, int(mode))
	}
	return &Encryptor{
		secret: secret,
		mode:   mode,
		cache:  make(map[string][]byte),
	}, nil
}

// Mode returns the encryptor's default mode.
func (e *Encryptor) Mode() Mode { return e.mode }

// Encrypt seals message under the default mode. A fresh salt and nonce
// are drawn for every call, so two encryptions of the same message
// never produce the same ciphertext.
func (e *Encryptor) Encrypt(message string) (*Result, error) {
	return e.EncryptMode(message, e.mode)
}

// EncryptMode seals message under an explicit mode.
func (e *Encryptor) EncryptMode(message string, mode Mode) (*Result, error) {
	salt := make([]byte, SaltSize)
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	aead, err := e.aead(salt, mode)
	if err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nil, nonce, []byte(message), nil)
	return &Result{
		Payload: base64.StdEncoding.EncodeToString(ciphertext),
		IV:      base64.StdEncoding.EncodeToString(nonce),
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Mode:    mode,
	}, nil
}

// Decrypt opens a Result produced by Encrypt under the same secret.
// It fails with an error wrapping ErrDecrypt if the authentication tag
// does not verify (wrong secret, flipped bytes), ErrInvalidIV /
// ErrInvalidSalt on length mismatches, and ErrUnknownMode /
// ErrModeNotImplemented for bad scheme tags.
func (e *Encryptor) Decrypt(res *Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("crypto: %w: nil result", ErrDecrypt)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(res.Payload)
	if err != nil {
		return "", fmt.Errorf("crypto: %w: payload base64: %v", ErrDecrypt, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(res.IV)
	if err != nil {
		return "", fmt.Errorf("crypto: %w: iv base64: %v", ErrDecrypt, err)
	}
	salt, err := base64.StdEncoding.DecodeString(res.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: %w: salt base64: %v", ErrDecrypt, err)
	}

	if len(nonce) != NonceSize {
		return "", fmt.Errorf("crypto: %w: got %d bytes, want %d", ErrInvalidIV, len(nonce), NonceSize)
	}
	if len(salt) != SaltSize {
		return "", fmt.Errorf("crypto: %w: got %d bytes, want %d", ErrInvalidSalt, len(salt), SaltSize)
	}
	if len(ciphertext) < TagSize {
		return "", fmt.Errorf("crypto: %w: ciphertext shorter than tag", ErrDecrypt)
	}

	aead, err := e.aead(salt, res.Mode)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: %w: authentication tag mismatch", ErrDecrypt)
	}
	return string(plaintext), nil
}

// ClearCache drops all cached derived keys, zeroing the key material
// first. Called by the pipeline on shutdown.
func (e *Encryptor) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, key := range e.cache {
		for i := range key {
			key[i] = 0
		}
		delete(e.cache, k)
	}
}

// CacheSize returns the number of cached derived keys.
func (e *Encryptor) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// aead builds the AEAD for the given salt and mode, deriving (or
// fetching from cache) the symmetric key.
func (e *Encryptor) aead(salt []byte, mode Mode) (cipher.AEAD, error) {
	key, err := e.deriveKey(salt, mode)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}
	return aead, nil
}

// deriveKey derives the symmetric key for (secret, mode, salt),
// consulting the cache first. A cache hit under a known salt is cheap;
// a fresh salt always pays the full KDF pass.
func (e *Encryptor) deriveKey(salt []byte, mode Mode) ([]byte, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("crypto: %w: %d", ErrUnknownMode, int(mode))
	}

	cacheKey := e.secret + ":" + strconv.Itoa(int(mode)) + ":" + base64.StdEncoding.EncodeToString(salt)

	e.mu.RLock()
	key, ok := e.cache[cacheKey]
	e.mu.RUnlock()
	if ok {
		return key, nil
	}

	switch mode {
	case ModeAES256GCMPBKDF2:
		key = pbkdf2.Key([]byte(e.secret), salt, PBKDF2Iterations, KeySize, sha256.New)
	case ModeAES256GCMScrypt, ModeAES256GCMArgon2, ModeChaCha20Poly1305Argon2:
		return nil, fmt.Errorf("crypto: %w: %s", ErrModeNotImplemented, mode)
	default:
		return nil, fmt.Errorf("crypto: %w: %d", ErrUnknownMode, int(mode))
	}

	e.mu.Lock()
	e.cache[cacheKey] = key
	e.mu.Unlock()
	return key, nil
}
