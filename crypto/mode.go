package crypto

import "fmt"

// Mode identifies an encryption scheme. The numeric values are part of
// the wire contract (the entry's encryption_mode field).
type Mode int

const (
	// ModeAES256GCMPBKDF2 is AES-256-GCM with a PBKDF2-HMAC-SHA256
	// (600k iterations) derived key. The only fully implemented mode.
	ModeAES256GCMPBKDF2 Mode = 1

	// ModeAES256GCMScrypt is AES-256-GCM with an scrypt-derived key.
	ModeAES256GCMScrypt Mode = 2

	// ModeAES256GCMArgon2 is AES-256-GCM with an Argon2-derived key.
	ModeAES256GCMArgon2 Mode = 3

	// ModeChaCha20Poly1305Argon2 is ChaCha20-Poly1305 with an
	// Argon2-derived key.
	ModeChaCha20Poly1305Argon2 Mode = 4
)

// String returns the scheme name used in API documentation.
func (m Mode) String() string {
	switch m {
	case ModeAES256GCMPBKDF2:
		return "AES256-GCM_PBKDF2-SHA256-600K"
	case ModeAES256GCMScrypt:
		return "AES256-GCM_SCRYPT"
	case ModeAES256GCMArgon2:
		return "AES256-GCM_ARGON2"
	case ModeChaCha20Poly1305Argon2:
		return "ChaCha20-Poly1305_ARGON2"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m is a known scheme tag.
func (m Mode) Valid() bool {
	return m >= ModeAES256GCMPBKDF2 && m <= ModeChaCha20Poly1305Argon2
}

// ModeFromValue converts a wire tag to a Mode.
func ModeFromValue(v int) (Mode, error) {
	m := Mode(v)
	if !m.Valid() {
		return 0, fmt.Errorf("crypto: %w: mode value %d", ErrUnknownMode, v)
	}
	return m, nil
}
