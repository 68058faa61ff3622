package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestEncryptor_RoundTrip(t *testing.T) {
	e, err := NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	res, err := e.Encrypt("hello, world")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if res.Mode != ModeAES256GCMPBKDF2 {
		t.Errorf("Mode = %d, want %d", res.Mode, ModeAES256GCMPBKDF2)
	}

	got, err := e.Decrypt(res)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "hello, world" {
		t.Errorf("Decrypt = %q, want %q", got, "hello, world")
	}
}

func TestEncryptor_FreshSaltAndNoncePerCall(t *testing.T) {
	e, err := NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	a, err := e.Encrypt("same message")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := e.Encrypt("same message")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if a.Salt == b.Salt {
		t.Error("two encryptions reused the same salt")
	}
	if a.IV == b.IV {
		t.Error("two encryptions reused the same nonce")
	}
	if a.Payload == b.Payload {
		t.Error("two encryptions of the same message produced identical ciphertext")
	}
}

func TestEncryptor_ComponentSizes(t *testing.T) {
	e, err := NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	res, err := e.Encrypt("sized")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	salt, err := base64.StdEncoding.DecodeString(res.Salt)
	if err != nil {
		t.Fatalf("salt base64: %v", err)
	}
	if len(salt) != SaltSize {
		t.Errorf("salt length = %d, want %d", len(salt), SaltSize)
	}

	iv, err := base64.StdEncoding.DecodeString(res.IV)
	if err != nil {
		t.Fatalf("iv base64: %v", err)
	}
	if len(iv) != NonceSize {
		t.Errorf("iv length = %d, want %d", len(iv), NonceSize)
	}

	ct, err := base64.StdEncoding.DecodeString(res.Payload)
	if err != nil {
		t.Fatalf("payload base64: %v", err)
	}
	if want := len("sized") + TagSize; len(ct) != want {
		t.Errorf("ciphertext length = %d, want %d", len(ct), want)
	}
}

func TestEncryptor_WrongSecretFails(t *testing.T) {
	a, err := NewEncryptor("secret-a")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	b, err := NewEncryptor("secret-b")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	res, err := a.Encrypt("confidential")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := b.Decrypt(res); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Decrypt with wrong secret: err = %v, want ErrDecrypt", err)
	}
}

func TestEncryptor_TamperedCiphertextFails(t *testing.T) {
	e, err := NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	res, err := e.Encrypt("integrity matters")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	ct, _ := base64.StdEncoding.DecodeString(res.Payload)
	ct[0] ^= 0x01
	res.Payload = base64.StdEncoding.EncodeToString(ct)

	if _, err := e.Decrypt(res); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Decrypt of tampered payload: err = %v, want ErrDecrypt", err)
	}
}

func TestEncryptor_BadComponentLengths(t *testing.T) {
	e, err := NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	good, err := e.Encrypt("base")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *Result)
		want   error
	}{
		{
			name:   "short iv",
			mutate: func(r *Result) { r.IV = base64.StdEncoding.EncodeToString(make([]byte, 8)) },
			want:   ErrInvalidIV,
		},
		{
			name:   "short salt",
			mutate: func(r *Result) { r.Salt = base64.StdEncoding.EncodeToString(make([]byte, 16)) },
			want:   ErrInvalidSalt,
		},
		{
			name:   "truncated ciphertext",
			mutate: func(r *Result) { r.Payload = base64.StdEncoding.EncodeToString(make([]byte, TagSize-1)) },
			want:   ErrDecrypt,
		},
		{
			name:   "garbage base64 payload",
			mutate: func(r *Result) { r.Payload = "not base64!!!" },
			want:   ErrDecrypt,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := *good
			tc.mutate(&r)
			if _, err := e.Decrypt(&r); !errors.Is(err, tc.want) {
				t.Errorf("Decrypt: err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEncryptor_DecryptNil(t *testing.T) {
	e, err := NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	if _, err := e.Decrypt(nil); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Decrypt(nil): err = %v, want ErrDecrypt", err)
	}
}

func TestNewEncryptor_EmptySecret(t *testing.T) {
	for _, secret := range []string{"", "   ", "\t\n"} {
		if _, err := NewEncryptor(secret); !errors.Is(err, ErrEmptySecret) {
			t.Errorf("NewEncryptor(%q): err = %v, want ErrEmptySecret", secret, err)
		}
	}
}

func TestNewEncryptorMode_UnknownMode(t *testing.T) {
	for _, mode := range []Mode{0, 5, -1} {
		if _, err := NewEncryptorMode("secret", mode); !errors.Is(err, ErrUnknownMode) {
			t.Errorf("NewEncryptorMode(mode=%d): err = %v, want ErrUnknownMode", mode, err)
		}
	}
}

func TestEncryptMode_NotImplemented(t *testing.T) {
	e, err := NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	for _, mode := range []Mode{ModeAES256GCMScrypt, ModeAES256GCMArgon2, ModeChaCha20Poly1305Argon2} {
		if _, err := e.EncryptMode("msg", mode); !errors.Is(err, ErrModeNotImplemented) {
			t.Errorf("EncryptMode(%s): err = %v, want ErrModeNotImplemented", mode, err)
		}
	}
}

func TestEncryptor_KeyCache(t *testing.T) {
	e, err := NewEncryptor("test-secret")
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	if got := e.CacheSize(); got != 0 {
		t.Fatalf("fresh encryptor CacheSize = %d, want 0", got)
	}

	res, err := e.Encrypt("cached")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got := e.CacheSize(); got != 1 {
		t.Errorf("CacheSize after one encrypt = %d, want 1", got)
	}

	// Decrypting the same result reuses the cached key for its salt.
	if _, err := e.Decrypt(res); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got := e.CacheSize(); got != 1 {
		t.Errorf("CacheSize after decrypt of same salt = %d, want 1", got)
	}

	// A second encrypt draws a fresh salt and derives a new key.
	if _, err := e.Encrypt("cached again"); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if got := e.CacheSize(); got != 2 {
		t.Errorf("CacheSize after second encrypt = %d, want 2", got)
	}

	e.ClearCache()
	if got := e.CacheSize(); got != 0 {
		t.Errorf("CacheSize after ClearCache = %d, want 0", got)
	}
}

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeAES256GCMPBKDF2, "AES256-GCM_PBKDF2-SHA256-600K"},
		{ModeAES256GCMScrypt, "AES256-GCM_SCRYPT"},
		{ModeAES256GCMArgon2, "AES256-GCM_ARGON2"},
		{ModeChaCha20Poly1305Argon2, "ChaCha20-Poly1305_ARGON2"},
	}
	for _, tc := range tests {
		if got := tc.mode.String(); got != tc.want {
			t.Errorf("Mode(%d).String() = %q, want %q", int(tc.mode), got, tc.want)
		}
	}
	if got := Mode(99).String(); !strings.Contains(got, "99") {
		t.Errorf("unknown mode String() = %q, want it to carry the value", got)
	}
}

func TestModeFromValue(t *testing.T) {
	for v := 1; v <= 4; v++ {
		m, err := ModeFromValue(v)
		if err != nil {
			t.Errorf("ModeFromValue(%d): %v", v, err)
		}
		if int(m) != v {
			t.Errorf("ModeFromValue(%d) = %d", v, int(m))
		}
	}
	if _, err := ModeFromValue(0); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("ModeFromValue(0): err = %v, want ErrUnknownMode", err)
	}
	if _, err := ModeFromValue(5); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("ModeFromValue(5): err = %v, want ErrUnknownMode", err)
	}
}
