// Package crypto seals log messages before they ever leave the
// process. Each message gets a fresh random salt and nonce, a key
// derived from the shared secret with a deliberately slow KDF
// (PBKDF2-HMAC-SHA256, 600k iterations), and AES-256-GCM
// authenticated encryption, so the ingestion service stores only
// ciphertext it cannot forge or silently alter.
//
// Derived keys are cached per (secret, mode, salt) so re-encrypting
// under a known salt is cheap while every fresh salt still pays the
// full KDF cost. ClearCache drops the cached key material; the
// pipeline calls it on shutdown.
package crypto
