// Copyright (c) 2025 Akshat Jwr
// SPDX-License-Identifier: MIT

// Package credentials holds the bearer token as an explicit value injected
// into the API client and transports, instead of ambient process state.
// At rest the token is AES-256-GCM encrypted under a key derived from a
// machine-local key file, so a casual backup or sync does not leak it.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/Akshat-jwr/agribot-tui/internal/util"
)

const (
	// encryptedPrefix marks an encrypted value: ENC:base64(salt|nonce|ciphertext).
	encryptedPrefix = "ENC:"

	nonceSize = 12
	keySize   = 32
	saltSize  = 32

	// pbkdf2Iterations follows OWASP guidance for PBKDF2-SHA-256.
	pbkdf2Iterations = 600000
)

var (
	// ErrNoCredentials indicates no saved login.
	ErrNoCredentials = errors.New("no saved credentials: run 'agribot login'")

	// ErrDecryptFailed indicates the key file changed or the file was
	// tampered with.
	ErrDecryptFailed = errors.New("credential decryption failed")
)

// Credentials is the value injected into API and streaming constructors.
type Credentials struct {
	ServerURL string    `json:"server_url"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	SavedAt   time.Time `json:"saved_at"`
}

// Store persists one Credentials value under dir (usually ~/.agribot).
type Store struct {
	path    string
	keyPath string
}

// NewStore creates a credential store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		path:    filepath.Join(dir, "credentials.json"),
		keyPath: filepath.Join(dir, "credentials.key"),
	}
}

// Save writes creds with the token encrypted at rest.
func (s *Store) Save(creds Credentials) error {
	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}
	defer zero(key)

	creds.SavedAt = time.Now()
	sealed := creds
	sealed.Token, err = encrypt(key, creds.Token)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	return util.AtomicWriteFile(s.path, data, 0o600)
}

// Load reads and decrypts the saved credentials.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return nil, err
	}
	defer zero(key)

	creds.Token, err = decrypt(key, creds.Token)
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

// Clear removes saved credentials (logout). Missing files are fine.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// loadOrCreateKey reads the machine-local key material, generating it on
// first use with owner-only permissions.
func (s *Store) loadOrCreateKey() ([]byte, error) {
	if data, err := os.ReadFile(s.keyPath); err == nil && len(data) >= keySize {
		return data, nil
	}

	material := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	if err := util.AtomicWriteFile(s.keyPath, material, 0o600); err != nil {
		return nil, err
	}
	return material, nil
}

// =============================================================================
// SEALING
// =============================================================================

// encrypt seals plaintext as ENC:base64(salt|nonce|ciphertext) with a key
// derived per-value via PBKDF2-SHA-256, so rotating the key file invalidates
// every sealed value at once.
func encrypt(material []byte, plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key(material, salt, pbkdf2Iterations, keySize, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	payload := append(append(salt, nonce...), sealed...)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(payload), nil
}

func decrypt(material []byte, value string) (string, error) {
	if !strings.HasPrefix(value, encryptedPrefix) {
		// Plaintext tokens from older versions are accepted as-is.
		return value, nil
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil || len(payload) < saltSize+nonceSize+1 {
		return "", ErrDecryptFailed
	}

	salt := payload[:saltSize]
	nonce := payload[saltSize : saltSize+nonceSize]
	sealed := payload[saltSize+nonceSize:]

	key := pbkdf2.Key(material, salt, pbkdf2Iterations, keySize, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// zero wipes key material to keep it out of crash dumps.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
