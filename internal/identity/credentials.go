package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/lattice-iot/gpio-bridge/internal/bridgeerr"
)

const (
	pbkdf2Iterations = 100000
	pbkdf2KeyLen     = 32
	saltSize         = 16
)

// CredentialSealer encrypts the device token a provisioning response
// carries before it touches disk, so a stolen SD card does not hand
// over live document-store credentials in plaintext. Grounded on the
// donor's internal/security/encryption.go EncryptionService, adapted
// to derive a fresh salt per seal instead of the donor's one
// hardcoded salt.
type CredentialSealer struct {
	passphrase string
}

func NewCredentialSealer(passphrase string) *CredentialSealer {
	return &CredentialSealer{passphrase: passphrase}
}

// Seal encrypts plaintext with AES-GCM under a key derived from the
// sealer's passphrase via PBKDF2-SHA256, and returns
// base64(salt || nonce || ciphertext).
func (s *CredentialSealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", bridgeerr.Fatal("failed to generate credential salt", err)
	}
	key := pbkdf2.Key([]byte(s.passphrase), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", bridgeerr.Fatal("failed to construct credential cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", bridgeerr.Fatal("failed to construct credential cipher mode", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", bridgeerr.Fatal("failed to generate credential nonce", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	out := append(append(salt, nonce...), sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *CredentialSealer) Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", bridgeerr.DocumentSchema("credential blob is not valid base64: " + err.Error())
	}
	if len(raw) < saltSize {
		return "", bridgeerr.DocumentSchema("credential blob shorter than the salt")
	}
	salt, rest := raw[:saltSize], raw[saltSize:]

	key := pbkdf2.Key([]byte(s.passphrase), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", bridgeerr.Fatal("failed to construct credential cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", bridgeerr.Fatal("failed to construct credential cipher mode", err)
	}
	if len(rest) < gcm.NonceSize() {
		return "", bridgeerr.DocumentSchema("credential blob shorter than the nonce")
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", bridgeerr.DocumentSchema("credential blob failed to decrypt: " + err.Error())
	}
	return string(plaintext), nil
}

// PersistCredentials seals resp's device token under the sealer's
// passphrase and writes it to path with owner-only permissions, so a
// deployment's provisioning step can hand the bridge a credentials
// file instead of a plaintext token in its environment.
func PersistCredentials(sealer *CredentialSealer, resp *ProvisionResponse, path string) error {
	sealed, err := sealer.Seal(resp.DeviceToken)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(sealed), 0o600); err != nil {
		return bridgeerr.Fatal(fmt.Sprintf("failed to persist sealed credentials to %s", path), err)
	}
	return nil
}
