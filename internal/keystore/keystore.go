// Package keystore resolves the shop operator's key. The owner account,
// the only account allowed to change prices and drain the treasury, is
// derived from a private key supplied raw or as an encrypted file.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// kdfIterations is the OWASP-recommended minimum for PBKDF2-HMAC-SHA256.
	kdfIterations = 480_000
	saltLen       = 16
	aesKeyLen     = 32
	schemaVersion = 1
)

// fileFormat is the on-disk layout of an encrypted operator key.
type fileFormat struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Config carries the information Load needs to resolve the operator key.
type Config struct {
	// RawPrivateKey is the hex-encoded key (0x prefix optional). Takes
	// precedence when set.
	RawPrivateKey string

	// EncryptedKeyPath points at a file written by Encrypt.
	EncryptedKeyPath string

	// Password decrypts the file at EncryptedKeyPath.
	Password string
}

// Encrypt seals a hex-encoded private key with a password using
// PBKDF2-HMAC-SHA256 derivation and AES-256-GCM, returning the JSON blob to
// write to disk.
func Encrypt(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("keystore: password must not be empty")
	}
	keyBytes, err := decodeKeyHex(privateKeyHex)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keystore: generating salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keystore: generating nonce: %w", err)
	}

	out := fileFormat{
		Version:    schemaVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, keyBytes, nil)),
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decrypt opens a blob produced by Encrypt and returns the hex-encoded key.
func Decrypt(data []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("keystore: password must not be empty")
	}

	var stored fileFormat
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("keystore: parsing encrypted key: %w", err)
	}
	if stored.Version != schemaVersion {
		return "", fmt.Errorf("keystore: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("keystore: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("keystore: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("keystore: decoding ciphertext: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("keystore: decryption failed (wrong password?): %w", err)
	}
	return hex.EncodeToString(plaintext), nil
}

// Load resolves the operator key from cfg and returns the derived owner
// account address. Resolution order: raw key, then encrypted file.
func Load(cfg Config) (common.Address, error) {
	var keyHex string

	switch {
	case cfg.RawPrivateKey != "":
		keyHex = strings.TrimPrefix(cfg.RawPrivateKey, "0x")
	case cfg.EncryptedKeyPath != "":
		data, err := os.ReadFile(cfg.EncryptedKeyPath)
		if err != nil {
			return common.Address{}, fmt.Errorf("keystore: reading encrypted key file: %w", err)
		}
		keyHex, err = Decrypt(data, cfg.Password)
		if err != nil {
			return common.Address{}, err
		}
	default:
		return common.Address{}, errors.New("keystore: no key source configured (set RawPrivateKey or EncryptedKeyPath)")
	}

	priv, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("keystore: invalid private key: %w", err)
	}
	return crypto.PubkeyToAddress(priv.PublicKey), nil
}

func decodeKeyHex(privateKeyHex string) ([]byte, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("keystore: invalid private key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("keystore: expected 32-byte key, got %d bytes", len(keyBytes))
	}
	return keyBytes, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(password), salt, kdfIterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("keystore: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keystore: creating GCM: %w", err)
	}
	return gcm, nil
}
