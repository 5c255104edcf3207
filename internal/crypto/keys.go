package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// MasterKeyEnv overrides the master key file.
const MasterKeyEnv = "MASTER_KEY_HEX"

// MasterKeySize is the master key length in bytes.
const MasterKeySize = 32

// ErrNoMasterKey is returned when neither MASTER_KEY_HEX nor the key file is present.
var ErrNoMasterKey = errors.New("MASTER_KEY_HEX not set and master key file not found")

// ReadMasterKey reads the hex master key from MASTER_KEY_HEX, falling back to path.
func ReadMasterKey(path string) ([]byte, error) {
	h := os.Getenv(MasterKeyEnv)
	if h == "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoMasterKey
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read master key: %w", err)
		}
		h = string(data)
	}
	return ParseMasterKey(h)
}

// ParseMasterKey decodes a 64-char hex master key.
func ParseMasterKey(h string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(h))
	if err != nil {
		return nil, fmt.Errorf("master key hex decode error: %w", err)
	}
	if len(b) != MasterKeySize {
		return nil, fmt.Errorf("master key length must be %d bytes (hex %d chars)", MasterKeySize, MasterKeySize*2)
	}
	return b, nil
}

// LoadOrGenerateMasterKey reads the master key, or returns a random one when
// none is configured. generated reports the latter; sessions then do not
// survive a restart.
func LoadOrGenerateMasterKey(path string) (key []byte, generated bool, err error) {
	key, err = ReadMasterKey(path)
	if errors.Is(err, ErrNoMasterKey) {
		return MustRandom(MasterKeySize), true, nil
	}
	return key, false, err
}

// GenerateMasterKeyHex returns a new random master key as hex.
func GenerateMasterKeyHex() string {
	return hex.EncodeToString(MustRandom(MasterKeySize))
}

// SessionKeys are the cookie signing and encryption keys.
type SessionKeys struct {
	Hash  []byte
	Block []byte
}

// DeriveSessionKeys derives the cookie keys from the master key using HKDF-SHA256.
func DeriveSessionKeys(master []byte) (SessionKeys, error) {
	hash, err := derive(master, "session-hash", 64)
	if err != nil {
		return SessionKeys{}, err
	}
	block, err := derive(master, "session-block", 32)
	if err != nil {
		return SessionKeys{}, err
	}
	return SessionKeys{Hash: hash, Block: block}, nil
}

func derive(master []byte, info string, n int) ([]byte, error) {
	h := hkdf.New(sha256.New, master, nil, []byte(info))
	out := make([]byte, n)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RandomToken returns n random bytes, URL-safe base64 encoded.
func RandomToken(n int) string {
	return base64.RawURLEncoding.EncodeToString(MustRandom(n))
}

// MustRandom returns n random bytes or panics.
func MustRandom(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return b
}
