package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	AlgSHA256    = "sha256"
	AlgKeccak256 = "keccak256"
)

// Hasher turns text into a fixed-length lowercase hex fingerprint.
// Implementations must be pure and safe for concurrent use.
type Hasher interface {
	Hash(input string) string
	Name() string
}

type SHA256 struct{}

func (SHA256) Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

func (SHA256) Name() string { return AlgSHA256 }

// Keccak256 is the legacy Keccak digest used by Ethereum, not FIPS SHA3-256.
type Keccak256 struct{}

func (Keccak256) Hash(input string) string {
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(input))
	return hex.EncodeToString(d.Sum(nil))
}

func (Keccak256) Name() string { return AlgKeccak256 }

func New(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AlgSHA256:
		return SHA256{}, nil
	case AlgKeccak256, "keccak":
		return Keccak256{}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", name)
	}
}
