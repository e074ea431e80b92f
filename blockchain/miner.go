package blockchain

import (
	"fmt"
	"strings"

	"vote-ledger/hasher"
	"vote-ledger/models"
)

const (
	DefaultDifficultyPrefix = "00"
	DefaultNonceCap         = 5000
)

// Miner searches for a nonce whose block hash starts with Prefix. The search
// is bounded by NonceCap: at most NonceCap+1 hashes are computed and the last
// one is accepted even if it misses the prefix.
type Miner struct {
	hasher   hasher.Hasher
	prefix   string
	nonceCap uint64
}

func NewMiner(h hasher.Hasher, prefix string, nonceCap uint64) (*Miner, error) {
	if h == nil {
		return nil, fmt.Errorf("miner requires a hasher")
	}
	if err := ValidatePrefix(prefix); err != nil {
		return nil, err
	}
	return &Miner{hasher: h, prefix: prefix, nonceCap: nonceCap}, nil
}

// DefaultMiner mines with SHA-256, prefix "00" and a 5000 nonce cap.
func DefaultMiner() *Miner {
	return &Miner{hasher: hasher.SHA256{}, prefix: DefaultDifficultyPrefix, nonceCap: DefaultNonceCap}
}

func ValidatePrefix(prefix string) error {
	for _, r := range prefix {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return fmt.Errorf("difficulty prefix %q must be lowercase hex", prefix)
		}
	}
	if len(prefix) > 64 {
		return fmt.Errorf("difficulty prefix %q longer than a digest", prefix)
	}
	return nil
}

func (m *Miner) Hasher() hasher.Hasher { return m.hasher }
func (m *Miner) Prefix() string        { return m.prefix }
func (m *Miner) NonceCap() uint64      { return m.nonceCap }

// Mine always returns a block, possibly one that misses the difficulty
// prefix after the cap is exhausted.
func (m *Miner) Mine(index uint64, timestamp, voter string, candidate *string, previousHash string) models.Block {
	block, _ := m.Search(index, timestamp, voter, candidate, previousHash)
	return block
}

// Search is Mine that also reports how many hashes were computed.
func (m *Miner) Search(index uint64, timestamp, voter string, candidate *string, previousHash string) (models.Block, int) {
	var (
		nonce    uint64
		hash     string
		attempts int
	)
	for {
		hash = m.hasher.Hash(models.CanonicalContent(index, timestamp, voter, candidate, previousHash, nonce))
		attempts++
		if strings.HasPrefix(hash, m.prefix) || nonce >= m.nonceCap {
			break
		}
		nonce++
	}

	return models.Block{
		Index:        index,
		Timestamp:    timestamp,
		Voter:        voter,
		Candidate:    candidate,
		PreviousHash: previousHash,
		Nonce:        nonce,
		Hash:         hash,
	}, attempts
}

// MeetsDifficulty reports whether hash carries the miner's prefix.
func (m *Miner) MeetsDifficulty(hash string) bool {
	return strings.HasPrefix(hash, m.prefix)
}
