package blockchain

import (
	"fmt"

	"vote-ledger/hasher"
	"vote-ledger/models"
)

const (
	ReasonPreviousHashMismatch = "previousHash mismatch"
	ReasonHashMismatch         = "hash mismatch"
)

// Result reports the first failing block, if any.
type Result struct {
	OK     bool   `json:"ok"`
	Index  int    `json:"index,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Err converts a failed result into a *ChainIntegrityViolation.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &ChainIntegrityViolation{Index: r.Index, Reason: r.Reason}
}

// ChainIntegrityViolation is informational: the chain is never repaired or
// rolled back when one is reported.
type ChainIntegrityViolation struct {
	Index  int
	Reason string
}

func (e *ChainIntegrityViolation) Error() string {
	return fmt.Sprintf("chain compromised at block %d: %s", e.Index, e.Reason)
}

// Verify walks blocks 1..n-1 checking the previous-hash link and the
// recomputed block hash, stopping at the first failure. The genesis block
// uses a different hashing scheme and is not checked.
func Verify(h hasher.Hasher, blocks []models.Block) Result {
	for i := 1; i < len(blocks); i++ {
		prev := blocks[i-1]
		cur := blocks[i]

		if cur.PreviousHash != prev.Hash {
			return Result{OK: false, Index: i, Reason: ReasonPreviousHashMismatch}
		}
		if h.Hash(cur.Canonical()) != cur.Hash {
			return Result{OK: false, Index: i, Reason: ReasonHashMismatch}
		}
	}
	return Result{OK: true}
}
