package blockchain

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vote-ledger/models"
)

var ErrBlockNotFound = errors.New("block not found")

// Ledger is the append-only, hash-linked sequence of vote blocks.
// Block 0 is always the genesis block.
type Ledger struct {
	mu     sync.RWMutex
	blocks []models.Block
	miner  *Miner
	now    func() time.Time
	log    zerolog.Logger
}

type LedgerOption func(*Ledger)

// WithClock replaces time.Now, used for block timestamps.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(log zerolog.Logger) LedgerOption {
	return func(l *Ledger) { l.log = log }
}

func newLedger(miner *Miner, opts []LedgerOption) *Ledger {
	l := &Ledger{
		miner: miner,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewLedger creates a one-block ledger holding only the genesis block.
func NewLedger(miner *Miner, opts ...LedgerOption) *Ledger {
	l := newLedger(miner, opts)
	genesis := l.genesis()
	l.blocks = []models.Block{genesis}
	l.log.Debug().Str("hash", genesis.Hash).Msg("created genesis block")
	return l
}

// FromBlocks rebuilds a ledger from persisted or imported blocks. The chain is
// not verified here; run Verify to detect tampering.
func FromBlocks(blocks []models.Block, miner *Miner, opts ...LedgerOption) (*Ledger, error) {
	if len(blocks) == 0 {
		return nil, errors.New("cannot load empty chain")
	}
	if blocks[0].Index != 0 {
		return nil, fmt.Errorf("first block has index %d, expected genesis", blocks[0].Index)
	}

	l := newLedger(miner, opts)
	l.blocks = make([]models.Block, len(blocks))
	for i, b := range blocks {
		l.blocks[i] = b.Clone()
	}
	return l, nil
}

// The genesis hash is computed over "GENESIS" + creation time in Unix
// milliseconds, not over the canonical block content, so it is exempt from
// verification.
func (l *Ledger) genesis() models.Block {
	created := l.now()
	return models.Block{
		Index:        0,
		Timestamp:    models.FormatTimestamp(created),
		Voter:        models.GenesisVoter,
		Candidate:    nil,
		PreviousHash: models.ZeroHash,
		Nonce:        0,
		Hash:         l.miner.Hasher().Hash(models.GenesisVoter + strconv.FormatInt(created.UnixMilli(), 10)),
	}
}

// Append mines a block for the vote on top of the current tip and pushes it.
// Reading the tip, mining and pushing happen under one lock so concurrent
// callers can never link to the same parent.
func (l *Ledger) Append(voter, candidate string) models.Block {
	block, _ := l.AppendWithAttempts(voter, candidate)
	return block
}

// AppendWithAttempts is Append that also reports the number of hashes the
// miner computed.
func (l *Ledger) AppendWithAttempts(voter, candidate string) (models.Block, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tip := l.blocks[len(l.blocks)-1]
	index := uint64(len(l.blocks))
	timestamp := models.FormatTimestamp(l.now())

	block, attempts := l.miner.Search(index, timestamp, voter, models.CandidatePtr(candidate), tip.Hash)
	l.blocks = append(l.blocks, block)

	l.log.Debug().
		Uint64("index", block.Index).
		Uint64("nonce", block.Nonce).
		Int("attempts", attempts).
		Str("hash", block.Hash).
		Msg("appended block")
	if !l.miner.MeetsDifficulty(block.Hash) {
		l.log.Warn().Uint64("index", block.Index).Msg("nonce cap reached, block accepted below difficulty")
	}

	return block.Clone(), attempts
}

func (l *Ledger) TipHash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[len(l.blocks)-1].Hash
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Blocks returns a snapshot; callers may modify it freely.
func (l *Ledger) Blocks() []models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]models.Block, len(l.blocks))
	for i, b := range l.blocks {
		blocks[i] = b.Clone()
	}
	return blocks
}

func (l *Ledger) Block(index uint64) (models.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= uint64(len(l.blocks)) {
		return models.Block{}, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
	}
	return l.blocks[index].Clone(), nil
}

func (l *Ledger) Verify() Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Verify(l.miner.Hasher(), l.blocks)
}

func (l *Ledger) Miner() *Miner { return l.miner }
