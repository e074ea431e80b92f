package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vote-ledger/blockchain"
	"vote-ledger/models"
	"vote-ledger/registry"
	"vote-ledger/storage"
)

// VotingService is the vote ledger facade. It enforces one vote per identity
// and the gas charge, mines the vote into the ledger and persists the result.
type VotingService struct {
	store   storage.Store
	roster  *registry.CandidateRegistry
	wallets *WalletSession
	miner   *blockchain.Miner
	ledger  *blockchain.Ledger
	votes   models.VoteRecords
	metrics *MetricsCollector

	gas              GasPolicy
	strictCandidates bool
	now              func() time.Time
	log              zerolog.Logger

	mu sync.RWMutex
}

type Option func(*VotingService)

func WithLogger(log zerolog.Logger) Option {
	return func(vs *VotingService) { vs.log = log }
}

// WithClock sets the clock for block and vote timestamps.
func WithClock(now func() time.Time) Option {
	return func(vs *VotingService) { vs.now = now }
}

func WithGasPolicy(p GasPolicy) Option {
	return func(vs *VotingService) { vs.gas = p }
}

// WithStrictCandidates rejects votes for ids that are not on the roster.
func WithStrictCandidates(strict bool) Option {
	return func(vs *VotingService) { vs.strictCandidates = strict }
}

func WithMetrics(m *MetricsCollector) Option {
	return func(vs *VotingService) { vs.metrics = m }
}

// NewVotingService restores the chain and vote records from store, creating
// the genesis block on first start.
func NewVotingService(store storage.Store, roster *registry.CandidateRegistry, wallets *WalletSession, miner *blockchain.Miner, opts ...Option) (*VotingService, error) {
	vs := &VotingService{
		store:   store,
		roster:  roster,
		wallets: wallets,
		miner:   miner,
		metrics: NewMetricsCollector(),
		gas:     DefaultGasPolicy(),
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(vs)
	}

	var blocks []models.Block
	found, err := store.Load(storage.KeyChain, &blocks)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain: %w", err)
	}
	if found && len(blocks) > 0 {
		vs.ledger, err = blockchain.FromBlocks(blocks, miner, vs.ledgerOptions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to restore chain: %w", err)
		}
		if res := vs.ledger.Verify(); !res.OK {
			vs.log.Warn().Err(res.Err()).Msg("restored chain does not verify")
		}
	} else {
		vs.ledger = blockchain.NewLedger(miner, vs.ledgerOptions()...)
	}

	var stored models.VoteRecords
	if _, err := store.Load(storage.KeyVotes, &stored); err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	vs.votes = models.VoteRecords{}
	for voter, rec := range stored {
		if _, ok := vs.votes[voterKey(voter)]; !ok {
			vs.votes[voterKey(voter)] = rec
		}
	}

	vs.persist()
	vs.log.Info().
		Int("blocks", vs.ledger.Len()).
		Int("voters", len(vs.votes)).
		Str("hash", miner.Hasher().Name()).
		Str("prefix", miner.Prefix()).
		Msg("voting service ready")
	return vs, nil
}

func (vs *VotingService) ledgerOptions() []blockchain.LedgerOption {
	return []blockchain.LedgerOption{
		blockchain.WithClock(vs.now),
		blockchain.WithLogger(vs.log),
	}
}

// CastVote records a vote for candidateID by voter and returns the mined block.
func (vs *VotingService) CastVote(voter, candidateID string) (models.Block, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if err := vs.verifyVoter(voter, candidateID); err != nil {
		vs.metrics.RecordRejected()
		vs.log.Info().Err(err).Str("voter", voter).Str("candidate", candidateID).Msg("vote rejected")
		return models.Block{}, err
	}

	start := time.Now()
	block, attempts := vs.ledger.AppendWithAttempts(voter, candidateID)
	vs.metrics.RecordVote(time.Since(start), attempts, !vs.miner.MeetsDifficulty(block.Hash))

	// recorded only once the block is on the chain
	vs.votes[voterKey(voter)] = models.VoteRecord{
		CandidateID: candidateID,
		Timestamp:   models.FormatTimestamp(vs.now()),
	}
	vs.persist()

	vs.log.Info().
		Uint64("index", block.Index).
		Str("voter", voter).
		Str("candidate", candidateID).
		Int("attempts", attempts).
		Msg("vote added")
	return block, nil
}

// persist writes chain and vote records. Caller holds vs.mu or owns vs.
func (vs *VotingService) persist() {
	if err := vs.store.Save(storage.KeyChain, vs.ledger.Blocks()); err != nil {
		vs.log.Error().Err(err).Msg("failed to persist chain")
	}
	if err := vs.store.Save(storage.KeyVotes, vs.votes); err != nil {
		vs.log.Error().Err(err).Msg("failed to persist votes")
	}
}

// Results counts votes per candidate id over all non-genesis blocks.
func (vs *VotingService) Results() map[string]int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return CountVotes(vs.ledger.Blocks())
}

func (vs *VotingService) Tally() Tally {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return BuildTally(vs.roster.List(), CountVotes(vs.ledger.Blocks()))
}

func (vs *VotingService) HasVoted(identity string) bool {
	_, ok := vs.VoteRecord(identity)
	return ok
}

func (vs *VotingService) VoteRecord(identity string) (models.VoteRecord, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	rec, ok := vs.votes[voterKey(identity)]
	return rec, ok
}

func (vs *VotingService) Verify() blockchain.Result {
	vs.mu.RLock()
	res := vs.ledger.Verify()
	vs.mu.RUnlock()

	vs.metrics.RecordVerification(res.OK)
	if !res.OK {
		vs.log.Warn().Int("index", res.Index).Str("reason", res.Reason).Msg("chain verification failed")
	}
	return res
}

func (vs *VotingService) Blocks() []models.Block {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ledger.Blocks()
}

func (vs *VotingService) Block(index uint64) (models.Block, error) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ledger.Block(index)
}

func (vs *VotingService) TipHash() string {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	return vs.ledger.TipHash()
}

func (vs *VotingService) Candidates() []models.Candidate {
	return vs.roster.List()
}

func (vs *VotingService) AddCandidate(name, party, img string) (models.Candidate, error) {
	c, err := vs.roster.Add(name, party, img)
	if err != nil {
		return models.Candidate{}, err
	}
	vs.log.Info().Str("id", c.ID).Str("name", c.Name).Msg("candidate added")
	return c, nil
}

func (vs *VotingService) Wallets() *WalletSession { return vs.wallets }

func (vs *VotingService) Metrics() *MetricsCollector { return vs.metrics }

func (vs *VotingService) Miner() *blockchain.Miner { return vs.miner }

// Export returns the chain as an indented JSON array.
func (vs *VotingService) Export() ([]byte, error) {
	return blockchain.Export(vs.Blocks())
}

// Import replaces the chain with an exported one and rebuilds the vote
// records from it. The returned result reports whether the imported chain
// verifies; a failing chain is still installed.
func (vs *VotingService) Import(data []byte) (blockchain.Result, error) {
	blocks, err := blockchain.Import(data)
	if err != nil {
		return blockchain.Result{}, err
	}
	ledger, err := blockchain.FromBlocks(blocks, vs.miner, vs.ledgerOptions()...)
	if err != nil {
		return blockchain.Result{}, err
	}

	vs.mu.Lock()
	vs.ledger = ledger
	vs.votes = votesFromBlocks(blocks)
	vs.persist()
	res := ledger.Verify()
	vs.mu.Unlock()

	vs.metrics.RecordVerification(res.OK)
	vs.log.Info().Int("blocks", len(blocks)).Bool("valid", res.OK).Msg("chain imported")
	return res, nil
}

// voterKey is the identity a vote is recorded under. Wallet addresses match
// case-insensitively, so the record must too.
func voterKey(voter string) string {
	return strings.ToLower(strings.TrimSpace(voter))
}

// votesFromBlocks keeps the first block of every voter.
func votesFromBlocks(blocks []models.Block) models.VoteRecords {
	votes := models.VoteRecords{}
	for _, b := range blocks {
		if b.IsGenesis() {
			continue
		}
		key := voterKey(b.Voter)
		if _, ok := votes[key]; ok {
			continue
		}
		votes[key] = models.VoteRecord{CandidateID: b.CandidateID(), Timestamp: b.Timestamp}
	}
	return votes
}

// Reset clears chain, votes, candidates and wallet and starts a new chain.
func (vs *VotingService) Reset() error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	for _, key := range storage.AllKeys {
		if err := vs.store.Delete(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	vs.wallets.reset()
	if err := vs.roster.Reset(); err != nil {
		return err
	}
	vs.ledger = blockchain.NewLedger(vs.miner, vs.ledgerOptions()...)
	vs.votes = models.VoteRecords{}
	vs.persist()

	vs.log.Info().Str("genesis", vs.ledger.TipHash()).Msg("ledger reset")
	return nil
}
