package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vote-ledger/models"
	"vote-ledger/storage"
)

const DefaultParty = "Independent"

var ErrCandidateNameRequired = errors.New("candidate name is required")

// DefaultCandidates is the roster seeded on first start and after a reset.
func DefaultCandidates() []models.Candidate {
	return []models.Candidate{
		{ID: "c1", Name: "Chaiwala", Party: "Innovation Party"},
		{ID: "c2", Name: "Pappu", Party: "Future Now"},
		{ID: "c3", Name: "Teju bhaiya", Party: "Student Voice"},
	}
}

// CandidateRegistry is the ordered candidate roster backed by a Store.
type CandidateRegistry struct {
	store      storage.Store
	candidates []models.Candidate
	mu         sync.RWMutex
	now        func() time.Time
}

// NewCandidateRegistry loads the roster from the store, seeding the default
// candidates when none has been saved yet.
func NewCandidateRegistry(store storage.Store) (*CandidateRegistry, error) {
	r := &CandidateRegistry{store: store, now: time.Now}

	var cands []models.Candidate
	found, err := store.Load(storage.KeyCandidates, &cands)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	if !found {
		cands = DefaultCandidates()
		if err := store.Save(storage.KeyCandidates, cands); err != nil {
			return nil, fmt.Errorf("failed to seed candidates: %w", err)
		}
	}
	r.candidates = cands
	return r, nil
}

func (r *CandidateRegistry) List() []models.Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

func (r *CandidateRegistry) Get(id string) (models.Candidate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.candidates {
		if c.ID == id {
			return c, true
		}
	}
	return models.Candidate{}, false
}

func (r *CandidateRegistry) Exists(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Add appends a candidate. The id is "c" followed by the base-36 creation
// time in milliseconds.
func (r *CandidateRegistry) Add(name, party, img string) (models.Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Candidate{}, ErrCandidateNameRequired
	}
	party = strings.TrimSpace(party)
	if party == "" {
		party = DefaultParty
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := "c" + strconv.FormatInt(r.now().UnixMilli(), 36)
	if r.indexOf(id) >= 0 {
		id += "-" + uuid.NewString()[:8]
	}
	c := models.Candidate{ID: id, Name: name, Party: party, Image: strings.TrimSpace(img)}

	cands := append(append([]models.Candidate(nil), r.candidates...), c)
	if err := r.store.Save(storage.KeyCandidates, cands); err != nil {
		return models.Candidate{}, fmt.Errorf("failed to save candidates: %w", err)
	}
	r.candidates = cands
	return c, nil
}

// Reset restores the default roster.
func (r *CandidateRegistry) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cands := DefaultCandidates()
	if err := r.store.Save(storage.KeyCandidates, cands); err != nil {
		return fmt.Errorf("failed to save candidates: %w", err)
	}
	r.candidates = cands
	return nil
}

func (r *CandidateRegistry) indexOf(id string) int {
	for i, c := range r.candidates {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// IsAdmin reports whether address is the administrator wallet.
func IsAdmin(address, adminAddress string) bool {
	return address != "" && strings.EqualFold(strings.TrimSpace(address), adminAddress)
}
