package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"vote-ledger/config"
)

// Keys used by the ledger, named after the web client's localStorage keys.
const (
	KeyChain      = "dv_chain"
	KeyCandidates = "dv_candidates"
	KeyWallet     = "dv_wallet"
	KeyVotes      = "dv_votes"
)

// AllKeys lists every key an administrative reset has to clear.
var AllKeys = []string{KeyChain, KeyCandidates, KeyWallet, KeyVotes}

var errEmptyKey = errors.New("storage key is empty")

// Store is the synchronous key-value persistence service. Load leaves v
// untouched and reports false when the key has never been saved, so callers
// pre-fill v with their default.
type Store interface {
	Load(key string, v any) (bool, error)
	Save(key string, v any) error
	Delete(key string) error
	Close() error
}

func checkKey(key string) error {
	if key == "" {
		return errEmptyKey
	}
	return nil
}

// Open creates the store selected by cfg.StorageBackend.
func Open(cfg config.Config, log zerolog.Logger) (Store, error) {
	switch cfg.StorageBackend {
	case config.BackendJSON:
		return NewJSONStore(cfg.StorageDir)
	case config.BackendBolt:
		return NewBoltStore(filepath.Join(cfg.StorageDir, "ledger.db"))
	case config.BackendPostgres:
		return NewGormStore(cfg.DatabaseURL, log)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}
