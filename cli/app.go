package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"vote-ledger/blockchain"
	"vote-ledger/config"
	"vote-ledger/hasher"
	"vote-ledger/logger"
	"vote-ledger/registry"
	"vote-ledger/service"
	"vote-ledger/storage"
)

// App is the wired ledger: store, roster, wallet session and facade.
type App struct {
	Config  config.Config
	Store   storage.Store
	Archive *storage.Archive
	Service *service.VotingService

	log zerolog.Logger
}

// NewApp opens the configured store and restores the ledger from it.
func NewApp(cfg config.Config, log zerolog.Logger) (*App, error) {
	h, err := hasher.New(cfg.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	miner, err := blockchain.NewMiner(h, cfg.DifficultyPrefix, cfg.NonceCap)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg, logger.Module(log, "storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StorageBackend, err)
	}

	archive, err := storage.NewArchive(cfg.StorageDir, cfg.SnapshotKeep, logger.Module(log, "archive"))
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	roster, err := registry.NewCandidateRegistry(store)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	wallets, err := service.NewWalletSession(store, logger.Module(log, "wallet"))
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	vs, err := service.NewVotingService(store, roster, wallets, miner,
		service.WithLogger(logger.Module(log, "ledger")),
		service.WithGasPolicy(service.GasPolicy{Cost: cfg.GasCost}),
		service.WithStrictCandidates(cfg.StrictCandidates),
	)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	return &App{
		Config:  cfg,
		Store:   store,
		Archive: archive,
		Service: vs,
		log:     log,
	}, nil
}

// Snapshot writes the current chain to the archive.
func (a *App) Snapshot() error {
	path, err := a.Archive.SaveSnapshot(a.Service.Blocks())
	if err != nil {
		return fmt.Errorf("failed to save chain snapshot: %w", err)
	}
	a.log.Debug().Str("path", path).Msg("chain snapshot saved")
	return nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

func (c *baseConfiguration) openApp() (*App, error) {
	return NewApp(c.Config, c.log)
}
