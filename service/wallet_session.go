package service

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
	"github.com/rs/zerolog"

	"vote-ledger/models"
	"vote-ledger/storage"
)

// WalletSession holds the single connected wallet, persisted under dv_wallet.
type WalletSession struct {
	store  storage.Store
	wallet *models.Wallet
	mu     sync.RWMutex
	log    zerolog.Logger
}

func NewWalletSession(store storage.Store, log zerolog.Logger) (*WalletSession, error) {
	var w *models.Wallet
	if _, err := store.Load(storage.KeyWallet, &w); err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return &WalletSession{store: store, wallet: w, log: log}, nil
}

// Connect connects a demo wallet with a spendable balance.
func (ws *WalletSession) Connect(address string, balance float64) (models.Wallet, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.Wallet{}, ErrInvalidAddress
	}
	if balance < 0 {
		return models.Wallet{}, fmt.Errorf("balance must not be negative, got %v", balance)
	}
	return ws.set(&models.Wallet{Address: address, Balance: balance})
}

// ConnectExternal connects a wallet whose transactions are signed elsewhere.
// balanceWei is the hex quantity returned by eth_getBalance.
func (ws *WalletSession) ConnectExternal(address, balanceWei string) (models.Wallet, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return models.Wallet{}, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	balance := 0.0
	if balanceWei != "" {
		wei, err := hexutil.DecodeBig(balanceWei)
		if err != nil {
			return models.Wallet{}, fmt.Errorf("invalid wei balance %q: %w", balanceWei, err)
		}
		balance = weiToEther(wei)
	}
	return ws.set(&models.Wallet{Address: address, Balance: balance, IsMetaMask: true})
}

// weiToEther converts to ether rounded to four decimals.
func weiToEther(wei *big.Int) float64 {
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether)).Float64()
	return math.Round(eth*1e4) / 1e4
}

func (ws *WalletSession) set(w *models.Wallet) (models.Wallet, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.store.Save(storage.KeyWallet, w); err != nil {
		return models.Wallet{}, fmt.Errorf("failed to save wallet: %w", err)
	}
	ws.wallet = w
	ws.log.Info().Str("address", w.Address).Bool("external", w.IsMetaMask).Msg("wallet connected")
	return *w, nil
}

func (ws *WalletSession) Disconnect() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.store.Delete(storage.KeyWallet); err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	ws.wallet = nil
	return nil
}

// Current returns the connected wallet, if any.
func (ws *WalletSession) Current() (models.Wallet, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()

	if ws.wallet == nil {
		return models.Wallet{}, false
	}
	return *ws.wallet, true
}

// Spend charges amount to the connected wallet, which must belong to address.
// External wallets pay their own gas and are never decremented.
func (ws *WalletSession) Spend(address string, amount float64) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.wallet.Owns(address) {
		return ErrWalletNotConnected
	}
	if ws.wallet.IsMetaMask {
		return nil
	}
	if ws.wallet.Balance < amount {
		return ErrInsufficientBalance
	}

	updated := *ws.wallet
	updated.Balance -= amount
	if err := ws.store.Save(storage.KeyWallet, &updated); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	ws.wallet = &updated
	return nil
}

// reset forgets the in-memory wallet after the store has been cleared.
func (ws *WalletSession) reset() {
	ws.mu.Lock()
	ws.wallet = nil
	ws.mu.Unlock()
}
