package models

import "strings"

// Wallet is what the signer capability hands us after a connect.
// IsMetaMask marks an external signer which covers gas on its own.
type Wallet struct {
	Address    string  `json:"address"`
	Balance    float64 `json:"balance"`
	IsMetaMask bool    `json:"isMetaMask"`
}

func (w *Wallet) Owns(address string) bool {
	return w != nil && strings.EqualFold(w.Address, address)
}
