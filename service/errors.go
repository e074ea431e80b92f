package service

import (
	"errors"
	"fmt"

	"vote-ledger/registry"
)

var (
	// ErrAlreadyVoted is permanent for the identity.
	ErrAlreadyVoted = errors.New("voter has already voted")
	// ErrInsufficientBalance may succeed after the wallet is topped up.
	ErrInsufficientBalance = errors.New("insufficient balance for gas")
	// ErrWalletNotConnected is returned when the voter's wallet is not the
	// connected one. It is a kind of ErrInsufficientBalance.
	ErrWalletNotConnected = fmt.Errorf("wallet not connected: %w", ErrInsufficientBalance)
	// ErrUnknownCandidate is only returned with strict candidate checking.
	ErrUnknownCandidate = errors.New("unknown candidate")
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrQueueFull        = errors.New("vote queue is full")
	ErrQueueStopped     = errors.New("vote queue is stopped")

	ErrCandidateNameRequired = registry.ErrCandidateNameRequired
)
