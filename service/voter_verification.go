package service

import (
	"fmt"
)

// GasPolicy is the demo gas price charged per vote.
type GasPolicy struct {
	Cost float64
}

func DefaultGasPolicy() GasPolicy {
	return GasPolicy{Cost: 1}
}

// Charge spends the vote cost from the wallet connected for voter.
func (p GasPolicy) Charge(wallets *WalletSession, voter string) error {
	return wallets.Spend(voter, p.Cost)
}

// verifyVoter runs the checks that must pass before a vote is mined.
// Nothing is spent unless every earlier check passed. Caller holds vs.mu.
func (vs *VotingService) verifyVoter(voter, candidateID string) error {
	// 1. One vote per identity
	if _, voted := vs.votes[voterKey(voter)]; voted {
		return ErrAlreadyVoted
	}

	// 2. Candidate must be on the roster when strict checking is on
	if !vs.roster.Exists(candidateID) {
		if vs.strictCandidates {
			return fmt.Errorf("%w: %s", ErrUnknownCandidate, candidateID)
		}
		vs.log.Warn().Str("candidate", candidateID).Msg("vote for candidate not on the roster")
	}

	// 3. Gas
	if err := vs.gas.Charge(vs.wallets, voter); err != nil {
		return err
	}
	return nil
}
