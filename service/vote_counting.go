package service

import (
	"math"

	"vote-ledger/models"
)

// CandidateResult is one roster row of the results dashboard.
type CandidateResult struct {
	models.Candidate
	Votes   int `json:"votes"`
	Percent int `json:"percent"`
}

// Tally is the dashboard view of the results.
type Tally struct {
	Candidates []CandidateResult `json:"candidates"`
	// TotalVotes counts votes for roster candidates only.
	TotalVotes int `json:"totalVotes"`
	// Unlisted holds votes for ids that are not on the roster.
	Unlisted map[string]int `json:"unlisted,omitempty"`
}

// CountVotes tallies the candidate field of every non-genesis block.
func CountVotes(blocks []models.Block) map[string]int {
	results := make(map[string]int)
	for _, b := range blocks {
		if b.IsGenesis() || b.Candidate == nil {
			continue
		}
		results[*b.Candidate]++
	}
	return results
}

// BuildTally orders counts by roster and computes whole percentages.
func BuildTally(roster []models.Candidate, counts map[string]int) Tally {
	tally := Tally{Candidates: make([]CandidateResult, 0, len(roster))}

	listed := make(map[string]bool, len(roster))
	for _, c := range roster {
		listed[c.ID] = true
		tally.TotalVotes += counts[c.ID]
	}
	for _, c := range roster {
		n := counts[c.ID]
		pct := 0
		if tally.TotalVotes > 0 {
			pct = int(math.Round(float64(n) / float64(tally.TotalVotes) * 100))
		}
		tally.Candidates = append(tally.Candidates, CandidateResult{Candidate: c, Votes: n, Percent: pct})
	}
	for id, n := range counts {
		if listed[id] {
			continue
		}
		if tally.Unlisted == nil {
			tally.Unlisted = make(map[string]int)
		}
		tally.Unlisted[id] = n
	}
	return tally
}
