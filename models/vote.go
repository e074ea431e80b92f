package models

// VoteRecord is the per-identity receipt of a cast vote. It is created once
// and only removed by an administrative reset.
type VoteRecord struct {
	CandidateID string `json:"candidateId"`
	Timestamp   string `json:"timestamp"`
}

// VoteRecords maps voter identity to its receipt.
type VoteRecords map[string]VoteRecord
