package models

import (
	"strconv"
	"strings"
	"time"
)

const (
	GenesisVoter = "GENESIS"

	// TimestampLayout matches the ISO-8601 form produced by JavaScript's Date.toISOString.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	nullCandidate = "null"
	delimiter     = "|"
)

// ZeroHash is the previous hash recorded in the genesis block.
var ZeroHash = strings.Repeat("0", 64)

type Block struct {
	Index        uint64  `json:"index"`
	Timestamp    string  `json:"timestamp"`
	Voter        string  `json:"voter"`
	Candidate    *string `json:"candidate"`
	PreviousHash string  `json:"previousHash"`
	Nonce        uint64  `json:"nonce"`
	Hash         string  `json:"hash"`
}

// Canonical returns the delimiter-joined mining content of the block.
// An absent candidate is rendered as the literal "null".
func (b Block) Canonical() string {
	return CanonicalContent(b.Index, b.Timestamp, b.Voter, b.Candidate, b.PreviousHash, b.Nonce)
}

func CanonicalContent(index uint64, timestamp, voter string, candidate *string, previousHash string, nonce uint64) string {
	c := nullCandidate
	if candidate != nil {
		c = *candidate
	}

	var sb strings.Builder
	sb.Grow(len(timestamp) + len(voter) + len(c) + len(previousHash) + 48)
	sb.WriteString(strconv.FormatUint(index, 10))
	sb.WriteString(delimiter)
	sb.WriteString(timestamp)
	sb.WriteString(delimiter)
	sb.WriteString(voter)
	sb.WriteString(delimiter)
	sb.WriteString(c)
	sb.WriteString(delimiter)
	sb.WriteString(previousHash)
	sb.WriteString(delimiter)
	sb.WriteString(strconv.FormatUint(nonce, 10))
	return sb.String()
}

// CandidateID returns the voted candidate id, or "" for the genesis block.
func (b Block) CandidateID() string {
	if b.Candidate == nil {
		return ""
	}
	return *b.Candidate
}

func (b Block) IsGenesis() bool {
	return b.Index == 0
}

// Time parses the stored timestamp. Imported chains may carry timestamps in
// other RFC 3339 variants, those are accepted too.
func (b Block) Time() (time.Time, error) {
	t, err := time.Parse(TimestampLayout, b.Timestamp)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, b.Timestamp)
}

// Clone returns a copy that shares no memory with b.
func (b Block) Clone() Block {
	if b.Candidate != nil {
		c := *b.Candidate
		b.Candidate = &c
	}
	return b
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CandidatePtr is a convenience for building blocks by hand.
func CandidatePtr(id string) *string {
	return &id
}
