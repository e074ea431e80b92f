package blockchain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"vote-ledger/models"
)

// ExportFileName is the file name the web client downloads the chain as.
const ExportFileName = "decentra_vote_chain.json"

// Export renders the chain as an indented JSON array of blocks.
func Export(blocks []models.Block) ([]byte, error) {
	if blocks == nil {
		blocks = []models.Block{}
	}
	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chain: %w", err)
	}
	return data, nil
}

// Import decodes a chain produced by Export.
func Import(data []byte) ([]models.Block, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("chain export must be a JSON array of blocks")
	}

	var blocks []models.Block
	if err := json.Unmarshal(trimmed, &blocks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chain: %w", err)
	}
	return blocks, nil
}
