package blockchain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"vote-ledger/hasher"
)

func TestExportImport_RoundTrip(t *testing.T) {
	blocks := fiveVoteChain(t)

	data, err := Export(blocks)
	require.NoError(t, err)

	imported, err := Import(data)
	require.NoError(t, err)
	require.Equal(t, blocks, imported)
	require.Equal(t, Verify(hasher.SHA256{}, blocks), Verify(hasher.SHA256{}, imported))
}

func TestExportImport_TamperedRoundTrip(t *testing.T) {
	blocks := fiveVoteChain(t)
	blocks[2].Voter = "0xEVIL"
	want := Verify(hasher.SHA256{}, blocks)
	require.False(t, want.OK)

	data, err := Export(blocks)
	require.NoError(t, err)
	imported, err := Import(data)
	require.NoError(t, err)
	require.Equal(t, want, Verify(hasher.SHA256{}, imported))
}

func TestExport_Format(t *testing.T) {
	l := newTestLedger(t, [2]string{"0xABC", "c1"})
	data, err := Export(l.Blocks())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 2)

	for _, key := range []string{"index", "timestamp", "voter", "candidate", "previousHash", "nonce", "hash"} {
		require.Contains(t, raw[0], key)
		require.Contains(t, raw[1], key)
	}
	require.Nil(t, raw[0]["candidate"])
	require.Equal(t, "GENESIS", raw[0]["voter"])
	require.Equal(t, "c1", raw[1]["candidate"])
	require.EqualValues(t, 1, raw[1]["index"])
	require.Contains(t, string(data), "\n  {")

	empty, err := Export(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(empty))
}

func TestImport_ExternalChain(t *testing.T) {
	// chain exported by the browser client, mined with SHA-256 and prefix "00"
	l := newTestLedger(t, [2]string{"0xabc0000000000000000000000000000000000001", "c2"})
	data, err := Export(l.Blocks())
	require.NoError(t, err)

	blocks, err := Import(data)
	require.NoError(t, err)
	require.Nil(t, blocks[0].Candidate)
	require.True(t, Verify(hasher.SHA256{}, blocks).OK)
}

func TestImport_Rejects(t *testing.T) {
	_, err := Import([]byte(`{"index":0}`))
	require.EqualError(t, err, "chain export must be a JSON array of blocks")

	_, err = Import([]byte(`   `))
	require.Error(t, err)

	_, err = Import([]byte(`[{"index":"zero"}]`))
	require.ErrorContains(t, err, "failed to unmarshal chain")
}
