package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"vote-ledger/models"
)

func testChain(n int) []models.Block {
	chain := []models.Block{{Index: 0, Voter: models.GenesisVoter, PreviousHash: models.ZeroHash, Hash: "g"}}
	for i := 1; i < n; i++ {
		chain = append(chain, models.Block{Index: uint64(i), Voter: "0xA", Candidate: models.CandidatePtr("c1"), PreviousHash: chain[i-1].Hash, Hash: string(rune('a' + i))})
	}
	return chain
}

func TestArchive_SaveAndLatest(t *testing.T) {
	a, err := NewArchive(t.TempDir(), 5, zerolog.Nop())
	require.NoError(t, err)

	latest, err := a.LatestSnapshot()
	require.NoError(t, err)
	require.Nil(t, latest)

	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	path, err := a.SaveSnapshot(testChain(2))
	require.NoError(t, err)
	require.Equal(t, "ledger_chain_20240501100000.json", filepath.Base(path))

	clock = clock.Add(time.Minute)
	_, err = a.SaveSnapshot(testChain(3))
	require.NoError(t, err)

	latest, err = a.LatestSnapshot()
	require.NoError(t, err)
	require.Len(t, latest, 3)
	require.Equal(t, "c1", latest[2].CandidateID())
}

func TestArchive_KeepsNewest(t *testing.T) {
	a, err := NewArchive(t.TempDir(), 2, zerolog.Nop())
	require.NoError(t, err)

	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }
	for i := 1; i <= 4; i++ {
		_, err := a.SaveSnapshot(testChain(i))
		require.NoError(t, err)
		clock = clock.Add(time.Second)
	}

	paths, err := a.Snapshots()
	require.NoError(t, err)
	require.Len(t, paths, 2)
	require.Equal(t, "ledger_chain_20240501100002.json", filepath.Base(paths[0]))
	require.Equal(t, "ledger_chain_20240501100003.json", filepath.Base(paths[1]))

	latest, err := a.LatestSnapshot()
	require.NoError(t, err)
	require.Len(t, latest, 4)
}

func TestArchive_RejectsEmptyChain(t *testing.T) {
	a, err := NewArchive(t.TempDir(), 5, zerolog.Nop())
	require.NoError(t, err)
	_, err = a.SaveSnapshot(nil)
	require.EqualError(t, err, "cannot save empty chain")
}
