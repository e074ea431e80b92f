package hasher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSHA256_KnownVector(t *testing.T) {
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		SHA256{}.Hash("abc"))
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		SHA256{}.Hash(""))
}

func TestKeccak256_KnownVector(t *testing.T) {
	require.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		Keccak256{}.Hash(""))
}

func TestHash_Deterministic(t *testing.T) {
	for _, h := range []Hasher{SHA256{}, Keccak256{}} {
		a := h.Hash("1|2024-01-01T00:00:00.000Z|0xABC|c1|00|7")
		b := h.Hash("1|2024-01-01T00:00:00.000Z|0xABC|c1|00|7")
		require.Equal(t, a, b, h.Name())
		require.Len(t, a, 64, h.Name())
		require.Regexp(t, "^[0-9a-f]{64}$", a, h.Name())
	}
}

func TestNew(t *testing.T) {
	h, err := New("")
	require.NoError(t, err)
	require.Equal(t, AlgSHA256, h.Name())

	h, err = New("SHA256")
	require.NoError(t, err)
	require.Equal(t, AlgSHA256, h.Name())

	h, err = New("keccak256")
	require.NoError(t, err)
	require.Equal(t, AlgKeccak256, h.Name())

	h, err = New("md5")
	require.EqualError(t, err, "unsupported hash algorithm: md5")
	require.Nil(t, h)
}
