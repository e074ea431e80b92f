package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := Module(New(Config{Writer: buf}), "ledger")
	log.Info().Int("index", 3).Msg("appended block")
	log.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "ledger", entry[ModuleKey])
	require.Equal(t, "appended block", entry["message"])
	require.EqualValues(t, 3, entry["index"])
	require.Contains(t, entry, "time")
}

func TestNew_DebugLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Config{Writer: buf, Debug: true})
	log.Debug().Msg("visible")
	require.Contains(t, buf.String(), "visible")
}

func TestNew_Console(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Config{Writer: buf, Console: true})
	log.Warn().Str("voter", "0xABC").Msg("already voted")
	require.Contains(t, buf.String(), "already voted")
	require.Contains(t, buf.String(), "voter=0xABC")
}
