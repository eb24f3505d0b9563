package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestComponentLoggerWritesStructuredFields(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	InitializeWithWriter("warn", &buf)

	l := GetForComponent("controller")
	l.Info().Msg("dropped below warn")
	l.Warn().Str("pool", "alice/sol").Msg("Operation rejected")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "controller", entry["component"])
	assert.Equal(t, "alice/sol", entry["pool"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Operation rejected", entry["message"])
}

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lbpd.log")
	w, err := FileWriter(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, w.(io.Closer).Close())

	_, err = FileWriter(filepath.Join(t.TempDir(), "missing", "lbpd.log"))
	assert.Error(t, err)
}
