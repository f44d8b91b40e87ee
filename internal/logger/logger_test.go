package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLevels(t *testing.T) {
	require.NoError(t, Init(Config{Level: "warn"}))
	assert.Equal(t, zerolog.WarnLevel, GetLogger().GetLevel())

	require.NoError(t, Init(Config{Level: "error", Debug: true}))
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	assert.Error(t, Init(Config{Level: "loud"}))
}

func TestSetDebug(t *testing.T) {
	require.NoError(t, Init(Config{}))

	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestPrintfHelpersWriteJSON(t *testing.T) {
	require.NoError(t, Init(Config{}))

	var buf bytes.Buffer
	SetOutput(&buf)

	Info("device %s reported", "abc")
	Debug("suppressed at info level")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "device abc reported", entry["message"])
}
