package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-hunter/internal/logging/adapters"
)

func TestMultiLoggerLevelFiltering(t *testing.T) {
	logger := NewMultiLogger()
	mem := adapters.NewMemoryAdapter("mem", 10)
	require.NoError(t, logger.AddAdapter(mem))

	logger.SetLevel(WarnLevel)
	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	entries := mem.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, ErrorLevel, entries[1].Level)
}

func TestMultiLoggerDerivedFields(t *testing.T) {
	logger := NewMultiLogger()
	mem := adapters.NewMemoryAdapter("mem", 10)
	require.NoError(t, logger.AddAdapter(mem))

	child := logger.WithField("component", "discovery").WithFields(map[string]interface{}{"url": "https://x"})
	child.Info("page fetched", map[string]interface{}{"bytes": 42})
	logger.Info("parent")

	entries := mem.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "discovery", entries[0].Fields["component"])
	assert.Equal(t, "https://x", entries[0].Fields["url"])
	assert.Equal(t, 42, entries[0].Fields["bytes"])
	assert.NotContains(t, entries[1].Fields, "component")
}

func TestMultiLoggerDuplicateAdapter(t *testing.T) {
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapters.NewMemoryAdapter("mem", 1)))
	assert.Error(t, logger.AddAdapter(adapters.NewMemoryAdapter("mem", 1)))
	assert.NoError(t, logger.RemoveAdapter("mem"))
	assert.Error(t, logger.RemoveAdapter("mem"))
}

func TestMemoryAdapterCapacity(t *testing.T) {
	mem := adapters.NewMemoryAdapter("mem", 2)
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(mem))

	logger.Info("one")
	logger.Info("two")
	logger.Info("three")

	entries := mem.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Message)
	assert.Equal(t, "three", entries[1].Message)
}

func TestStdoutAdapterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapters.NewStdoutAdapter("out", adapters.StdoutConfig{Format: "json", Writer: &buf})))

	logger.WithField("lead_id", "abc").Info("lead saved")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "info", decoded["level"])
	assert.Equal(t, "lead saved", decoded["message"])
	assert.Equal(t, "abc", decoded["lead_id"])
}

func TestStdoutAdapterText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapters.NewStdoutAdapter("out", adapters.StdoutConfig{Format: "text", Writer: &buf})))

	logger.Warn("slow page", map[string]interface{}{"b": 2, "a": 1})

	line := buf.String()
	assert.Contains(t, line, "[WARN] slow page")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "a=1 b=2"))
}

func TestFileAdapterRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hunter.log")

	factory := NewAdapterFactory()
	adapter, err := factory.CreateAdapter(AdapterConfig{
		Name: "file",
		Type: "file",
		Options: map[string]interface{}{
			"file_path":   path,
			"max_size":    64,
			"max_backups": 2,
		},
	})
	require.NoError(t, err)

	logger := NewMultiLogger()
	require.NoError(t, logger.AddAdapter(adapter))
	for i := 0; i < 10; i++ {
		logger.Info("a message long enough to force rotation of the log file")
	}
	require.NoError(t, logger.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err))
}

func TestAdapterFactoryRejectsUnknownType(t *testing.T) {
	_, err := NewAdapterFactory().CreateAdapter(AdapterConfig{Name: "x", Type: "betterstack"})
	assert.Error(t, err)

	_, err = NewAdapterFactory().CreateAdapter(AdapterConfig{Name: "f", Type: "file"})
	assert.Error(t, err)
}
