package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("contracting vertex", "vertex", 42, "shortcuts", 3)
	logger.With("graph", "yogyakarta").WithGroup("ch").Warn("stale score", "note", "two words")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	first := strings.Fields(lines[0])
	require.Len(t, first, 7)
	assert.Regexp(t, `^\d{4}/\d{2}/\d{2}$`, first[0])
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, first[1])
	assert.Equal(t, "INFO", first[2])
	assert.Equal(t, "contracting vertex vertex=42 shortcuts=3", strings.Join(first[3:], " "))

	assert.Contains(t, lines[1], "WARN stale score graph=yogyakarta ch.note=\"two words\"")
	assert.NotContains(t, buf.String(), "hidden")
}
