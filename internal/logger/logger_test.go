package logger

import (
	"bytes"
	"os"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})
	return &buf
}

func TestLevelGatesRecords(t *testing.T) {
	buf := capture(t)
	SetLevel("warn")
	Infof("quiet %d", 1)
	Warnf("loud %d", 2)
	out := buf.String()
	assert.NotContains(t, out, "quiet 1")
	assert.Contains(t, out, "loud 2")
}

func TestStructuredAttributesAppear(t *testing.T) {
	buf := capture(t)
	Infow("order filled", "symbol", "BTC", "notional", "40")
	out := buf.String()
	assert.Contains(t, out, "order filled")
	assert.Contains(t, out, "symbol=BTC")
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel(" Debug "))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
