package observability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core)).With(String("command", "join-exhibit"))

	l.Info("added", Int("page", 3), Int64("size", 10), Float("x", 0.5), Bool("rotated", true))
	l.Warn("missing", Error("err", errors.New("not found")))

	entries := logs.All()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "join-exhibit", ctx["command"])
	assert.EqualValues(t, 3, ctx["page"])
	assert.Equal(t, true, ctx["rotated"])
	assert.Equal(t, "not found", entries[1].ContextMap()["err"])
}

func TestNewZapLevel(t *testing.T) {
	_, err := NewZap("verbose", false)
	require.Error(t, err)
	l, err := NewZap("debug", true)
	require.NoError(t, err)
	l.Debug("hello")
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, NopLogger{}, OrNop(nil))
	assert.IsType(t, NopLogger{}, NopLogger{}.With(String("a", "b")))
}
