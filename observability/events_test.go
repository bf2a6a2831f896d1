package observability_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stakespeaks/config"
	"stakespeaks/core"
	"stakespeaks/native/reputation"
	"stakespeaks/observability"
	"stakespeaks/observability/logging"
	"stakespeaks/storage"
)

func TestLogEmitterPublishesLedgerEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.SetupWithWriter(&buf, "stakespeaks", "test")

	cfg := config.Default()
	cfg.Backend = "memory"
	ledger, err := core.NewLedger(cfg, storage.NewMemDB())
	require.NoError(t, err)
	ledger.SetEmitter(observability.NewLogEmitter(logger))

	var speaker [20]byte
	speaker[19] = 0x01
	_, err = ledger.RegisterSpeaker(speaker)
	require.NoError(t, err)

	line := buf.String()
	require.Contains(t, line, `"message":"ledger event"`)
	require.Contains(t, line, reputation.EventTypeSpeakerRegistered)
	require.Contains(t, line, `"severity":"INFO"`)
	require.Contains(t, line, `"service":"stakespeaks"`)
	require.Contains(t, line, `"env":"test"`)
}

func TestLogEmitterIgnoresNilEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.SetupWithWriter(&buf, "stakespeaks", "test")

	emitter := observability.NewLogEmitter(logger)
	emitter.Emit(nil)
	require.Empty(t, strings.TrimSpace(buf.String()))
}
