package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-manager/internal/config"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newWithOutput(config.Log{Level: "debug", Format: "json"}, &buf)
	assert.Equal(t, log.DebugLevel, l.GetLevel())

	l.WithField("trip_id", "t-1").Info("Trip completed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Trip completed", entry["msg"])
	assert.Equal(t, "t-1", entry["trip_id"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := New(config.Log{Level: "chatty"})
	assert.Equal(t, log.InfoLevel, l.GetLevel())
	_, isText := l.Formatter.(*log.TextFormatter)
	assert.True(t, isText)
}
