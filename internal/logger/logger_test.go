package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{"debug", "debug", logrus.DebugLevel},
		{"warn", "warn", logrus.WarnLevel},
		{"invalid falls back to info", "loud", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := New(Options{Level: tt.level, Output: buf})
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNewJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "info", Format: "json", Output: buf})
	log.WithField("platform", "A").Info("hello")

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "A", entry["platform"])
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	log, _ := setupTestLogger()
	assert.Same(t, log, OrDiscard(log))
}

func TestPlatformLoggerDecision(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPlatformLogger(log, "A")

	pl.LogDecision(3, "SIMPSON, Homer", 2, -61)

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "fop", entry["component"])
	assert.Equal(t, "A", entry["platform"])
	assert.Equal(t, float64(-61), entry["result"])
	assert.Equal(t, false, entry["good"])
}

func TestPlatformLoggerTransitionSkipsSelfLoops(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPlatformLogger(log, "A")

	pl.LogTransition("ForceTime", "TIME_RUNNING", "TIME_RUNNING")
	assert.Zero(t, buf.Len())

	pl.LogTransition("TimeStarted", "CURRENT_ATHLETE_DISPLAYED", "TIME_RUNNING")
	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "TIME_RUNNING", entry["to"])
}

func TestPlatformLoggerRejected(t *testing.T) {
	log, buf := setupTestLogger()
	pl := NewPlatformLogger(log, "B")

	pl.LogRejected("WeightChange", errors.New("attempt already done"))

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "attempt already done", entry["error"])
}

func TestAuditLoggerResultEdit(t *testing.T) {
	log, buf := setupTestLogger()
	al := NewAuditLogger(log)

	al.LogResultEdit(4, "DIAZ, Ana", 2, -70, 70, "jury")

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, float64(70), entry["new_result"])
	assert.Equal(t, "jury", entry["changed_by"])
}

func TestAuditLoggerLotDraw(t *testing.T) {
	log, buf := setupTestLogger()
	NewAuditLogger(log).LogLotDraw(12, 42)

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, float64(12), entry["athletes"])
}
