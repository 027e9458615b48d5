package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", false, &buf)
	t.Cleanup(func() { Init("info", false, nil) })

	Logger.WithField("expense_id", 7).Debug("expense appended")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "expense appended", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.EqualValues(t, 7, entry["expense_id"])
	assert.Contains(t, entry["file"], "logger_test.go:")
}

func TestInitUnknownLevel(t *testing.T) {
	Init("chatty", false, &bytes.Buffer{})
	t.Cleanup(func() { Init("info", false, nil) })

	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}

func TestInitDevelopmentUsesText(t *testing.T) {
	var buf bytes.Buffer
	Init("info", true, &buf)
	t.Cleanup(func() { Init("info", false, nil) })

	Logger.Info("started")

	assert.IsType(t, &logrus.TextFormatter{}, Logger.Formatter)
	assert.Contains(t, buf.String(), `msg=started`)
}
