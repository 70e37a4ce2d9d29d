package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    log.Level
	}{
		{"default", false, false, log.InfoLevel},
		{"verbose", true, false, log.DebugLevel},
		{"quiet", false, true, log.ErrorLevel},
		{"quiet wins", true, true, log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Level(tt.verbose, tt.quiet))
		})
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	old := Logger
	Logger = nil
	defer func() { Logger = old }()

	// Must not panic.
	Info("ignored")
	Debug("ignored")
	Warn("ignored")
	Error("ignored")
	assert.Nil(t, WithPrefix("x"))
}

func TestInitWritesKeyValues(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	var buf bytes.Buffer
	Init(&buf, false, false)

	Info("scored", "video_id", "v1", "overall", 61.2)
	Debug("hidden at info level")

	out := buf.String()
	assert.Contains(t, out, "scored")
	assert.Contains(t, out, "video_id=v1")
	assert.NotContains(t, out, "hidden at info level")
	assert.NotNil(t, WithPrefix("batch"))
}

func TestInitQuiet(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	var buf bytes.Buffer
	Init(&buf, true, true)
	Warn("suppressed")
	Error("shown")

	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "shown")
}
