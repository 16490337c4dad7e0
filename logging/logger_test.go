package logging

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/crytic/relayfuzz/logging/colors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestAddAndRemoveWriter will test to Logger.AddWriter and Logger.RemoveWriter functions to ensure that they work as expected.
func TestAddAndRemoveWriter(t *testing.T) {
	// Create a base logger
	logger := NewLogger(zerolog.InfoLevel)

	// Add three types of writers
	// 1. Unstructured and colorized output to stdout
	logger.AddWriter(os.Stdout, UNSTRUCTURED, true)
	// 2. Unstructured and non-colorized output to stderr
	logger.AddWriter(os.Stderr, UNSTRUCTURED, false)
	// 3. Structured output to stdin
	logger.AddWriter(os.Stdin, STRUCTURED, false)

	// We should expect the underlying data structures are correctly updated
	assert.Equal(t, len(logger.unstructuredWriters), 1)
	assert.Equal(t, len(logger.unstructuredColorWriters), 1)
	assert.Equal(t, len(logger.structuredWriters), 1)

	// Try to add duplicate writers
	logger.AddWriter(os.Stdout, UNSTRUCTURED, true)
	logger.AddWriter(os.Stderr, UNSTRUCTURED, false)
	logger.AddWriter(os.Stdin, STRUCTURED, false)

	// Ensure that the lengths of the lists have not changed
	assert.Equal(t, len(logger.unstructuredWriters), 1)
	assert.Equal(t, len(logger.unstructuredColorWriters), 1)
	assert.Equal(t, len(logger.structuredWriters), 1)

	// Remove each writer
	logger.RemoveWriter(os.Stdout, UNSTRUCTURED, true)
	logger.RemoveWriter(os.Stderr, UNSTRUCTURED, false)
	logger.RemoveWriter(os.Stdin, STRUCTURED, false)

	// We should expect the underlying data structures are correctly updated
	assert.Equal(t, len(logger.unstructuredWriters), 0)
	assert.Equal(t, len(logger.unstructuredColorWriters), 0)
	assert.Equal(t, len(logger.structuredWriters), 0)
}

// TestDisabledColors verifies the behavior of the unstructured colored logger when colors are disabled,
// ensuring that it does not output colors when the color feature is turned off.
func TestDisabledColors(t *testing.T) {
	// Create a base logger
	logger := NewLogger(zerolog.InfoLevel)

	// Add colorized logger
	var buf bytes.Buffer
	logger.AddWriter(&buf, UNSTRUCTURED, true)

	// We should expect the underlying data structures are correctly updated
	assert.Equal(t, len(logger.unstructuredColorWriters), 1)

	// Disable colors and log msg
	colors.DisableColor()
	t.Cleanup(colors.EnableColor)
	logger.Info("foo")

	// Ensure that msg doesn't include colors afterwards
	prefix := fmt.Sprintf("%s %s", colors.LEFT_ARROW, "foo")
	_, _, ok := strings.Cut(buf.String(), prefix)
	assert.True(t, ok)
	assert.NotContains(t, buf.String(), "\x1b[")
}

// TestColorsFollowToggle ensures a colored writer emits ANSI codes while colors are enabled and stops as soon as
// they are disabled, without re-adding the writer.
func TestColorsFollowToggle(t *testing.T) {
	colors.EnableColor()
	if !colors.Enabled() {
		t.Skip("the attached console does not support ANSI codes")
	}
	t.Cleanup(colors.EnableColor)

	logger := NewLogger(zerolog.InfoLevel)
	var buf bytes.Buffer
	logger.AddWriter(&buf, UNSTRUCTURED, true)

	logger.Info("colored")
	assert.Contains(t, buf.String(), "\x1b[")

	buf.Reset()
	colors.DisableColor()
	logger.Warn("plain")
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "plain")
}

// TestSubLoggerContext ensures that a sub-logger attaches its key-value context to structured output and that
// structured info and errors are serialized alongside the message.
func TestSubLoggerContext(t *testing.T) {
	// Create a base logger with a structured writer
	logger := NewLogger(zerolog.InfoLevel)
	var buf bytes.Buffer
	logger.AddWriter(&buf, STRUCTURED, false)

	// Log through a sub-logger
	subLogger := logger.NewSubLogger("module", RELAY_SERVICE)
	subLogger.Info("relayed ", 3, " messages", StructuredLogInfo{"commandId": 7}, fmt.Errorf("boom"))

	output := buf.String()
	assert.Contains(t, output, `"module":"relay"`)
	assert.Contains(t, output, `"message":"relayed 3 messages"`)
	assert.Contains(t, output, `"commandId":7`)
	assert.Contains(t, output, `"error":"boom"`)

	// Messages below the log level are dropped
	buf.Reset()
	subLogger.Debug("hidden")
	assert.Empty(t, buf.String())
}

// TestLogBufferString ensures that log buffers drop color functions in their non-colorized representation.
func TestLogBufferString(t *testing.T) {
	buffer := NewLogBuffer()
	buffer.Append(colors.Bold, "trial ", 2, colors.Reset, " failed")
	assert.Equal(t, "trial 2 failed", buffer.String())
}
