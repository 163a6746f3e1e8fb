package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"standard mode",
		"Repository: /src/app",
		"BLOCKED",
		"rule p0-blocks",
		"Findings: 2 total",
		"P0 BLOCKING (1)",
		"config/db.go:12",
		"Possible AWS access key id committed",
		"Fix: Move the key to a secret store.",
		"Reported by: antipatterns, lint",
		"Also: [lint] P3: leftover marker",
		"payments-review",
		"uncovered",
		"timeout",
		"Unclassified files:",
		"LICENSE",
		"run run-123",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "No issues found")
}

func TestTextWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, emptyReport()))
	out := buf.String()
	assert.Contains(t, out, "quick mode")
	assert.Contains(t, out, "READY")
	assert.Contains(t, out, "Findings: 0 total")
	assert.Contains(t, out, "No issues found.")
	assert.NotContains(t, out, "Coverage")
	assert.NotContains(t, out, "Not fully evaluated")
}

func TestTextWriter_Partial(t *testing.T) {
	rep := emptyReport()
	rep.Partial = true
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, rep))
	assert.Contains(t, buf.String(), "Partial report")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTextWriter_WriteError(t *testing.T) {
	err := (&TextWriter{}).Write(failingWriter{}, sampleReport())
	assert.EqualError(t, err, "disk full")
}
