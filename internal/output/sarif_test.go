package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/dshills/revgate/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SARIFWriter{}).Write(&buf, sampleReport()))

	var log sarifLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	assert.Equal(t, "2.1.0", log.Version)
	require.Len(t, log.Runs, 1)
	run := log.Runs[0]

	assert.Equal(t, "revgate", run.Tool.Driver.Name)
	assert.Len(t, run.Tool.Driver.Rules, 2)
	assert.Equal(t, "blocked", run.Properties.Verdict)
	assert.Equal(t, "p0-blocks", run.Properties.GateRule)

	require.Len(t, run.Results, 2)
	first := run.Results[0]
	assert.Equal(t, "error", first.Level)
	assert.Equal(t, "config/db.go", first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	require.NotNil(t, first.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, 12, first.Locations[0].PhysicalLocation.Region.StartLine)
	require.Len(t, first.Fixes, 1)
	assert.Equal(t, "P0", first.Properties.Priority)

	second := run.Results[1]
	assert.Equal(t, "note", second.Level)
	assert.Nil(t, second.Locations[0].PhysicalLocation.Region)
	assert.Equal(t, []string{"antipatterns", "lint"}, second.Properties.Provenance)

	require.Len(t, run.Invocations, 1)
	inv := run.Invocations[0]
	assert.True(t, inv.ExecutionSuccessful)
	require.Len(t, inv.Notifications, 2)
	assert.Equal(t, "payments-review", inv.Notifications[0].Properties["moduleId"])
	assert.Equal(t, "payments", inv.Notifications[1].Properties["domain"])
}

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&SARIFWriter{}).Write(&buf, emptyReport()))
	assert.Contains(t, buf.String(), `"results": []`)
}

func TestPriorityToLevel(t *testing.T) {
	assert.Equal(t, "error", priorityToLevel(review.P0))
	assert.Equal(t, "error", priorityToLevel(review.P1))
	assert.Equal(t, "warning", priorityToLevel(review.P2))
	assert.Equal(t, "note", priorityToLevel(review.P3))
}

func TestGenerateRuleID_Stable(t *testing.T) {
	f := review.Finding{Category: review.CategoryBug, Summary: "nil deref"}
	assert.Equal(t, generateRuleID(f), generateRuleID(f))
	assert.Regexp(t, `^revgate/bug/[0-9a-f]{8}$`, generateRuleID(f))
	assert.NotEqual(t, generateRuleID(f), generateRuleID(review.Finding{Category: review.CategoryBug, Summary: "other"}))
}
