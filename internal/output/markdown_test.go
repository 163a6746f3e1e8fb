package output

import (
	"bytes"
	"testing"

	"github.com/dshills/revgate/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "## revgate review")
	assert.Contains(t, out, ":no_entry: **BLOCKED** (rule `p0-blocks`, standard mode)")
	assert.Contains(t, out, "| P0 blocking | 1 |")
	assert.Contains(t, out, "| **Total** | **2** |")
	assert.Contains(t, out, "<details open>\n<summary>:red_circle: P0 blocking (1)</summary>")
	assert.Contains(t, out, "<details>\n<summary>:white_circle: P3 suggestion (1)</summary>")
	assert.Contains(t, out, "**`config/db.go:12`** | security | secrets")
	assert.Contains(t, out, "> Move the key to a secret store.")
	assert.Contains(t, out, "| payments | :red_circle: uncovered | payments-review |")
	assert.Contains(t, out, "- `payments-review` timeout: MODULE_TIMEOUT: exceeded 2m0s budget")
	assert.Contains(t, out, "*Unclassified files: LICENSE*")
	assert.Contains(t, out, "Decision trace")
	assert.NotContains(t, out, "No issues found")
}

func TestMarkdownWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, emptyReport()))
	out := buf.String()
	assert.Contains(t, out, ":white_check_mark: **READY**")
	assert.Contains(t, out, "No issues found. :white_check_mark:")
	assert.NotContains(t, out, "#### Coverage")
}

func TestMarkdownWriter_OverrideAndCodeFix(t *testing.T) {
	rep := emptyReport()
	rep.Decision.Override = &review.Override{Rule: "p1-needs-fixes", Verdict: review.VerdictReady, Reason: "hotfix", Approver: "oncall"}
	rep.Findings = []review.Finding{{
		Provenance: []string{"lint"}, Priority: review.P2, Category: review.CategoryBug,
		File: "main.go", Summary: "unchecked error", Fix: "if err != nil {\n\treturn err\n}",
	}}
	rep.Counts = review.PriorityCounts{P2: 1}

	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, rep))
	out := buf.String()
	assert.Contains(t, out, "Override applied by **oncall**: hotfix")
	assert.Contains(t, out, "```go\nif err != nil {")
}

func TestInferLang(t *testing.T) {
	assert.Equal(t, "go", inferLang("cmd/main.go"))
	assert.Equal(t, "tsx", inferLang("ui/App.tsx"))
	assert.Equal(t, "json", inferLang("package.json"))
	assert.Equal(t, "", inferLang("Makefile"))
}
