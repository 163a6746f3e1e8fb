package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/revgate/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		counts   review.PriorityCounts
		coverage map[review.Domain]review.CoverageState
		mode     review.Mode
		verdict  review.Verdict
		rule     string
	}{
		{"empty run", review.PriorityCounts{}, nil, review.ModeStandard, review.VerdictReady, RuleClean},
		{"p0 in quick", review.PriorityCounts{P0: 1}, nil, review.ModeQuick, review.VerdictBlocked, RuleP0Blocks},
		{"p0 in deep", review.PriorityCounts{P0: 2, P1: 3}, nil, review.ModeDeep, review.VerdictBlocked, RuleP0Blocks},
		{"p1 in standard", review.PriorityCounts{P1: 1}, nil, review.ModeStandard, review.VerdictNeedsFixes, RuleP1NeedsFixes},
		{"p1 in quick", review.PriorityCounts{P1: 1}, nil, review.ModeQuick, review.VerdictReady, RuleClean},
		{"p2 and p3 never block", review.PriorityCounts{P2: 9, P3: 9}, nil, review.ModeDeep, review.VerdictReady, RuleClean},
		{
			"security domain uncovered",
			review.PriorityCounts{},
			map[review.Domain]review.CoverageState{"auth-policy": review.CoverageUncovered},
			review.ModeQuick, review.VerdictNeedsFixes, RuleSecurityCoverageGap,
		},
		{
			"security domain partial",
			review.PriorityCounts{P3: 1},
			map[review.Domain]review.CoverageState{"auth-policy": review.CoveragePartial, "go": review.CoverageFull},
			review.ModeStandard, review.VerdictNeedsFixes, RuleSecurityCoverageGap,
		},
		{
			"non-security domain uncovered",
			review.PriorityCounts{},
			map[review.Domain]review.CoverageState{"docs": review.CoverageUncovered},
			review.ModeQuick, review.VerdictReady, RuleClean,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.counts, tt.coverage, tt.mode, nil)
			assert.Equal(t, tt.verdict, d.Verdict)
			assert.Equal(t, tt.rule, d.Rule)
			require.NotEmpty(t, d.Trace)
			assert.Contains(t, d.Trace[len(d.Trace)-1], tt.rule)
			assert.Nil(t, d.Override)
		})
	}
}

func TestEvaluate_TraceListsRulesConsidered(t *testing.T) {
	d := Evaluate(review.PriorityCounts{P2: 1}, nil, review.ModeStandard, nil)
	require.Len(t, d.Trace, 4)
	for i, rule := range Rules {
		assert.Contains(t, d.Trace[i], rule)
	}
}

func TestEvaluate_CustomSecurityDomains(t *testing.T) {
	cov := map[review.Domain]review.CoverageState{"auth-policy": review.CoverageUncovered, "db-migration": review.CoveragePartial}
	d := Evaluate(review.PriorityCounts{}, cov, review.ModeStandard, &Policy{SecurityDomains: []review.Domain{"db-migration"}})
	assert.Equal(t, review.VerdictNeedsFixes, d.Verdict)
	assert.Contains(t, d.Trace[len(d.Trace)-1], "db-migration=partial")
	assert.NotContains(t, d.Trace[len(d.Trace)-1], "auth-policy")
}

func TestEvaluate_Override(t *testing.T) {
	policy := &Policy{Overrides: []review.Override{{
		Rule: RuleP1NeedsFixes, Verdict: review.VerdictReady, Reason: "hotfix, follow-up filed", Approver: "release-lead",
	}}}

	d := Evaluate(review.PriorityCounts{P1: 2}, nil, review.ModeStandard, policy)
	assert.Equal(t, review.VerdictReady, d.Verdict)
	assert.Equal(t, RuleP1NeedsFixes, d.Rule)
	require.NotNil(t, d.Override)
	assert.Equal(t, "release-lead", d.Override.Approver)
	assert.Contains(t, d.Trace[len(d.Trace)-1], "approved by release-lead")

	// The override only applies to the rule it names.
	d = Evaluate(review.PriorityCounts{P0: 1, P1: 2}, nil, review.ModeStandard, policy)
	assert.Equal(t, review.VerdictBlocked, d.Verdict)
	assert.Nil(t, d.Override)
}

func TestEvaluate_IgnoresUnauditedOverride(t *testing.T) {
	policy := &Policy{Overrides: []review.Override{{Rule: RuleP0Blocks, Verdict: review.VerdictReady}}}
	d := Evaluate(review.PriorityCounts{P0: 1}, nil, review.ModeStandard, policy)
	assert.Equal(t, review.VerdictBlocked, d.Verdict)
	assert.Nil(t, d.Override)
	assert.Contains(t, d.Trace[len(d.Trace)-1], "override ignored")
}

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Nil(t, p)

	dir := t.TempDir()
	good := filepath.Join(dir, "policy.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
  "securityDomains": ["auth-policy", "secrets"],
  "overrides": [{"rule": "security-coverage-gap", "verdict": "ready", "reason": "scanner down", "approver": "sec-oncall"}]
}`), 0o600))
	p, err = LoadPolicy(good)
	require.NoError(t, err)
	assert.Equal(t, []review.Domain{"auth-policy", "secrets"}, p.SecurityDomains)
	require.Len(t, p.Overrides, 1)

	tests := map[string]string{
		"no-reason.json":   `{"overrides":[{"rule":"p0-blocks","verdict":"ready","approver":"x"}]}`,
		"no-approver.json": `{"overrides":[{"rule":"p0-blocks","verdict":"ready","reason":"x"}]}`,
		"bad-rule.json":    `{"overrides":[{"rule":"nope","verdict":"ready","reason":"x","approver":"y"}]}`,
		"bad-verdict.json": `{"overrides":[{"rule":"clean","verdict":"maybe","reason":"x","approver":"y"}]}`,
		"twice.json":       `{"overrides":[{"rule":"clean","verdict":"blocked","reason":"x","approver":"y"},{"rule":"clean","verdict":"ready","reason":"x","approver":"y"}]}`,
		"broken.json":      `{`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadPolicy(path)
			assert.Error(t, err)
		})
	}

	_, err = LoadPolicy(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
