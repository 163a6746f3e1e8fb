package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/revgate/internal/apperr"
	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/classify"
	"github.com/dshills/revgate/internal/dispatch"
	"github.com/dshills/revgate/internal/gate"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func files(t *testing.T, fcs ...changeset.FileChange) changeset.Provider {
	t.Helper()
	cs, err := changeset.New(fcs...)
	require.NoError(t, err)
	return changeset.Static(cs)
}

func module(id string, cost registry.Cost, fn registry.ReviewerFunc, domains ...review.Domain) registry.Module {
	return registry.Module{ID: id, Cost: cost, Domains: domains, Reviewer: fn}
}

func returning(findings ...review.Finding) registry.ReviewerFunc {
	return func(context.Context, registry.Request) (registry.Outcome, error) {
		return registry.Outcome{Findings: findings}, nil
	}
}

func hang(ctx context.Context, _ registry.Request) (registry.Outcome, error) {
	<-ctx.Done()
	return registry.Outcome{}, ctx.Err()
}

func TestRun_Scenario_AuthServiceBlocked(t *testing.T) {
	rules := []classify.Rule{
		classify.Glob("*.go", "go"),
		classify.Contains("/auth/", "auth-policy"),
	}
	reg := registry.MustNew(
		module("go-review", registry.CostFast, returning(review.Finding{
			Priority: review.P1, Category: review.CategoryBug, File: "auth/service.go", Summary: "error ignored",
		}), "go"),
		module("auth-review", registry.CostFast, returning(review.Finding{
			Priority: review.P0, Category: review.CategorySecurity, File: "auth/service.go", Summary: "token compared with ==",
		}), "auth-policy"),
	)
	provider := files(t, changeset.FileChange{Path: "auth/service.go", Type: changeset.Modified})

	res, err := Run(context.Background(), provider, Params{Mode: review.ModeStandard, Rules: rules, Registry: reg, Version: "test"})
	require.NoError(t, err)
	assert.Equal(t, StateReported, res.State)
	require.NotNil(t, res.Report)

	rep := res.Report
	assert.Len(t, rep.Findings, 2)
	assert.Equal(t, review.P0, rep.Findings[0].Priority)
	assert.Equal(t, review.VerdictBlocked, rep.Decision.Verdict)
	assert.Equal(t, gate.RuleP0Blocks, rep.Decision.Rule)
	assert.Equal(t, Tool, rep.Tool)
	assert.Equal(t, res.RunID, rep.RunID)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_Scenario_UncoveredDocsStaysReady(t *testing.T) {
	reg := registry.MustNew(module("go-review", registry.CostFast, returning(), "go"))
	provider := files(t, changeset.FileChange{Path: "README.md"})

	res, err := Run(context.Background(), provider, Params{Mode: review.ModeQuick, Registry: reg})
	require.NoError(t, err)
	rep := res.Report
	require.NotNil(t, rep)
	assert.Empty(t, rep.Findings)
	assert.Equal(t, map[review.Domain]review.CoverageState{"docs": review.CoverageUncovered}, rep.CoverageMap())
	assert.Equal(t, review.VerdictReady, rep.Decision.Verdict)
	assert.Equal(t, []review.Domain{"docs"}, res.Plan.Uncovered)
}

func TestRun_Scenario_TimeoutDistinctFromNoFindings(t *testing.T) {
	slow := func(ctx context.Context, _ registry.Request) (registry.Outcome, error) {
		select {
		case <-time.After(100 * time.Millisecond):
			return registry.Outcome{}, nil
		case <-ctx.Done():
			return registry.Outcome{}, ctx.Err()
		}
	}
	reg := registry.MustNew(
		module("slow", registry.CostFast, slow, "go"),
		module("quiet", registry.CostFast, returning(), "typescript"),
	)
	provider := files(t, changeset.FileChange{Path: "main.go"}, changeset.FileChange{Path: "web/app.ts"})

	res, err := Run(context.Background(), provider, Params{
		Mode:        review.ModeStandard,
		Registry:    reg,
		Concurrency: 2,
		Dispatch:    dispatch.Options{Timeouts: map[string]time.Duration{"slow": 50 * time.Millisecond}},
	})
	require.NoError(t, err)
	rep := res.Report
	require.NotNil(t, rep)

	statuses := map[string]review.Status{}
	for _, r := range rep.Results {
		statuses[r.ModuleID] = r.Status
	}
	assert.Equal(t, review.StatusTimeout, statuses["slow"])
	assert.Equal(t, review.StatusSuccess, statuses["quiet"])
	assert.Equal(t, review.CoverageUncovered, rep.CoverageMap()["go"])
	assert.Equal(t, review.CoverageFull, rep.CoverageMap()["typescript"])
	require.Len(t, rep.Problems(), 1)
	assert.Equal(t, "slow", rep.Problems()[0].ModuleID)
}

func TestRun_Scenario_DuplicateFindingsMerge(t *testing.T) {
	reg := registry.MustNew(
		module("lint", registry.CostFast, returning(review.Finding{
			Priority: review.P2, Category: review.CategoryBug, File: "main.go",
			Lines: &review.LineRange{Start: 10, End: 15}, Summary: "unchecked error",
		}), "go"),
		module("review", registry.CostStandard, returning(review.Finding{
			Priority: review.P1, Category: review.CategoryBug, File: "main.go",
			Lines: &review.LineRange{Start: 14, End: 18}, Summary: "error from Close dropped",
		}), "go"),
	)
	provider := files(t, changeset.FileChange{Path: "main.go"})

	res, err := Run(context.Background(), provider, Params{Mode: review.ModeStandard, Registry: reg})
	require.NoError(t, err)
	rep := res.Report
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, review.P1, rep.Findings[0].Priority)
	assert.Equal(t, []string{"lint", "review"}, rep.Findings[0].Provenance)
	assert.Equal(t, review.VerdictNeedsFixes, rep.Decision.Verdict)
}

func TestRun_EmptyChangeSet(t *testing.T) {
	reg := registry.MustNew(module("go-review", registry.CostFast, returning(), "go"))
	res, err := Run(context.Background(), files(t), Params{Registry: reg})
	require.NoError(t, err)
	assert.Equal(t, StateReported, res.State)
	assert.Empty(t, res.Report.Findings)
	assert.Empty(t, res.Report.Coverage)
	assert.Empty(t, res.Plan.Invocations)
	assert.Equal(t, review.VerdictReady, res.Report.Decision.Verdict)
}

func TestRun_UnreadableChangeSetFails(t *testing.T) {
	provider := changeset.ProviderFunc(func(context.Context) (changeset.ChangeSet, error) {
		return changeset.ChangeSet{}, errors.New("git: not a repository")
	})
	called := false
	reg := registry.MustNew(module("go-review", registry.CostFast, func(context.Context, registry.Request) (registry.Outcome, error) {
		called = true
		return registry.Outcome{}, nil
	}, "go"))

	res, err := Run(context.Background(), provider, Params{Registry: reg})
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.TypeClassification))
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Nil(t, res.Report)
	assert.False(t, called)
}

func TestRun_ModuleFailureDoesNotFailRun(t *testing.T) {
	reg := registry.MustNew(
		module("crashes", registry.CostFast, func(context.Context, registry.Request) (registry.Outcome, error) {
			panic("index out of range")
		}, "go"),
		module("works", registry.CostFast, returning(review.Finding{
			Priority: review.P3, Category: review.CategoryStyle, File: "web/app.ts", Summary: "prefer const",
		}), "typescript"),
	)
	provider := files(t, changeset.FileChange{Path: "main.go"}, changeset.FileChange{Path: "web/app.ts"})

	res, err := Run(context.Background(), provider, Params{Registry: reg})
	require.NoError(t, err)
	assert.Equal(t, StateReported, res.State)
	require.Len(t, res.Report.Findings, 1)
	assert.Equal(t, "prefer const", res.Report.Findings[0].Summary)
	assert.Equal(t, review.CoverageUncovered, res.Report.CoverageMap()["go"])
}

func TestRun_Cancellation(t *testing.T) {
	reg := registry.MustNew(
		module("fast", registry.CostFast, returning(review.Finding{
			Priority: review.P2, Category: review.CategoryBug, File: "main.go", Summary: "found before abort",
		}), "go"),
		module("hangs", registry.CostFast, hang, "go"),
	)
	provider := files(t, changeset.FileChange{Path: "main.go"})

	for _, partial := range []bool{false, true} {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		res, err := Run(ctx, provider, Params{Registry: reg, Concurrency: 2, PartialReport: partial})
		cancel()
		require.NoError(t, err)
		assert.Equal(t, StateCancelled, res.State)
		if !partial {
			assert.Nil(t, res.Report)
			continue
		}
		require.NotNil(t, res.Report)
		assert.True(t, res.Report.Partial)
		require.Len(t, res.Report.Findings, 1)
		assert.Equal(t, "found before abort", res.Report.Findings[0].Summary)
		assert.Equal(t, review.CoveragePartial, res.Report.CoverageMap()["go"])
	}
}

func TestRun_RunDeadlineCancels(t *testing.T) {
	reg := registry.MustNew(module("hangs", registry.CostFast, hang, "go"))
	provider := files(t, changeset.FileChange{Path: "main.go"})

	res, err := Run(context.Background(), provider, Params{Registry: reg, RunDeadline: 40 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, res.State)
}

func TestRun_InvalidParams(t *testing.T) {
	provider := files(t)
	_, err := Run(context.Background(), provider, Params{Mode: "thorough"})
	assert.True(t, apperr.IsType(err, apperr.TypeConfiguration))

	_, err = Run(context.Background(), provider, Params{Rules: []classify.Rule{{Kind: "regex", Pattern: "x", Domain: "y"}}})
	assert.True(t, apperr.IsType(err, apperr.TypeConfiguration))

	_, err = Run(context.Background(), provider, Params{Policy: &gate.Policy{Overrides: []review.Override{{Rule: gate.RuleP0Blocks, Verdict: review.VerdictReady}}}})
	assert.True(t, apperr.IsType(err, apperr.TypeConfiguration))
}

func TestRun_RepeatedRunsAgree(t *testing.T) {
	reg := registry.MustNew(
		module("a", registry.CostFast, returning(
			review.Finding{Priority: review.P2, Category: review.CategoryBug, File: "b.go", Summary: "x"},
			review.Finding{Priority: review.P1, Category: review.CategoryBug, File: "a.go", Lines: &review.LineRange{Start: 3, End: 3}, Summary: "y"},
		), "go"),
		module("b", registry.CostFast, returning(
			review.Finding{Priority: review.P3, Category: review.CategoryBug, File: "a.go", Lines: &review.LineRange{Start: 1, End: 5}, Summary: "z"},
		), "go"),
	)
	provider := files(t, changeset.FileChange{Path: "a.go"}, changeset.FileChange{Path: "b.go"})

	first, err := Run(context.Background(), provider, Params{Registry: reg, Concurrency: 2})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		next, err := Run(context.Background(), provider, Params{Registry: reg, Concurrency: 2})
		require.NoError(t, err)
		assert.Equal(t, first.Report.Findings, next.Report.Findings)
		assert.Equal(t, first.Report.Coverage, next.Report.Coverage)
		assert.Equal(t, first.Report.Decision, next.Report.Decision)
		assert.NotEqual(t, first.RunID, next.RunID)
	}
}

func TestPlan_DryRun(t *testing.T) {
	called := false
	reg := registry.MustNew(module("go-review", registry.CostFast, func(context.Context, registry.Request) (registry.Outcome, error) {
		called = true
		return registry.Outcome{}, nil
	}, "go"))
	plan, classified, err := Plan(context.Background(), files(t, changeset.FileChange{Path: "main.go"}, changeset.FileChange{Path: "LICENSE"}), Params{Registry: reg})
	require.NoError(t, err)
	assert.Equal(t, []string{"go-review"}, plan.ModuleIDs())
	assert.Equal(t, []string{"LICENSE"}, classified.Unclassified())
	assert.False(t, called)
}

func TestRunMachine_RejectsIllegalTransitions(t *testing.T) {
	m, err := newRunMachine("id")
	require.NoError(t, err)
	assert.Equal(t, StateInit, m.Current())
	assert.Error(t, m.fire(eventReport))
	require.NoError(t, m.fire(eventClassify))
	require.NoError(t, m.fire(eventPlan))
	require.NoError(t, m.fire(eventExecute))
	require.NoError(t, m.fire(eventCancel))
	assert.Equal(t, StateCancelled, m.Current())
	assert.Error(t, m.fire(eventAggregate))
}
