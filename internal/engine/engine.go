package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/revgate/internal/apperr"
	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/classify"
	"github.com/dshills/revgate/internal/dispatch"
	"github.com/dshills/revgate/internal/gate"
	"github.com/dshills/revgate/internal/logging"
	"github.com/dshills/revgate/internal/orchestrate"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
)

// Tool is the report's tool name.
const Tool = "revgate"

// Params configure one run.
type Params struct {
	Mode     review.Mode
	Rules    []classify.Rule
	Registry *registry.Registry
	Dispatch dispatch.Options
	// Concurrency bounds in-flight modules; zero uses the mode default.
	Concurrency int
	// RunDeadline cancels the whole run when it expires.
	RunDeadline time.Duration
	// PartialReport asks for a report built from the completed modules when
	// the run is cancelled.
	PartialReport bool
	Policy        *gate.Policy
	Repo          review.RepoInfo
	Version       string
}

// Result is the outcome of one run. Report is nil when the run failed, or
// when it was cancelled and no partial report was requested.
type Result struct {
	RunID    string
	State    string
	Plan     dispatch.Plan
	Report   *review.Report
	Duration time.Duration
}

// Run drives one review from changeset to gate decision.
//
// Only a changeset that cannot be read or built is a run-level failure: the
// result is in StateFailed, carries no report, and the error is a
// classification error. Module faults never fail the run.
func Run(ctx context.Context, provider changeset.Provider, p Params) (*Result, error) {
	start := time.Now()
	p, err := normalize(p)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.New().String()}
	ctx = logging.With(ctx, "run_id", res.RunID)

	m, err := newRunMachine(res.RunID)
	if err != nil {
		return nil, apperr.Wrap(apperr.TypeInternal, "starting run", err)
	}
	step := func(event string) error {
		from := m.Current()
		if err := m.fire(event); err != nil {
			return apperr.Wrap(apperr.TypeInternal, "run transition", err)
		}
		logging.Debug(ctx, "run state", "from", from, "to", m.Current())
		return nil
	}
	finish := func() *Result {
		res.State = m.Current()
		res.Duration = time.Since(start)
		return res
	}

	cs, err := provider.ChangeSet(ctx)
	if err != nil {
		if ferr := step(eventFail); ferr != nil {
			return nil, ferr
		}
		if !apperr.IsType(err, apperr.TypeClassification) {
			err = apperr.Wrap(apperr.TypeClassification, "reading changeset", err)
		}
		logging.Error(ctx, "run failed", err)
		return finish(), err
	}

	classified := classify.Classify(cs, p.Rules)
	if err := step(eventClassify); err != nil {
		return nil, err
	}

	res.Plan = dispatch.Build(cs, classified, p.Registry, p.Mode, p.Dispatch)
	if err := step(eventPlan); err != nil {
		return nil, err
	}
	logging.Info(ctx, "run planned",
		"files", cs.Len(),
		"modules", len(res.Plan.Invocations),
		"uncovered", len(res.Plan.Uncovered),
		"mode", p.Mode)

	if err := step(eventExecute); err != nil {
		return nil, err
	}
	results, runErr := orchestrate.Execute(ctx, res.Plan, orchestrate.Options{
		Concurrency: p.Concurrency,
		RunDeadline: p.RunDeadline,
		RunID:       res.RunID,
	})

	if runErr != nil {
		if err := step(eventCancel); err != nil {
			return nil, err
		}
		logging.Warn(ctx, "run cancelled", "reason", runErr.Error())
		if p.PartialReport {
			rep := buildReport(res.RunID, results, res.Plan, p)
			rep.Partial = true
			res.Report = &rep
		}
		return finish(), nil
	}

	if err := step(eventAggregate); err != nil {
		return nil, err
	}
	rep := buildReport(res.RunID, results, res.Plan, p)
	res.Report = &rep
	if err := step(eventReport); err != nil {
		return nil, err
	}
	logging.Info(ctx, "run reported",
		"verdict", rep.Decision.Verdict,
		"rule", rep.Decision.Rule,
		"findings", len(rep.Findings))
	return finish(), nil
}

// Plan classifies and dispatches without invoking any module.
func Plan(ctx context.Context, provider changeset.Provider, p Params) (dispatch.Plan, classify.Result, error) {
	p, err := normalize(p)
	if err != nil {
		return dispatch.Plan{}, classify.Result{}, err
	}
	cs, err := provider.ChangeSet(ctx)
	if err != nil {
		if !apperr.IsType(err, apperr.TypeClassification) {
			err = apperr.Wrap(apperr.TypeClassification, "reading changeset", err)
		}
		return dispatch.Plan{}, classify.Result{}, err
	}
	classified := classify.Classify(cs, p.Rules)
	return dispatch.Build(cs, classified, p.Registry, p.Mode, p.Dispatch), classified, nil
}

func buildReport(runID string, results []review.ModuleResult, plan dispatch.Plan, p Params) review.Report {
	rep := review.Aggregate(results, plan.Scope())
	rep.Tool = Tool
	rep.Version = p.Version
	rep.RunID = runID
	rep.Repo = p.Repo
	rep.Decision = gate.Evaluate(rep.Counts, rep.CoverageMap(), p.Mode, p.Policy)
	return rep
}

func normalize(p Params) (Params, error) {
	mode, err := review.ParseMode(string(p.Mode))
	if err != nil {
		return p, apperr.Wrap(apperr.TypeConfiguration, "run parameters", err)
	}
	p.Mode = mode
	if p.Rules == nil {
		p.Rules = classify.DefaultRules()
	}
	if err := classify.ValidateRules(p.Rules); err != nil {
		return p, apperr.Wrap(apperr.TypeConfiguration, "classification rules", err)
	}
	if p.Registry == nil {
		p.Registry = registry.MustNew()
	}
	if err := p.Policy.Validate(); err != nil {
		return p, apperr.Wrap(apperr.TypeConfiguration, "gate policy", err)
	}
	if p.Concurrency < 0 || p.RunDeadline < 0 {
		return p, apperr.New(apperr.TypeConfiguration, fmt.Sprintf("invalid concurrency %d or run deadline %s", p.Concurrency, p.RunDeadline))
	}
	return p, nil
}
