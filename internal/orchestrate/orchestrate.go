package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/revgate/internal/apperr"
	"github.com/dshills/revgate/internal/dispatch"
	"github.com/dshills/revgate/internal/logging"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
)

// Options control plan execution.
type Options struct {
	// Concurrency bounds in-flight invocations. Zero or less uses the mode
	// default.
	Concurrency int
	// RunDeadline caps the whole run when positive. The remaining budget is
	// shared among invocations that have not started yet, and the run is
	// cancelled when it expires.
	RunDeadline time.Duration
	RunID       string
}

// DefaultConcurrency returns the worker count for a mode.
func DefaultConcurrency(mode review.Mode) int {
	switch mode {
	case review.ModeQuick:
		return 1
	case review.ModeDeep:
		return 8
	default:
		return 4
	}
}

// Execute runs every invocation in the plan exactly once and returns one
// result per invocation, in plan order. A module failure never affects its
// siblings.
//
// The returned error is non-nil only when the run itself was cut short, either
// by ctx or by the run deadline. The results are still complete in that case:
// invocations that finished keep their outcome and the rest are Cancelled.
func Execute(ctx context.Context, plan dispatch.Plan, opts Options) ([]review.ModuleResult, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency(plan.Mode)
	}

	runCtx := ctx
	var deadline time.Time
	if opts.RunDeadline > 0 {
		var cancel context.CancelFunc
		deadline = time.Now().Add(opts.RunDeadline)
		runCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	results := make([]review.ModuleResult, len(plan.Invocations))
	sched := &scheduler{pending: len(plan.Invocations), limit: limit, deadline: deadline}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, inv := range plan.Invocations {
		g.Go(func() error {
			budget := sched.start(inv.Timeout)
			if err := runCtx.Err(); err != nil {
				results[i] = cancelled(inv.Module.ID, 0, "not started: "+err.Error())
				return nil
			}
			results[i] = invoke(runCtx, inv, budget, opts.RunID)
			return nil
		})
	}
	_ = g.Wait()

	if err := runCtx.Err(); err != nil {
		return results, err
	}
	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return results, context.DeadlineExceeded
	}
	return results, nil
}

// scheduler hands out per-invocation budgets under a run deadline.
type scheduler struct {
	mu       sync.Mutex
	pending  int
	limit    int
	deadline time.Time
}

// start marks one invocation as started and returns its budget: the smaller
// of its own timeout and its share of the time left before the deadline.
// Invocations are shared out per wave of the worker pool.
func (s *scheduler) start(own time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	waves := (s.pending + s.limit - 1) / s.limit
	s.pending--
	if s.deadline.IsZero() || waves <= 0 {
		return own
	}
	share := time.Until(s.deadline) / time.Duration(waves)
	if share <= 0 {
		share = time.Millisecond
	}
	if own <= 0 || share < own {
		return share
	}
	return own
}

type reply struct {
	out registry.Outcome
	err error
}

func invoke(ctx context.Context, inv dispatch.Invocation, budget time.Duration, runID string) review.ModuleResult {
	id := inv.Module.ID
	ctx = logging.With(ctx, "module", id)
	logging.Debug(ctx, "module started", "files", len(inv.Files), "budget", budget)

	sink := &emitter{}
	req := registry.Request{
		RunID:   runID,
		Files:   inv.Files,
		Domains: inv.Domains,
		Config:  inv.Module.Config,
		Emit:    sink.emit,
	}

	call := func(ctx context.Context) (out registry.Outcome, err error) {
		defer func() {
			if p := recover(); p != nil {
				logging.Debug(ctx, "module panic", "stack", string(debug.Stack()))
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return inv.Module.Reviewer.Review(ctx, req)
	}

	start := time.Now()
	done := make(chan reply, 1)
	go func() {
		var r reply
		defer func() {
			if p := recover(); p != nil {
				r = reply{err: fmt.Errorf("panic: %v", p)}
			}
			done <- r
		}()
		if budget <= 0 {
			r.out, r.err = call(ctx)
			return
		}
		t := timeout.New[registry.Outcome](timeout.Config{DefaultTimeout: budget})
		r.out, r.err = t.Execute(ctx, budget, call)
	}()

	var expired <-chan time.Time
	if budget > 0 {
		timer := time.NewTimer(budget)
		defer timer.Stop()
		expired = timer.C
	}

	var r reply
	select {
	case r = <-done:
	case <-ctx.Done():
		select {
		case r = <-done:
		default:
			r = reply{err: ctx.Err()}
		}
	case <-expired:
		select {
		case r = <-done:
		default:
			r = reply{err: context.DeadlineExceeded}
		}
	}
	elapsed := time.Since(start)

	res := classify(ctx, inv.Module, r, budget, elapsed, sink)
	res.DurationMs = elapsed.Milliseconds()
	switch res.Status {
	case review.StatusSuccess, review.StatusPartialSuccess:
		logging.Info(ctx, "module finished", "status", res.Status, "findings", len(res.Findings), "duration_ms", res.DurationMs)
	default:
		logging.Warn(ctx, "module did not complete", "status", res.Status, "duration_ms", res.DurationMs, "diagnostics", res.Diagnostics)
	}
	return res
}

// classify turns a reviewer reply into a result. The run context is checked
// first so that an external abort always reads as Cancelled.
func classify(ctx context.Context, m registry.Module, r reply, budget, elapsed time.Duration, sink *emitter) review.ModuleResult {
	res := review.ModuleResult{ModuleID: m.ID, Findings: []review.Finding{}}

	if r.err != nil {
		switch {
		case ctx.Err() != nil:
			return cancelled(m.ID, elapsed, ctx.Err().Error())
		case errors.Is(r.err, context.DeadlineExceeded) || (budget > 0 && elapsed >= budget):
			res.Status = review.StatusTimeout
			res.Diagnostics = []string{apperr.Wrap(apperr.TypeModuleTimeout, fmt.Sprintf("exceeded %s budget", budget), r.err).
				WithContext("module", m.ID).Error()}
			if m.Salvage {
				var dropped int
				res.Findings, dropped = validFindings(sink.snapshot())
				if len(res.Findings) > 0 {
					res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("salvaged %d findings emitted before the timeout", len(res.Findings)))
				}
				if dropped > 0 {
					res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("dropped %d malformed salvaged findings", dropped))
				}
			}
			return res
		default:
			res.Status = review.StatusFailure
			res.Diagnostics = []string{apperr.Wrap(apperr.TypeModuleInvocation, "module failed", r.err).
				WithContext("module", m.ID).Error()}
			return res
		}
	}

	res.Findings = append(sink.snapshot(), r.out.Findings...)
	for i, f := range res.Findings {
		if err := f.Validate(); err != nil {
			return review.ModuleResult{
				ModuleID: m.ID,
				Status:   review.StatusFailure,
				Findings: []review.Finding{},
				Diagnostics: []string{apperr.Wrap(apperr.TypeModuleInvocation, fmt.Sprintf("malformed finding %d", i), err).
					WithContext("module", m.ID).Error()},
			}
		}
	}
	res.Status = review.StatusSuccess
	if r.out.Partial {
		res.Status = review.StatusPartialSuccess
	}
	res.Diagnostics = append([]string(nil), r.out.Diagnostics...)
	return res
}

// validFindings keeps the findings that pass validation. A timed-out module
// has no complete output to reject, so its malformed findings are dropped one
// by one.
func validFindings(findings []review.Finding) ([]review.Finding, int) {
	kept := findings[:0]
	for _, f := range findings {
		if f.Validate() == nil {
			kept = append(kept, f)
		}
	}
	return kept, len(findings) - len(kept)
}

func cancelled(id string, elapsed time.Duration, reason string) review.ModuleResult {
	return review.ModuleResult{
		ModuleID:    id,
		Status:      review.StatusCancelled,
		Findings:    []review.Finding{},
		Diagnostics: []string{reason},
		DurationMs:  elapsed.Milliseconds(),
	}
}

// emitter collects findings streamed by a module during its invocation.
type emitter struct {
	mu       sync.Mutex
	findings []review.Finding
}

func (e *emitter) emit(f review.Finding) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.findings = append(e.findings, f)
}

func (e *emitter) snapshot() []review.Finding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]review.Finding{}, e.findings...)
}
