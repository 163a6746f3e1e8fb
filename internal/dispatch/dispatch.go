package dispatch

import (
	"sort"
	"time"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/classify"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
)

// Options adjust module selection for one run.
type Options struct {
	// Allow forces modules into the plan regardless of cost class. They still
	// need a matching domain.
	Allow []string
	// Deny removes modules from the plan. Deny wins over Allow.
	Deny []string
	// Timeouts overrides the budget for individual modules.
	Timeouts map[string]time.Duration
	// DefaultTimeouts is the budget per cost class when neither an override
	// nor the module sets one.
	DefaultTimeouts map[registry.Cost]time.Duration
}

// DefaultTimeouts are used when Options.DefaultTimeouts has no entry.
var DefaultTimeouts = map[registry.Cost]time.Duration{
	registry.CostFast:     30 * time.Second,
	registry.CostStandard: 2 * time.Minute,
	registry.CostDeep:     10 * time.Minute,
}

// Invocation is one scheduled module call.
type Invocation struct {
	Module  registry.Module
	Files   []changeset.FileChange
	Domains []review.Domain
	Timeout time.Duration
}

// Plan is the dispatcher's output.
type Plan struct {
	Mode        review.Mode
	Invocations []Invocation
	// Coverage maps every observed domain to the modules selected for it. An
	// empty list means the domain is uncovered.
	Coverage map[review.Domain][]string
	// Uncovered lists observed domains with no selected module, sorted.
	Uncovered []review.Domain
	// Skipped records modules that matched a domain but were filtered out by
	// mode or the deny list, keyed by module id.
	Skipped       map[string]string
	Informational []string
}

// ModuleIDs returns the ids of all planned invocations.
func (p Plan) ModuleIDs() []string {
	ids := make([]string, len(p.Invocations))
	for i, inv := range p.Invocations {
		ids[i] = inv.Module.ID
	}
	return ids
}

// Scope converts the plan into an aggregation scope.
func (p Plan) Scope() review.Scope {
	domains := make(map[review.Domain][]string, len(p.Coverage))
	for d, ids := range p.Coverage {
		domains[d] = append([]string(nil), ids...)
	}
	return review.Scope{
		Mode:          p.Mode,
		Domains:       domains,
		Informational: append([]string(nil), p.Informational...),
	}
}

// Build selects one invocation per matching module. It is a pure function of
// its inputs. Invocations are ordered by module id; each one carries the
// union of its matching files in changeset order.
func Build(cs changeset.ChangeSet, res classify.Result, reg *registry.Registry, mode review.Mode, opts Options) Plan {
	byDomain := res.ByDomain()
	allow := toSet(opts.Allow)
	deny := toSet(opts.Deny)

	plan := Plan{
		Mode:          mode,
		Coverage:      make(map[review.Domain][]string, len(byDomain)),
		Skipped:       make(map[string]string),
		Informational: res.Unclassified(),
	}
	for d := range byDomain {
		plan.Coverage[d] = []string{}
	}

	for _, m := range reg.Modules() {
		var matched []review.Domain
		files := make(map[string]bool)
		for _, d := range m.Domains {
			paths := byDomain[d]
			if len(paths) == 0 {
				continue
			}
			matched = append(matched, d)
			for _, p := range paths {
				files[p] = true
			}
		}
		if len(matched) == 0 {
			continue
		}

		switch {
		case deny[m.ID]:
			plan.Skipped[m.ID] = "denied"
			continue
		case !allow[m.ID] && !registry.Allows(mode, m.Cost):
			plan.Skipped[m.ID] = "cost " + string(m.Cost) + " not run in " + string(mode) + " mode"
			continue
		}

		sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
		inv := Invocation{
			Module:  m,
			Domains: matched,
			Timeout: budget(m, opts),
		}
		for _, f := range cs.Files() {
			if files[f.Path] {
				inv.Files = append(inv.Files, f)
			}
		}
		plan.Invocations = append(plan.Invocations, inv)
		for _, d := range matched {
			plan.Coverage[d] = append(plan.Coverage[d], m.ID)
		}
	}

	for d, ids := range plan.Coverage {
		if len(ids) == 0 {
			plan.Uncovered = append(plan.Uncovered, d)
		}
	}
	sort.Slice(plan.Uncovered, func(i, j int) bool { return plan.Uncovered[i] < plan.Uncovered[j] })
	return plan
}

func budget(m registry.Module, opts Options) time.Duration {
	if d, ok := opts.Timeouts[m.ID]; ok && d > 0 {
		return d
	}
	if m.Timeout > 0 {
		return m.Timeout
	}
	if d, ok := opts.DefaultTimeouts[m.Cost]; ok && d > 0 {
		return d
	}
	return DefaultTimeouts[m.Cost]
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
