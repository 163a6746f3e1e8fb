package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/review"
)

// Cost is a module's cost class. Run modes select modules by cost.
type Cost string

const (
	CostFast     Cost = "fast"
	CostStandard Cost = "standard"
	CostDeep     Cost = "deep"
)

// Valid reports whether c is a known cost class.
func (c Cost) Valid() bool {
	return c == CostFast || c == CostStandard || c == CostDeep
}

var modeCosts = map[review.Mode][]Cost{
	review.ModeQuick:    {CostFast},
	review.ModeStandard: {CostFast, CostStandard},
	review.ModeDeep:     {CostFast, CostStandard, CostDeep},
}

// CostsFor returns the cost classes a mode may run.
func CostsFor(mode review.Mode) []Cost {
	return append([]Cost(nil), modeCosts[mode]...)
}

// Allows reports whether mode runs modules of cost c.
func Allows(mode review.Mode, c Cost) bool {
	for _, allowed := range modeCosts[mode] {
		if allowed == c {
			return true
		}
	}
	return false
}

// Config is module-specific configuration, opaque to the engine.
type Config map[string]any

// Request is what a module receives for one invocation.
type Request struct {
	RunID   string
	Files   []changeset.FileChange
	Domains []review.Domain
	Config  Config
	// Emit records a finding as soon as it is known. Findings emitted before
	// a timeout are kept for modules that opt into salvage. Emit is safe for
	// concurrent use and never nil.
	Emit func(review.Finding)
}

// Outcome is a module's reply. Findings returned here are appended to the
// emitted ones.
type Outcome struct {
	Findings    []review.Finding
	Partial     bool
	Diagnostics []string
}

// Reviewer is the opaque review capability behind a module.
type Reviewer interface {
	Review(ctx context.Context, req Request) (Outcome, error)
}

// ReviewerFunc adapts a function to Reviewer.
type ReviewerFunc func(ctx context.Context, req Request) (Outcome, error)

// Review calls f.
func (f ReviewerFunc) Review(ctx context.Context, req Request) (Outcome, error) {
	return f(ctx, req)
}

// Module describes one registered reviewer.
type Module struct {
	ID          string
	Description string
	Domains     []review.Domain
	Cost        Cost
	// Timeout overrides the per-cost default budget when positive.
	Timeout time.Duration
	// Salvage keeps findings emitted before a timeout.
	Salvage  bool
	Builtin  bool
	Config   Config
	Reviewer Reviewer
}

// Validate checks that the module can be registered.
func (m Module) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("registry: module id is required")
	}
	if len(m.Domains) == 0 {
		return fmt.Errorf("registry: module %s covers no domains", m.ID)
	}
	for _, d := range m.Domains {
		if d == "" || d == review.DomainUnclassified {
			return fmt.Errorf("registry: module %s has invalid domain %q", m.ID, d)
		}
	}
	if !m.Cost.Valid() {
		return fmt.Errorf("registry: module %s has invalid cost %q", m.ID, m.Cost)
	}
	if m.Timeout < 0 {
		return fmt.Errorf("registry: module %s has negative timeout", m.ID)
	}
	if m.Reviewer == nil {
		return fmt.Errorf("registry: reviewer is required for %s", m.ID)
	}
	return nil
}

// Covers reports whether the module reviews domain d.
func (m Module) Covers(d review.Domain) bool {
	for _, own := range m.Domains {
		if own == d {
			return true
		}
	}
	return false
}

// Registry is the frozen table of modules for a process. It is safe for
// concurrent reads; there is no way to mutate it after New returns.
type Registry struct {
	modules []Module
	byID    map[string]int
}

// New validates and freezes modules. Duplicate ids are an error.
func New(modules ...Module) (*Registry, error) {
	r := &Registry{byID: make(map[string]int, len(modules))}
	for _, m := range modules {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.byID[m.ID]; exists {
			return nil, fmt.Errorf("registry: %s already registered", m.ID)
		}
		m.Domains = append([]review.Domain(nil), m.Domains...)
		r.byID[m.ID] = len(r.modules)
		r.modules = append(r.modules, m)
	}
	sort.Slice(r.modules, func(i, j int) bool { return r.modules[i].ID < r.modules[j].ID })
	for i, m := range r.modules {
		r.byID[m.ID] = i
	}
	return r, nil
}

// MustNew panics if New fails.
func MustNew(modules ...Module) *Registry {
	r, err := New(modules...)
	if err != nil {
		panic(err)
	}
	return r
}

// Modules returns every module sorted by id.
func (r *Registry) Modules() []Module {
	if r == nil {
		return nil
	}
	out := make([]Module, len(r.modules))
	for i, m := range r.modules {
		m.Domains = append([]review.Domain(nil), m.Domains...)
		out[i] = m
	}
	return out
}

// Lookup returns the module with the given id.
func (r *Registry) Lookup(id string) (Module, bool) {
	if r == nil {
		return Module{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return Module{}, false
	}
	m := r.modules[i]
	m.Domains = append([]review.Domain(nil), m.Domains...)
	return m, true
}

// IDs returns a sorted list of registered module identifiers.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.modules))
	for i, m := range r.modules {
		ids[i] = m.ID
	}
	return ids
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.modules)
}
