package review

import (
	"fmt"
	"strings"
)

// Domain tags a changed file by the kind of review it needs.
type Domain string

// DomainUnclassified is assigned to files no rule matched. Such files are
// never targeted by a module and only appear as informational.
const DomainUnclassified Domain = "unclassified"

// Priority is a finding's severity tier, P0 (blocking) to P3 (suggestion).
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// Priorities lists every priority, most severe first.
var Priorities = []Priority{P0, P1, P2, P3}

// Rank returns a sort key (lower = more severe), or -1 for an unknown value.
func (p Priority) Rank() int {
	switch p {
	case P0:
		return 0
	case P1:
		return 1
	case P2:
		return 2
	case P3:
		return 3
	default:
		return -1
	}
}

// Valid reports whether p is one of P0..P3.
func (p Priority) Valid() bool { return p.Rank() >= 0 }

// Higher reports whether p is more severe than o.
func (p Priority) Higher(o Priority) bool { return p.Rank() < o.Rank() }

// ParsePriority accepts "P1", "p1" or "1".
func ParsePriority(s string) (Priority, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "P") {
		s = "P" + s
	}
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (want P0, P1, P2, or P3)", s)
	}
	return p, nil
}

// Category represents the type of finding.
type Category string

const (
	CategoryBug             Category = "bug"
	CategorySecurity        Category = "security"
	CategoryPerformance     Category = "performance"
	CategoryCorrectness     Category = "correctness"
	CategoryStyle           Category = "style"
	CategoryMaintainability Category = "maintainability"
	CategoryTesting         Category = "testing"
	CategoryDocs            Category = "docs"
	CategoryDependencies    Category = "dependencies"
)

// LineRange is an inclusive, 1-based range of line numbers.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether the range is 1-based and non-inverted.
func (r LineRange) Valid() bool {
	return r.Start >= 1 && r.End >= r.Start
}

// Overlaps reports whether r and o share at least one line.
func (r LineRange) Overlaps(o LineRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Union returns the smallest range covering both r and o.
func (r LineRange) Union(o LineRange) LineRange {
	out := r
	if o.Start < out.Start {
		out.Start = o.Start
	}
	if o.End > out.End {
		out.End = o.End
	}
	return out
}

// Finding is one reported issue.
type Finding struct {
	ID         string     `json:"id"`
	Provenance []string   `json:"provenance"`
	Priority   Priority   `json:"priority"`
	Category   Category   `json:"category"`
	File       string     `json:"file"`
	Lines      *LineRange `json:"lines,omitempty"`
	Summary    string     `json:"summary"`
	Fix        string     `json:"fix,omitempty"`
	Notes      []string   `json:"notes,omitempty"`
}

// StartLine returns the first line of the finding, or 0 for file-level findings.
func (f Finding) StartLine() int {
	if f.Lines == nil {
		return 0
	}
	return f.Lines.Start
}

func (f Finding) endLine() int {
	if f.Lines == nil {
		return 0
	}
	return f.Lines.End
}

// Validate checks the fields every finding must carry.
func (f Finding) Validate() error {
	if !f.Priority.Valid() {
		return fmt.Errorf("finding has invalid priority %q", f.Priority)
	}
	if f.Category == "" {
		return fmt.Errorf("finding has empty category")
	}
	if f.File == "" {
		return fmt.Errorf("finding has empty file")
	}
	if strings.TrimSpace(f.Summary) == "" {
		return fmt.Errorf("finding on %s has empty summary", f.File)
	}
	if f.Lines != nil && !f.Lines.Valid() {
		return fmt.Errorf("finding on %s has invalid line range %d-%d", f.File, f.Lines.Start, f.Lines.End)
	}
	return nil
}

// Status is the outcome of one module invocation.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusFailure        Status = "failure"
	StatusTimeout        Status = "timeout"
	StatusCancelled      Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusPartialSuccess, StatusFailure, StatusTimeout, StatusCancelled:
		return true
	}
	return false
}

// Succeeded reports whether the module produced a usable review.
func (s Status) Succeeded() bool {
	return s == StatusSuccess || s == StatusPartialSuccess
}

// ModuleResult is written once per module per run.
type ModuleResult struct {
	ModuleID    string    `json:"moduleId"`
	Status      Status    `json:"status"`
	Findings    []Finding `json:"findings"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
	DurationMs  int64     `json:"durationMs"`
}

// Validate checks that the result matches the module result schema.
func (r ModuleResult) Validate() error {
	if r.ModuleID == "" {
		return fmt.Errorf("module result has empty module id")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("module %s: unknown status %q", r.ModuleID, r.Status)
	}
	for i, f := range r.Findings {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("module %s: finding %d: %w", r.ModuleID, i, err)
		}
	}
	return nil
}

// Mode selects how thorough a run is.
type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeStandard Mode = "standard"
	ModeDeep     Mode = "deep"
)

// ParseMode validates a mode name. An empty string yields ModeStandard.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ModeStandard, nil
	case ModeQuick:
		return ModeQuick, nil
	case ModeStandard:
		return ModeStandard, nil
	case ModeDeep:
		return ModeDeep, nil
	}
	return "", fmt.Errorf("invalid mode %q (want quick, standard, or deep)", s)
}

// Verdict is the final gate outcome.
type Verdict string

const (
	VerdictReady      Verdict = "ready"
	VerdictNeedsFixes Verdict = "needs_fixes"
	VerdictBlocked    Verdict = "blocked"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	return v == VerdictReady || v == VerdictNeedsFixes || v == VerdictBlocked
}

// Override is an auditable exception to the default gate policy.
type Override struct {
	Rule     string  `json:"rule"`
	Verdict  Verdict `json:"verdict"`
	Reason   string  `json:"reason"`
	Approver string  `json:"approver"`
}

// Decision is the gate verdict plus the rule that produced it.
type Decision struct {
	Verdict  Verdict   `json:"verdict"`
	Rule     string    `json:"rule"`
	Trace    []string  `json:"trace"`
	Override *Override `json:"override,omitempty"`
}

// CoverageState says how well a domain was reviewed.
type CoverageState string

const (
	CoverageFull      CoverageState = "full"
	CoveragePartial   CoverageState = "partial"
	CoverageUncovered CoverageState = "uncovered"
)

// DomainCoverage is the coverage entry for one observed domain.
type DomainCoverage struct {
	Domain  Domain        `json:"domain"`
	State   CoverageState `json:"state"`
	Modules []string      `json:"modules"`
	Failed  []string      `json:"failed,omitempty"`
}

// PriorityCounts holds finding counts by priority.
type PriorityCounts struct {
	P0 int `json:"p0"`
	P1 int `json:"p1"`
	P2 int `json:"p2"`
	P3 int `json:"p3"`
}

// Add counts one finding of priority p.
func (c *PriorityCounts) Add(p Priority) {
	switch p {
	case P0:
		c.P0++
	case P1:
		c.P1++
	case P2:
		c.P2++
	case P3:
		c.P3++
	}
}

// Get returns the count for p.
func (c PriorityCounts) Get(p Priority) int {
	switch p {
	case P0:
		return c.P0
	case P1:
		return c.P1
	case P2:
		return c.P2
	case P3:
		return c.P3
	}
	return 0
}

// Total returns the number of counted findings.
func (c PriorityCounts) Total() int {
	return c.P0 + c.P1 + c.P2 + c.P3
}

// Exclusion records a module result that failed schema validation.
type Exclusion struct {
	ModuleID string `json:"moduleId"`
	Reason   string `json:"reason"`
}

// Scope tells the aggregator which domains were observed in the run and
// which modules were selected to cover each of them.
type Scope struct {
	Mode          Mode
	Domains       map[Domain][]string
	Informational []string
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
	Source string `json:"source,omitempty"`
}

// Report is the aggregated outcome of one run.
type Report struct {
	Tool          string           `json:"tool"`
	Version       string           `json:"version"`
	RunID         string           `json:"runId"`
	Mode          Mode             `json:"mode"`
	Repo          RepoInfo         `json:"repo"`
	Partial       bool             `json:"partial,omitempty"`
	Results       []ModuleResult   `json:"results"`
	Excluded      []Exclusion      `json:"excluded,omitempty"`
	Findings      []Finding        `json:"findings"`
	Counts        PriorityCounts   `json:"counts"`
	Coverage      []DomainCoverage `json:"coverage"`
	Informational []string         `json:"informational,omitempty"`
	Decision      Decision         `json:"decision"`
}

// CoverageMap returns domain -> state.
func (r Report) CoverageMap() map[Domain]CoverageState {
	m := make(map[Domain]CoverageState, len(r.Coverage))
	for _, c := range r.Coverage {
		m[c.Domain] = c.State
	}
	return m
}

// Problems lists the module results that did not succeed or were excluded,
// so a consumer can tell "not evaluated" from "no issues".
func (r Report) Problems() []ModuleResult {
	excluded := make(map[string]bool, len(r.Excluded))
	for _, e := range r.Excluded {
		excluded[e.ModuleID] = true
	}
	var out []ModuleResult
	for _, res := range r.Results {
		if !res.Status.Succeeded() || excluded[res.ModuleID] {
			out = append(out, res)
		}
	}
	return out
}
