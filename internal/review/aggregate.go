package review

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Aggregate merges module results into a report. It is a pure function of its
// inputs: the order of results does not affect the output.
//
// Results that fail validation are listed in Report.Excluded, contribute no
// findings, and count as failed when computing coverage. A second result for
// a module id that was already seen is excluded the same way.
func Aggregate(results []ModuleResult, scope Scope) Report {
	ordered := make([]ModuleResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ModuleID < ordered[j].ModuleID })

	rep := Report{
		Mode:          scope.Mode,
		Results:       make([]ModuleResult, 0, len(ordered)),
		Findings:      []Finding{},
		Informational: append([]string(nil), scope.Informational...),
	}

	valid := make(map[string]bool, len(ordered))
	seen := make(map[string]bool, len(ordered))
	var collected []Finding
	for _, r := range ordered {
		r = cloneResult(r)
		rep.Results = append(rep.Results, r)

		if seen[r.ModuleID] {
			rep.Excluded = append(rep.Excluded, Exclusion{ModuleID: r.ModuleID, Reason: fmt.Sprintf("module %s: duplicate result", r.ModuleID)})
			continue
		}
		seen[r.ModuleID] = true
		if err := r.Validate(); err != nil {
			rep.Excluded = append(rep.Excluded, Exclusion{ModuleID: r.ModuleID, Reason: err.Error()})
			continue
		}
		valid[r.ModuleID] = true

		for _, f := range r.Findings {
			f.Provenance = []string{r.ModuleID}
			f.Notes = append([]string(nil), f.Notes...)
			collected = append(collected, f)
		}
	}

	rep.Findings = Deduplicate(collected)
	SortFindings(rep.Findings)
	ids := make(map[string]int, len(rep.Findings))
	for i := range rep.Findings {
		rep.Findings[i].ID = findingID(rep.Findings[i], ids)
		rep.Counts.Add(rep.Findings[i].Priority)
	}

	rep.Coverage = computeCoverage(scope.Domains, rep.Results, valid)
	return rep
}

// Deduplicate merges findings that describe the same logical issue: same file
// and category, overlapping line ranges, and raised by different modules. The
// more severe finding wins; the other's text is kept as a note.
//
// Merging repeats until no two findings describe the same issue, so a finding
// whose range bridges two others pulls all three together. Candidates are
// visited in a canonical order (file, category, lines, priority, module) and
// the result depends only on the set of findings, not on the order they
// arrive in.
func Deduplicate(findings []Finding) []Finding {
	out := append(make([]Finding, 0, len(findings)), findings...)
	sort.SliceStable(out, func(i, j int) bool { return canonicalLess(out[i], out[j]) })

	for changed := true; changed; {
		changed = false
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); j++ {
				if !sameIssue(out[i], out[j]) {
					continue
				}
				out[i] = merge(out[i], out[j])
				out = append(out[:j], out[j+1:]...)
				changed = true
				j = i
			}
		}
	}
	return out
}

func canonicalLess(a, b Finding) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.StartLine() != b.StartLine() {
		return a.StartLine() < b.StartLine()
	}
	if a.endLine() != b.endLine() {
		return a.endLine() < b.endLine()
	}
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	return strings.Join(a.Provenance, ",") < strings.Join(b.Provenance, ",")
}

func sameIssue(a, b Finding) bool {
	if a.File != b.File || a.Category != b.Category {
		return false
	}
	switch {
	case a.Lines == nil && b.Lines == nil:
	case a.Lines == nil || b.Lines == nil:
		return false
	case !a.Lines.Overlaps(*b.Lines):
		return false
	}
	for _, p := range a.Provenance {
		for _, q := range b.Provenance {
			if p == q {
				return false
			}
		}
	}
	return true
}

// merge folds b into a. Ties keep a, the finding that sorts first.
func merge(a, b Finding) Finding {
	winner, loser := a, b
	if b.Priority.Higher(a.Priority) {
		winner, loser = b, a
	}

	out := winner
	out.Provenance = unionStrings(a.Provenance, b.Provenance)
	out.Notes = append(append([]string(nil), winner.Notes...), loser.Notes...)
	out.Notes = append(out.Notes, note(loser))
	if a.Lines != nil && b.Lines != nil {
		r := a.Lines.Union(*b.Lines)
		out.Lines = &r
	}
	return out
}

func note(f Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", strings.Join(f.Provenance, ","), f.Priority, f.Summary)
	if f.Fix != "" {
		fmt.Fprintf(&b, " (fix: %s)", f.Fix)
	}
	return b.String()
}

func unionStrings(a, b []string) []string {
	set := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if !set[s] {
			set[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// SortFindings orders findings by priority (P0 first), then path, then start
// line. The sort is stable, so equal keys keep their insertion order.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := findings[i].Priority.Rank(), findings[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		return findings[i].StartLine() < findings[j].StartLine()
	})
}

// findingID hashes every field that tells two findings apart. Identical
// findings still get distinct ids through a numeric suffix.
func findingID(f Finding, seen map[string]int) string {
	data := fmt.Sprintf("%s\x00%s\x00%d-%d\x00%s\x00%s\x00%s\x00%s",
		f.File, f.Category, f.StartLine(), f.endLine(), f.Priority, f.Summary, f.Fix, strings.Join(f.Provenance, ","))
	h := sha256.Sum256([]byte(data))
	id := fmt.Sprintf("%x", h[:8])
	seen[id]++
	if n := seen[id]; n > 1 {
		id = fmt.Sprintf("%s-%d", id, n)
	}
	return id
}

func computeCoverage(domains map[Domain][]string, results []ModuleResult, valid map[string]bool) []DomainCoverage {
	status := make(map[string]Status, len(results))
	for _, r := range results {
		if _, ok := status[r.ModuleID]; !ok {
			status[r.ModuleID] = r.Status
		}
	}

	names := make([]Domain, 0, len(domains))
	for d := range domains {
		if d == DomainUnclassified {
			continue
		}
		names = append(names, d)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	out := make([]DomainCoverage, 0, len(names))
	for _, d := range names {
		modules := append([]string(nil), domains[d]...)
		sort.Strings(modules)
		dc := DomainCoverage{Domain: d, Modules: modules}
		if dc.Modules == nil {
			dc.Modules = []string{}
		}

		ok := 0
		for _, id := range modules {
			st, ran := status[id]
			if ran && valid[id] && st.Succeeded() {
				ok++
				continue
			}
			dc.Failed = append(dc.Failed, id)
		}
		switch {
		case ok == 0:
			dc.State = CoverageUncovered
		case len(dc.Failed) > 0:
			dc.State = CoveragePartial
		default:
			dc.State = CoverageFull
		}
		out = append(out, dc)
	}
	return out
}

func cloneResult(r ModuleResult) ModuleResult {
	r.Findings = append(make([]Finding, 0, len(r.Findings)), r.Findings...)
	for i := range r.Findings {
		if r.Findings[i].Lines != nil {
			lr := *r.Findings[i].Lines
			r.Findings[i].Lines = &lr
		}
	}
	r.Diagnostics = append([]string(nil), r.Diagnostics...)
	return r
}
