package classify

import (
	"sort"
	"strings"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/review"
)

// Assignment is the domain set for one changed file.
type Assignment struct {
	Path    string          `json:"path"`
	Domains []review.Domain `json:"domains"`
}

// Result holds one assignment per file, in changeset order.
type Result struct {
	Files []Assignment `json:"files"`
}

// Classify tags every file in cs with one or more domains. Path rules run
// first; marker rules then promote generic domains when the file content
// carries the marker. Files no rule matches are tagged unclassified.
func Classify(cs changeset.ChangeSet, rules []Rule) Result {
	res := Result{Files: make([]Assignment, 0, cs.Len())}
	for _, f := range cs.Files() {
		res.Files = append(res.Files, Assignment{
			Path:    f.Path,
			Domains: classifyFile(f, rules),
		})
	}
	return res
}

func classifyFile(f changeset.FileChange, rules []Rule) []review.Domain {
	set := make(map[review.Domain]bool)
	paths := []string{f.Path}
	if f.OldPath != "" && f.OldPath != f.Path {
		paths = append(paths, f.OldPath)
	}

	for _, r := range rules {
		if r.Kind == KindMarker {
			continue
		}
		for _, p := range paths {
			if r.matchPath(p) {
				set[r.Domain] = true
				break
			}
		}
	}

	promoted := make(map[review.Domain]bool)
	for _, r := range rules {
		if r.Kind != KindMarker || !set[r.Refines] {
			continue
		}
		if strings.Contains(f.Content, r.Pattern) {
			promoted[r.Refines] = true
			set[r.Domain] = true
		}
	}
	for d := range promoted {
		delete(set, d)
	}

	if len(set) == 0 {
		return []review.Domain{review.DomainUnclassified}
	}
	out := make([]review.Domain, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ByDomain maps every classified domain to its file paths in changeset
// order. Unclassified files are left out; they are never targeted.
func (r Result) ByDomain() map[review.Domain][]string {
	m := make(map[review.Domain][]string)
	for _, a := range r.Files {
		for _, d := range a.Domains {
			if d == review.DomainUnclassified {
				continue
			}
			m[d] = append(m[d], a.Path)
		}
	}
	return m
}

// Domains returns the sorted set of classified domains.
func (r Result) Domains() []review.Domain {
	byDomain := r.ByDomain()
	out := make([]review.Domain, 0, len(byDomain))
	for d := range byDomain {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Unclassified returns the informational files no rule matched.
func (r Result) Unclassified() []string {
	var out []string
	for _, a := range r.Files {
		if len(a.Domains) == 1 && a.Domains[0] == review.DomainUnclassified {
			out = append(out, a.Path)
		}
	}
	return out
}

// Lookup returns the domains assigned to path.
func (r Result) Lookup(path string) ([]review.Domain, bool) {
	for _, a := range r.Files {
		if a.Path == path {
			return a.Domains, true
		}
	}
	return nil, false
}
