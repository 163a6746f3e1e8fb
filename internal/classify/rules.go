package classify

import (
	"fmt"
	"strings"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/review"
)

// Kind selects how a rule's pattern is matched.
type Kind string

const (
	// KindGlob matches the path against a glob. Patterns without a slash match
	// the base name; "dir/**" matches everything below dir; "**/x" matches x
	// at any depth.
	KindGlob Kind = "glob"
	// KindContains matches when the slash-prefixed path contains the pattern,
	// so "/auth/" matches both "auth/x.go" and "svc/auth/x.go".
	KindContains Kind = "contains"
	// KindMarker matches a content signature. It only applies to files already
	// tagged with Refines, and replaces that domain with Domain.
	KindMarker Kind = "marker"
)

// Rule is a declarative (pattern, domain) pair.
type Rule struct {
	Kind    Kind          `json:"kind" yaml:"kind"`
	Pattern string        `json:"pattern" yaml:"pattern"`
	Domain  review.Domain `json:"domain" yaml:"domain"`
	Refines review.Domain `json:"refines,omitempty" yaml:"refines,omitempty"`
}

// Glob is shorthand for a glob rule.
func Glob(pattern string, domain review.Domain) Rule {
	return Rule{Kind: KindGlob, Pattern: pattern, Domain: domain}
}

// Contains is shorthand for a path-substring rule.
func Contains(substr string, domain review.Domain) Rule {
	return Rule{Kind: KindContains, Pattern: substr, Domain: domain}
}

// Marker is shorthand for a content-signature rule promoting refines to domain.
func Marker(marker string, refines, domain review.Domain) Rule {
	return Rule{Kind: KindMarker, Pattern: marker, Domain: domain, Refines: refines}
}

// Validate checks that the rule is well formed.
func (r Rule) Validate() error {
	if r.Pattern == "" {
		return fmt.Errorf("classify: rule for domain %q has empty pattern", r.Domain)
	}
	if r.Domain == "" {
		return fmt.Errorf("classify: rule %q has empty domain", r.Pattern)
	}
	if r.Domain == review.DomainUnclassified {
		return fmt.Errorf("classify: rule %q may not target %q", r.Pattern, review.DomainUnclassified)
	}
	switch r.Kind {
	case KindGlob:
		if !changeset.ValidPattern(r.Pattern) {
			return fmt.Errorf("classify: bad glob %q", r.Pattern)
		}
	case KindContains:
	case KindMarker:
		if r.Refines == "" {
			return fmt.Errorf("classify: marker rule %q needs a refines domain", r.Pattern)
		}
	default:
		return fmt.Errorf("classify: unknown rule kind %q", r.Kind)
	}
	return nil
}

// ValidateRules validates every rule.
func ValidateRules(rules []Rule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

func (r Rule) matchPath(p string) bool {
	switch r.Kind {
	case KindGlob:
		return changeset.MatchPath(r.Pattern, p)
	case KindContains:
		return strings.Contains("/"+p, r.Pattern)
	}
	return false
}
