package gate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/revgate/internal/review"
)

// Policy adjusts the default gate. Overrides are the only way to relax a
// verdict, and each one must name who approved it and why.
type Policy struct {
	SecurityDomains []review.Domain   `json:"securityDomains,omitempty"`
	Overrides       []review.Override `json:"overrides,omitempty"`
}

// LoadPolicy loads a policy file from disk. Returns nil Policy and nil error
// if path is empty.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every override.
func (p *Policy) Validate() error {
	if p == nil {
		return nil
	}
	seen := make(map[string]bool)
	for i, o := range p.Overrides {
		if err := validateOverride(o); err != nil {
			return fmt.Errorf("override %d: %w", i, err)
		}
		if seen[o.Rule] {
			return fmt.Errorf("override %d: rule %s overridden twice", i, o.Rule)
		}
		seen[o.Rule] = true
	}
	return nil
}

func validateOverride(o review.Override) error {
	known := false
	for _, r := range Rules {
		if r == o.Rule {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown rule %q", o.Rule)
	}
	if !o.Verdict.Valid() {
		return fmt.Errorf("invalid verdict %q", o.Verdict)
	}
	if strings.TrimSpace(o.Reason) == "" {
		return fmt.Errorf("override of %s needs a reason", o.Rule)
	}
	if strings.TrimSpace(o.Approver) == "" {
		return fmt.Errorf("override of %s needs an approver", o.Rule)
	}
	return nil
}

func (p *Policy) securityDomains() []review.Domain {
	if len(p.SecurityDomains) > 0 {
		return p.SecurityDomains
	}
	return DefaultSecurityDomains
}

// applyOverride replaces the verdict when an override targets the rule that
// fired. Malformed overrides are ignored and noted in the trace.
func (p *Policy) applyOverride(d review.Decision) review.Decision {
	for _, o := range p.Overrides {
		if o.Rule != d.Rule {
			continue
		}
		if err := validateOverride(o); err != nil {
			d.Trace = append(d.Trace, "override ignored: "+err.Error())
			return d
		}
		d.Trace = append(d.Trace, fmt.Sprintf("override: %s -> %s approved by %s (%s)", d.Verdict, o.Verdict, o.Approver, o.Reason))
		d.Verdict = o.Verdict
		d.Override = &o
		return d
	}
	return d
}
