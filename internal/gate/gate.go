package gate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/revgate/internal/review"
)

// Rule ids, in evaluation order.
const (
	RuleP0Blocks            = "p0-blocks"
	RuleP1NeedsFixes        = "p1-needs-fixes"
	RuleSecurityCoverageGap = "security-coverage-gap"
	RuleClean               = "clean"
)

// Rules lists every rule id in evaluation order.
var Rules = []string{RuleP0Blocks, RuleP1NeedsFixes, RuleSecurityCoverageGap, RuleClean}

// DefaultSecurityDomains are treated as security relevant when a policy does
// not name its own.
var DefaultSecurityDomains = []review.Domain{"auth-policy", "security"}

// Evaluate computes the gate decision. It is a pure function of its inputs.
// A nil policy uses the default security domains and no overrides.
func Evaluate(counts review.PriorityCounts, coverage map[review.Domain]review.CoverageState, mode review.Mode, policy *Policy) review.Decision {
	if policy == nil {
		policy = &Policy{}
	}
	var trace []string
	decide := func(v review.Verdict, rule, why string) review.Decision {
		trace = append(trace, fmt.Sprintf("%s: %s -> %s", rule, why, v))
		return policy.applyOverride(review.Decision{Verdict: v, Rule: rule, Trace: trace})
	}
	pass := func(rule, why string) {
		trace = append(trace, fmt.Sprintf("%s: %s", rule, why))
	}

	if counts.P0 > 0 {
		return decide(review.VerdictBlocked, RuleP0Blocks, fmt.Sprintf("%d P0 finding(s)", counts.P0))
	}
	pass(RuleP0Blocks, "no P0 findings")

	switch {
	case mode == review.ModeQuick:
		pass(RuleP1NeedsFixes, fmt.Sprintf("not applied in %s mode (%d P1)", mode, counts.P1))
	case counts.P1 > 0:
		return decide(review.VerdictNeedsFixes, RuleP1NeedsFixes, fmt.Sprintf("%d P1 finding(s)", counts.P1))
	default:
		pass(RuleP1NeedsFixes, "no P1 findings")
	}

	if gaps := securityGaps(coverage, policy.securityDomains()); len(gaps) > 0 {
		return decide(review.VerdictNeedsFixes, RuleSecurityCoverageGap, "security domain(s) not fully reviewed: "+strings.Join(gaps, ", "))
	}
	pass(RuleSecurityCoverageGap, "security domains fully reviewed")

	return decide(review.VerdictReady, RuleClean, fmt.Sprintf("%d P2, %d P3 finding(s) do not block", counts.P2, counts.P3))
}

func securityGaps(coverage map[review.Domain]review.CoverageState, security []review.Domain) []string {
	var gaps []string
	for _, d := range security {
		state, ok := coverage[d]
		if !ok || state == review.CoverageFull {
			continue
		}
		gaps = append(gaps, fmt.Sprintf("%s=%s", d, state))
	}
	sort.Strings(gaps)
	return gaps
}
