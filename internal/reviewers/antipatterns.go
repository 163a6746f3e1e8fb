package reviewers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
)

// AntiPatternsID is the id of the anti-pattern reviewer.
const AntiPatternsID = "antipatterns"

var (
	broadExceptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)except\s*:`),                                // Python: bare except
		regexp.MustCompile(`(?i)except\s+(Base)?Exception\s*:`),             // Python: catch-all
		regexp.MustCompile(`(?i)catch\s*\(\s*(Exception|Throwable|e)\s*\)`), // Java/C#
		regexp.MustCompile(`(?i)catch\s*\{`),                                // Swift/Kotlin bare catch
		regexp.MustCompile(`(?i)rescue\s*$`),                                // Ruby: bare rescue
		regexp.MustCompile(`(?i)rescue\s+StandardError`),                    // Ruby: catch-all
		regexp.MustCompile(`\.catch\(\s*(?:_|err|\(\s*\))\s*=>\s*\{\s*\}`),  // JS: swallowed promise error
		regexp.MustCompile(`^\s*_\s*=\s*\w+(\.\w+)*\(.*\)\s*$`),             // Go: discarded call result
	}

	commentedCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?://|#)\s*(?:func |def |class |if |for |while |return |import |from |const |let |var |pub fn )`),
		regexp.MustCompile(`^\s*(?://|#)\s*\w+(\.\w+)*\s*(\(.*\)\s*;?|:?=\s*\S+)\s*$`),
	}

	todoPattern = regexp.MustCompile(`\b(TODO|FIXME|HACK|XXX)\b`)
)

// AntiPatterns flags error swallowing, leftover work markers, and
// commented-out code in added lines.
func AntiPatterns() registry.Module {
	return registry.Module{
		ID:          AntiPatternsID,
		Description: "swallowed errors, TODO/FIXME markers, commented-out code",
		Domains:     append([]review.Domain(nil), codeDomains...),
		Cost:        registry.CostFast,
		Salvage:     true,
		Builtin:     true,
		Reviewer:    registry.ReviewerFunc(reviewAntiPatterns),
	}
}

func reviewAntiPatterns(ctx context.Context, req registry.Request) (registry.Outcome, error) {
	return scanAdded(ctx, req, func(path string, l changeset.NumberedLine, emit func(review.Finding)) {
		if matchAny(broadExceptPatterns, l.Text) {
			emit(review.Finding{
				Priority: review.P2,
				Category: review.CategoryCorrectness,
				File:     path,
				Lines:    at(l.Number),
				Summary:  fmt.Sprintf("Broad or swallowed error handling: %s", excerpt(l.Text)),
				Fix:      "Handle the specific error, or log and propagate it.",
			})
		}
		if m := todoPattern.FindString(l.Text); m != "" {
			emit(review.Finding{
				Priority: review.P3,
				Category: review.CategoryMaintainability,
				File:     path,
				Lines:    at(l.Number),
				Summary:  fmt.Sprintf("%s marker added: %s", m, excerpt(l.Text)),
			})
			return
		}
		if matchAny(commentedCodePatterns, l.Text) {
			emit(review.Finding{
				Priority: review.P3,
				Category: review.CategoryMaintainability,
				File:     path,
				Lines:    at(l.Number),
				Summary:  fmt.Sprintf("Commented-out code: %s", excerpt(l.Text)),
				Fix:      "Delete it; version control keeps the history.",
			})
		}
	})
}

func matchAny(pats []*regexp.Regexp, s string) bool {
	for _, p := range pats {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
