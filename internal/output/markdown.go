package output

import (
	"io"
	"strings"

	"github.com/dshills/revgate/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	d := report.Decision
	c := report.Counts

	ew.printf("## revgate review\n\n")
	ew.printf("%s **%s** (rule `%s`, %s mode)\n\n", mdVerdictIcon(d.Verdict), strings.ToUpper(string(d.Verdict)), d.Rule, report.Mode)
	if report.Partial {
		ew.printf("> :warning: Partial report: the run was cancelled before every module finished.\n\n")
	}
	if d.Override != nil {
		ew.printf("> Override applied by **%s**: %s\n\n", d.Override.Approver, d.Override.Reason)
	}

	ew.printf("| Priority | Count |\n")
	ew.printf("|----------|-------|\n")
	for _, p := range review.Priorities {
		ew.printf("| %s %s | %d |\n", p, priorityLabel(p), c.Get(p))
	}
	ew.printf("| **Total** | **%d** |\n\n", c.Total())

	if c.Total() == 0 {
		ew.printf("No issues found. :white_check_mark:\n\n")
	}

	grouped := groupByPriority(report.Findings)
	for _, p := range review.Priorities {
		findings := grouped[p]
		if len(findings) == 0 {
			continue
		}
		open := ""
		if p == review.P0 || p == review.P1 {
			open = " open"
		}
		ew.printf("<details%s>\n<summary>%s %s %s (%d)</summary>\n\n", open, mdPriorityIcon(p), p, priorityLabel(p), len(findings))
		for _, f := range findings {
			ew.printf("### %s\n\n", f.Summary)
			ew.printf("**`%s`** | %s | %s\n\n", location(f), f.Category, strings.Join(f.Provenance, ", "))
			if f.Fix != "" {
				ew.printf("**Fix:**\n\n")
				if looksLikeCode(f.Fix) {
					ew.printf("```%s\n%s\n```\n\n", inferLang(f.File), f.Fix)
				} else {
					ew.printf("> %s\n\n", strings.ReplaceAll(f.Fix, "\n", "\n> "))
				}
			}
			for _, n := range f.Notes {
				ew.printf("- %s\n", n)
			}
			if len(f.Notes) > 0 {
				ew.printf("\n")
			}
			ew.printf("---\n\n")
		}
		ew.printf("</details>\n\n")
	}

	if len(report.Coverage) > 0 {
		ew.printf("#### Coverage\n\n")
		ew.printf("| Domain | State | Modules |\n")
		ew.printf("|--------|-------|---------|\n")
		for _, cov := range report.Coverage {
			mods := strings.Join(cov.Modules, ", ")
			if mods == "" {
				mods = "none"
			}
			ew.printf("| %s | %s %s | %s |\n", cov.Domain, mdCoverageIcon(cov.State), cov.State, mods)
		}
		ew.printf("\n")
	}

	problems := report.Problems()
	if len(problems) > 0 || len(report.Excluded) > 0 {
		ew.printf("#### Not fully evaluated\n\n")
		for _, res := range problems {
			diag := ""
			if len(res.Diagnostics) > 0 {
				diag = ": " + res.Diagnostics[0]
			}
			ew.printf("- `%s` %s%s\n", res.ModuleID, res.Status, diag)
		}
		for _, ex := range report.Excluded {
			ew.printf("- `%s` excluded: %s\n", ex.ModuleID, ex.Reason)
		}
		ew.printf("\n")
	}

	if len(report.Informational) > 0 {
		ew.printf("*Unclassified files: %s*\n\n", strings.Join(report.Informational, ", "))
	}

	if len(d.Trace) > 0 {
		ew.printf("<details>\n<summary>Decision trace</summary>\n\n")
		for _, line := range d.Trace {
			ew.printf("- %s\n", line)
		}
		ew.printf("\n</details>\n")
	}
	return ew.err
}

func mdVerdictIcon(v review.Verdict) string {
	switch v {
	case review.VerdictReady:
		return ":white_check_mark:"
	case review.VerdictNeedsFixes:
		return ":warning:"
	case review.VerdictBlocked:
		return ":no_entry:"
	default:
		return ":grey_question:"
	}
}

func mdPriorityIcon(p review.Priority) string {
	switch p {
	case review.P0:
		return ":red_circle:"
	case review.P1:
		return ":orange_circle:"
	case review.P2:
		return ":yellow_circle:"
	default:
		return ":white_circle:"
	}
}

func mdCoverageIcon(s review.CoverageState) string {
	switch s {
	case review.CoverageFull:
		return ":green_circle:"
	case review.CoveragePartial:
		return ":yellow_circle:"
	default:
		return ":red_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"func ", "if ", "for ", "return ", "var ", "const ",
		"def ", "class ", "import ", "from ",
		"{", "}", "=>", "->", ":=", "==",
		"()", "[];",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

func inferLang(path string) string {
	langMap := map[string]string{
		".go":   "go",
		".py":   "python",
		".js":   "javascript",
		".ts":   "typescript",
		".tsx":  "tsx",
		".jsx":  "jsx",
		".rs":   "rust",
		".c":    "c",
		".sh":   "bash",
		".sql":  "sql",
		".yaml": "yaml",
		".yml":  "yaml",
		".json": "json",
		".tf":   "hcl",
	}
	for ext, lang := range langMap {
		if strings.HasSuffix(path, ext) {
			return lang
		}
	}
	return ""
}
