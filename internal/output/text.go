package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/revgate/internal/review"
)

var (
	colorRed    = lipgloss.Color("#ff5555")
	colorOrange = lipgloss.Color("#ffb86c")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorGreen  = lipgloss.Color("#50fa7b")
	colorBlue   = lipgloss.Color("#8be9fd")
	colorDim    = lipgloss.Color("#6272a4")
)

// textStyles are bound to the destination writer so that color is dropped
// when the report goes to a file or a pipe.
type textStyles struct {
	title    lipgloss.Style
	dim      lipgloss.Style
	bold     lipgloss.Style
	priority map[review.Priority]lipgloss.Style
	verdict  map[review.Verdict]lipgloss.Style
	coverage map[review.CoverageState]lipgloss.Style
}

func newTextStyles(w io.Writer) textStyles {
	r := lipgloss.NewRenderer(w)
	fg := func(c lipgloss.Color) lipgloss.Style { return r.NewStyle().Foreground(c).Bold(true) }
	return textStyles{
		title: r.NewStyle().Bold(true).Foreground(colorBlue),
		dim:   r.NewStyle().Foreground(colorDim),
		bold:  r.NewStyle().Bold(true),
		priority: map[review.Priority]lipgloss.Style{
			review.P0: fg(colorRed),
			review.P1: fg(colorOrange),
			review.P2: fg(colorYellow),
			review.P3: fg(colorDim),
		},
		verdict: map[review.Verdict]lipgloss.Style{
			review.VerdictReady:      fg(colorGreen),
			review.VerdictNeedsFixes: fg(colorOrange),
			review.VerdictBlocked:    fg(colorRed),
		},
		coverage: map[review.CoverageState]lipgloss.Style{
			review.CoverageFull:      r.NewStyle().Foreground(colorGreen),
			review.CoveragePartial:   r.NewStyle().Foreground(colorOrange),
			review.CoverageUncovered: r.NewStyle().Foreground(colorRed),
		},
	}
}

// TextWriter outputs a human-readable, styled text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	st := newTextStyles(w)
	rule := st.dim.Render(strings.Repeat("─", 60))

	ew.printf("%s\n", st.title.Render(fmt.Sprintf("revgate review · %s mode", report.Mode)))
	if report.Repo.Root != "" {
		ew.printf("Repository: %s", report.Repo.Root)
		if report.Repo.Branch != "" {
			ew.printf(" (branch: %s)", report.Repo.Branch)
		}
		ew.println("")
	}
	if report.Repo.Source != "" {
		ew.printf("Changes: %s\n", report.Repo.Source)
	}
	if report.Partial {
		ew.println(st.priority[review.P1].Render("Partial report: the run was cancelled before every module finished."))
	}
	ew.println(rule)

	d := report.Decision
	ew.printf("Verdict: %s %s\n",
		st.verdict[d.Verdict].Render(strings.ToUpper(string(d.Verdict))),
		st.dim.Render("(rule "+d.Rule+")"))
	c := report.Counts
	ew.printf("Findings: %d total", c.Total())
	if c.Total() > 0 {
		ew.printf(" (P0 %d, P1 %d, P2 %d, P3 %d)", c.P0, c.P1, c.P2, c.P3)
	}
	ew.println("")
	ew.println(rule)

	grouped := groupByPriority(report.Findings)
	for _, p := range review.Priorities {
		findings := grouped[p]
		if len(findings) == 0 {
			continue
		}
		ew.printf("\n%s\n", st.priority[p].Render(fmt.Sprintf("%s %s (%d)", p, strings.ToUpper(priorityLabel(p)), len(findings))))
		for _, f := range findings {
			ew.printf("\n  %s  %s %s\n", st.bold.Render(location(f)), st.dim.Render("["+string(f.Category)+"]"), f.Summary)
			if f.Fix != "" {
				for i, line := range wrapText(f.Fix, 70) {
					if i == 0 {
						ew.printf("    Fix: %s\n", line)
						continue
					}
					ew.printf("         %s\n", line)
				}
			}
			ew.printf("    %s\n", st.dim.Render("Reported by: "+strings.Join(f.Provenance, ", ")))
			for _, n := range f.Notes {
				ew.printf("    %s\n", st.dim.Render("Also: "+n))
			}
		}
	}
	if c.Total() == 0 {
		ew.println("\nNo issues found.")
	}

	if len(report.Coverage) > 0 {
		ew.printf("\n%s\n", st.bold.Render("Coverage"))
		width := 0
		for _, cov := range report.Coverage {
			width = max(width, len(cov.Domain))
		}
		for _, cov := range report.Coverage {
			state := st.coverage[cov.State].Render(fmt.Sprintf("%-9s", cov.State))
			ew.printf("  %-*s  %s  %s\n", width, cov.Domain, state, strings.Join(cov.Modules, ", "))
		}
	}

	problems := report.Problems()
	if len(problems) > 0 || len(report.Excluded) > 0 {
		ew.printf("\n%s\n", st.bold.Render("Not fully evaluated"))
		for _, res := range problems {
			ew.printf("  %s  %s", res.ModuleID, st.priority[review.P1].Render(string(res.Status)))
			if len(res.Diagnostics) > 0 {
				ew.printf("  %s", st.dim.Render(res.Diagnostics[0]))
			}
			ew.println("")
		}
		for _, ex := range report.Excluded {
			ew.printf("  %s  excluded: %s\n", ex.ModuleID, ex.Reason)
		}
	}

	if len(report.Informational) > 0 {
		ew.printf("\n%s %s\n", st.bold.Render("Unclassified files:"), strings.Join(report.Informational, ", "))
	}

	ew.printf("\n%s\n", rule)
	for _, line := range d.Trace {
		ew.printf("%s\n", st.dim.Render("- "+line))
	}
	if report.RunID != "" {
		ew.printf("%s\n", st.dim.Render("run "+report.RunID))
	}
	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
