package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/revgate/internal/apperr"
	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/classify"
	"github.com/dshills/revgate/internal/config"
	"github.com/dshills/revgate/internal/dispatch"
	"github.com/dshills/revgate/internal/engine"
	"github.com/dshills/revgate/internal/gate"
	"github.com/dshills/revgate/internal/gitctx"
	"github.com/dshills/revgate/internal/output"
	"github.com/dshills/revgate/internal/review"
)

// Shared check flags
var (
	flagMode         string
	flagFormat       string
	flagOut          string
	flagConcurrency  int
	flagRunDeadline  string
	flagPartial      bool
	flagPolicy       string
	flagManifest     string
	flagAllow        string
	flagDeny         string
	flagExclude      string
	flagContextLines int
	flagTimeouts     map[string]string
	flagDryRun       bool
	flagNoRedact     bool
	flagMergeBase    bool
)

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagMode, "mode", "", "Review depth (quick, standard, deep)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Maximum modules in flight (default depends on mode)")
	cmd.Flags().StringVar(&flagRunDeadline, "run-deadline", "", "Cancel the whole run after this duration (e.g. 5m)")
	cmd.Flags().BoolVar(&flagPartial, "partial", false, "Write a partial report when the run is cancelled")
	cmd.Flags().StringVar(&flagPolicy, "policy", "", "Gate policy file (JSON)")
	cmd.Flags().StringVar(&flagManifest, "manifest", "", "Review manifest (default .revgate.yaml)")
	cmd.Flags().StringVar(&flagAllow, "allow", "", "Modules to run regardless of cost class (comma-separated)")
	cmd.Flags().StringVar(&flagDeny, "deny", "", "Modules never to run (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in the git diff")
	cmd.Flags().StringToStringVar(&flagTimeouts, "timeout", nil, "Per-module budget, e.g. --timeout secrets=10s")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print the plan without running any module")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Send unredacted content to external reviewers (use with caution)")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagMode != "" {
		m["mode"] = flagMode
	}
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagConcurrency > 0 {
		m["concurrency"] = fmt.Sprintf("%d", flagConcurrency)
	}
	if flagRunDeadline != "" {
		m["runDeadline"] = flagRunDeadline
	}
	if flagPartial {
		m["partialReport"] = "true"
	}
	if flagPolicy != "" {
		m["policy"] = flagPolicy
	}
	if flagManifest != "" {
		m["manifest"] = flagManifest
	}
	if flagAllow != "" {
		m["allow"] = flagAllow
	}
	if flagDeny != "" {
		m["deny"] = flagDeny
	}
	for id, d := range flagTimeouts {
		m["timeouts."+id] = d
	}
	return m
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// setup is everything a check needs besides the changeset.
type setup struct {
	cfg    config.Config
	params engine.Params
}

func loadSetup() (setup, error) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return setup{}, err
	}
	if flagNoRedact {
		cfg.Privacy.RedactSecrets = false
	}

	if flagManifest != "" {
		if _, err := os.Stat(flagManifest); err != nil {
			return setup{}, fmt.Errorf("manifest: %w", err)
		}
	}
	manifest, err := config.LoadManifest(cfg.Manifest)
	if err != nil {
		return setup{}, err
	}
	rules, reg, err := manifest.Build(cfg.Privacy)
	if err != nil {
		return setup{}, err
	}
	policy, err := gate.LoadPolicy(cfg.Policy)
	if err != nil {
		return setup{}, err
	}

	timeouts, err := cfg.ModuleTimeouts()
	if err != nil {
		return setup{}, err
	}
	deadline, err := cfg.Deadline()
	if err != nil {
		return setup{}, err
	}

	return setup{
		cfg: cfg,
		params: engine.Params{
			Mode:     review.Mode(cfg.Mode),
			Rules:    rules,
			Registry: reg,
			Dispatch: dispatch.Options{
				Allow:    cfg.Allow,
				Deny:     cfg.Deny,
				Timeouts: timeouts,
			},
			Concurrency:   cfg.Concurrency,
			RunDeadline:   deadline,
			PartialReport: cfg.PartialReport,
			Policy:        manifest.Policy(policy),
			Version:       version,
		},
	}, nil
}

// runCheck drives one review and maps the verdict to the exit code.
func runCheck(cmd *cobra.Command, provider changeset.Provider, repo review.RepoInfo) error {
	s, err := loadSetup()
	if err != nil {
		return fail(cmd, ExitUsageError, err)
	}
	if flagNoRedact {
		fmt.Fprintln(cmd.ErrOrStderr(), "WARNING: secret redaction for external reviewers is disabled")
	}
	s.params.Repo = repo

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagDryRun {
		plan, classified, err := engine.Plan(ctx, provider, s.params)
		if err != nil {
			return fail(cmd, exitFor(err), err)
		}
		return printPlan(cmd.OutOrStdout(), plan, classified)
	}

	res, err := engine.Run(ctx, provider, s.params)
	if err != nil {
		return fail(cmd, exitFor(err), err)
	}

	if res.Report != nil {
		if err := output.WriteReport(res.Report, s.cfg.Format, flagOut, cmd.OutOrStdout()); err != nil {
			return fail(cmd, ExitRuntimeError, fmt.Errorf("writing output: %w", err))
		}
	}
	if res.State != engine.StateReported {
		return fail(cmd, ExitRuntimeError, fmt.Errorf("run %s ended %s", res.RunID, res.State))
	}

	switch res.Report.Decision.Verdict {
	case review.VerdictBlocked:
		exitCode = ExitBlocked
	case review.VerdictNeedsFixes:
		exitCode = ExitNeedsFixes
	default:
		exitCode = ExitReady
	}
	return nil
}

func exitFor(err error) int {
	if apperr.IsType(err, apperr.TypeConfiguration) {
		return ExitUsageError
	}
	return ExitRuntimeError
}

func printPlan(w io.Writer, plan dispatch.Plan, classified classify.Result) error {
	ew := &errWriter{w: w}
	ew.printf("Plan (%s mode): %d module(s)\n", plan.Mode, len(plan.Invocations))
	if len(plan.Invocations) > 0 {
		rows := make([][]string, 0, len(plan.Invocations))
		for _, inv := range plan.Invocations {
			rows = append(rows, []string{
				inv.Module.ID, string(inv.Module.Cost), inv.Timeout.String(),
				strconv.Itoa(len(inv.Files)), joinDomains(inv.Domains),
			})
		}
		ew.printf("%s", renderTable([]string{"MODULE", "COST", "BUDGET", "FILES", "DOMAINS"}, rows))
	}

	byDomain := classified.ByDomain()
	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, string(d))
	}
	sort.Strings(domains)
	if len(domains) > 0 {
		rows := make([][]string, 0, len(domains))
		for _, d := range domains {
			cover := strings.Join(plan.Coverage[review.Domain(d)], ", ")
			if cover == "" {
				cover = "UNCOVERED"
			}
			rows = append(rows, []string{d, strconv.Itoa(len(byDomain[review.Domain(d)])), cover})
		}
		ew.printf("\n%s", renderTable([]string{"DOMAIN", "FILES", "MODULES"}, rows))
	}

	if len(plan.Skipped) > 0 {
		ids := make([]string, 0, len(plan.Skipped))
		for id := range plan.Skipped {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, []string{id, plan.Skipped[id]})
		}
		ew.printf("\n%s", renderTable([]string{"SKIPPED", "REASON"}, rows))
	}
	if len(plan.Informational) > 0 {
		ew.printf("\nUnclassified: %s\n", strings.Join(plan.Informational, ", "))
	}
	return ew.err
}

func joinDomains(ds []review.Domain) string {
	s := make([]string, len(ds))
	for i, d := range ds {
		s[i] = string(d)
	}
	return strings.Join(s, ", ")
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

func gitSource(kind gitctx.Kind, rev string) gitctx.Source {
	return gitctx.Source{
		Kind:         kind,
		Rev:          rev,
		MergeBase:    flagMergeBase,
		ContextLines: flagContextLines,
		Exclude:      splitComma(flagExclude),
	}
}

// checkGit reviews changes collected from the enclosing git repository.
func checkGit(cmd *cobra.Command, src gitctx.Source) error {
	var repo review.RepoInfo
	if meta, err := gitctx.GetRepoMeta(cmd.Context(), src.Dir); err == nil {
		repo = meta.Info(src.Describe())
	} else {
		repo.Source = src.Describe()
	}
	return runCheck(cmd, src, repo)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Review a changeset and gate on the verdict",
	Long: "Review a changeset and gate on the verdict. Exit codes: 0 ready, 1 needs fixes, " +
		"2 blocked, 3 usage or configuration error, 4 runtime error or cancelled run.",
}

var checkStagedCmd = &cobra.Command{
	Use:   "staged",
	Short: "Check staged changes (index vs HEAD)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkGit(cmd, gitSource(gitctx.KindStaged, ""))
	},
}

var checkUnstagedCmd = &cobra.Command{
	Use:   "unstaged",
	Short: "Check unstaged changes (working tree vs index)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkGit(cmd, gitSource(gitctx.KindUnstaged, ""))
	},
}

var checkCommitCmd = &cobra.Command{
	Use:   "commit <sha>",
	Short: "Check a single commit against its parent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkGit(cmd, gitSource(gitctx.KindCommit, args[0]))
	},
}

var checkRangeCmd = &cobra.Command{
	Use:   "range <revRange>",
	Short: "Check a revision range (e.g., origin/main..HEAD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkGit(cmd, gitSource(gitctx.KindRange, args[0]))
	},
}

var checkDiffCmd = &cobra.Command{
	Use:   "diff [file|-]",
	Short: "Check a unified diff read from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		source := "diff stdin"
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fail(cmd, ExitRuntimeError, fmt.Errorf("opening diff: %w", err))
			}
			defer f.Close()
			in = f
			source = "diff " + args[0]
		}
		return runCheck(cmd, changeset.DiffProvider{R: in}, review.RepoInfo{Source: source})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{
		checkStagedCmd,
		checkUnstagedCmd,
		checkCommitCmd,
		checkRangeCmd,
		checkDiffCmd,
	} {
		checkCmd.AddCommand(cmd)
		addCheckFlags(cmd)
	}

	checkRangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Diff against the merge base for a..b ranges")
}
