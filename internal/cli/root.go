package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/revgate/internal/logging"
)

// version is overridden at build time with -ldflags "-X".
var version = "0.3.0"

// Exit codes. The verdict codes let CI and git hooks gate on the result
// without parsing the report.
const (
	ExitReady        = 0
	ExitNeedsFixes   = 1
	ExitBlocked      = 2
	ExitUsageError   = 3
	ExitRuntimeError = 4
)

var (
	flagVerbose bool
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "revgate",
	Short: "Review orchestration gate for code changes",
	Long: "revgate classifies a changeset, runs the review modules that cover it, " +
		"merges their findings, and decides whether the change is ready, needs fixes, or is blocked.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Initialize(cmd.ErrOrStderr(), flagDebug, flagVerbose)
	},
}

// Run executes the root command and returns an exit code.
func Run() int {
	return execute(os.Args[1:])
}

func execute(args []string) int {
	exitCode = ExitReady
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}
	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitReady

// fail reports err and sets the exit code. Handlers return nil afterwards so
// cobra does not print usage for a runtime failure.
func fail(cmd *cobra.Command, code int, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	exitCode = code
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print revgate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "revgate version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log module progress to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log debug detail to stderr")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)
}
