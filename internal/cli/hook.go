package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/revgate/internal/gitctx"
	"github.com/dshills/revgate/internal/review"
)

const (
	hookMarkerStart = "# >>> revgate pre-commit hook >>>"
	hookMarkerEnd   = "# <<< revgate pre-commit hook <<<"
)

var (
	hookMode   string
	hookFormat string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install revgate as a git pre-commit hook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := review.ParseMode(hookMode); err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		hookPath, err := getHookPath(cmd)
		if err != nil {
			return fail(cmd, ExitRuntimeError, err)
		}

		section := generateHookScript(hookMode, hookFormat)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			return fail(cmd, ExitRuntimeError, fmt.Errorf("reading hook file: %w", err))
		}

		var content string
		if len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceHookSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			return fail(cmd, ExitRuntimeError, fmt.Errorf("creating hooks directory: %w", err))
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			return fail(cmd, ExitRuntimeError, fmt.Errorf("writing hook file: %w", err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Installed revgate pre-commit hook at %s\n", hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove revgate pre-commit hook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath(cmd)
		if err != nil {
			return fail(cmd, ExitRuntimeError, err)
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No pre-commit hook found.")
				return nil
			}
			return fail(cmd, ExitRuntimeError, fmt.Errorf("reading hook file: %w", err))
		}

		content := removeHookSection(string(existing))

		// Only a shebang left: remove the file
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				return fail(cmd, ExitRuntimeError, fmt.Errorf("removing hook file: %w", err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed revgate pre-commit hook at %s\n", hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			return fail(cmd, ExitRuntimeError, fmt.Errorf("writing hook file: %w", err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed revgate section from %s\n", hookPath)
		return nil
	},
}

func getHookPath(cmd *cobra.Command) (string, error) {
	dir, err := gitctx.HooksDir(cmd.Context(), "")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pre-commit"), nil
}

// generateHookScript blocks the commit on a needs_fixes or blocked verdict
// and lets it through, with a warning, when the review itself could not run.
func generateHookScript(mode, format string) string {
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	fmt.Fprintf(&b, "revgate check staged --mode %s --format %s\n", mode, format)
	b.WriteString("REVGATE_EXIT=$?\n")
	b.WriteString("if [ $REVGATE_EXIT -eq 1 ] || [ $REVGATE_EXIT -eq 2 ]; then\n")
	b.WriteString("  echo \"revgate: change is not ready, commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $REVGATE_EXIT -ge 3 ]; then\n")
	b.WriteString("  echo \"revgate: warning: review did not complete (exit $REVGATE_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func replaceHookSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + section + after
}

func removeHookSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := strings.TrimPrefix(existing[endIdx+len(hookMarkerEnd):], "\n")
	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookMode, "mode", "quick", "Review depth run by the hook (quick, standard, deep)")
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Output format (text, json, markdown, sarif)")
}
