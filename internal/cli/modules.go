package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/revgate/internal/config"
	"github.com/dshills/revgate/internal/dispatch"
	"github.com/dshills/revgate/internal/registry"
)

var modulesManifest string

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect registered review modules",
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review modules with cost class, domains and budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		path := cfg.Manifest
		if modulesManifest != "" {
			path = modulesManifest
		}
		manifest, err := config.LoadManifest(path)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		_, reg, err := manifest.Build(cfg.Privacy)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		timeouts, err := cfg.ModuleTimeouts()
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}

		var rows [][]string
		for _, m := range reg.Modules() {
			rows = append(rows, []string{
				m.ID, string(m.Cost), moduleBudget(m, timeouts).String(), moduleSource(m), joinDomains(m.Domains),
			})
		}
		ew := &errWriter{w: cmd.OutOrStdout()}
		ew.printf("%s", renderTable([]string{"ID", "COST", "BUDGET", "SOURCE", "DOMAINS"}, rows))
		return ew.err
	},
}

func moduleBudget(m registry.Module, overrides map[string]time.Duration) time.Duration {
	if d, ok := overrides[m.ID]; ok && d > 0 {
		return d
	}
	if m.Timeout > 0 {
		return m.Timeout
	}
	return dispatch.DefaultTimeouts[m.Cost]
}

func moduleSource(m registry.Module) string {
	if m.Builtin {
		return "builtin"
	}
	return "external"
}

var modulesDescribeCmd = &cobra.Command{
	Use:   "describe <id>",
	Short: "Show one module's description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		manifest, err := config.LoadManifest(cfg.Manifest)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		_, reg, err := manifest.Build(cfg.Privacy)
		if err != nil {
			return fail(cmd, ExitUsageError, err)
		}
		m, ok := reg.Lookup(args[0])
		if !ok {
			return fail(cmd, ExitUsageError, fmt.Errorf("unknown module %q (known: %s)", args[0], strings.Join(reg.IDs(), ", ")))
		}
		ew := &errWriter{w: cmd.OutOrStdout()}
		ew.printf("%s (%s, %s)\n", m.ID, m.Cost, moduleSource(m))
		ew.printf("  %s\n", m.Description)
		ew.printf("  domains: %s\n", joinDomains(m.Domains))
		ew.printf("  salvage: %t\n", m.Salvage)
		return ew.err
	},
}

func init() {
	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.AddCommand(modulesDescribeCmd)
	modulesListCmd.Flags().StringVar(&modulesManifest, "manifest", "", "Review manifest (default from config)")
}
