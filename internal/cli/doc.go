// Package cli wires together the Cobra command tree for the revgate binary.
//
// It defines the root command and its subcommands (check, modules, config,
// hook, version), binds flags, loads configuration and the review manifest,
// drives the engine, and maps the gate verdict to the process exit code.
package cli
