// Package config loads and merges revgate configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (REVGATE_MODE, REVGATE_FORMAT, REVGATE_CONCURRENCY, etc.)
//  3. Config file ($XDG_CONFIG_HOME/revgate/config.json)
//  4. Built-in defaults
//
// The per-repository manifest (.revgate.yaml) is separate: it declares
// classification rules and external reviewers, and [Manifest.Build] turns it
// into a rule table and a module registry.
package config
