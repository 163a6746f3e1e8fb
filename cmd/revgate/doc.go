// Revgate is a local-first CLI that gates code changes on the findings of
// specialized review modules.
//
// It classifies a changeset into review domains, runs the modules that cover
// them with bounded concurrency, merges their findings, and exits with a code
// derived from the gate verdict so CI and git hooks can act on it.
//
// Usage:
//
//	revgate check staged                  # review staged changes
//	revgate check unstaged                # review working tree changes
//	revgate check commit <sha>            # review a specific commit
//	revgate check range origin/main..HEAD # review a revision range
//	revgate check diff change.patch       # review a unified diff (- for stdin)
//	revgate modules list                  # show registered modules
//
// Exit codes: 0 ready, 1 needs fixes, 2 blocked, 3 usage error, 4 runtime
// error or cancelled run.
package main
