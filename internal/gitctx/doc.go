// Package gitctx collects changesets from a git repository: staged or
// unstaged work, a single commit, or a revision range. A [Source] is a
// changeset.Provider, so the engine never shells out to git itself.
package gitctx
