// Package changeset defines the immutable description of what changed in a
// run: a [ChangeSet] of [FileChange] values with unique paths.
//
// [ParseDiff] and [DiffProvider] build a ChangeSet from unified diff text using
// go-gitdiff. Any failure to construct a ChangeSet is a classification error,
// the only fault that aborts a run.
package changeset
