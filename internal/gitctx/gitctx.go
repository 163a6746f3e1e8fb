package gitctx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dshills/revgate/internal/apperr"
	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/logging"
	"github.com/dshills/revgate/internal/review"
)

// Kind selects which changes a Source collects.
type Kind string

const (
	KindStaged   Kind = "staged"
	KindUnstaged Kind = "unstaged"
	KindCommit   Kind = "commit"
	KindRange    Kind = "range"
)

// Source collects a changeset from a git repository. It implements
// changeset.Provider.
type Source struct {
	Kind Kind
	// Rev is the commit for KindCommit or the revision range for KindRange.
	Rev string
	// MergeBase turns "a..b" into "a...b" so a range is diffed against the
	// merge base.
	MergeBase    bool
	Dir          string
	ContextLines int
	// Exclude drops files matching these globs before parsing.
	Exclude []string
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// Info converts the metadata to the report's repository block.
func (m RepoMeta) Info(source string) review.RepoInfo {
	return review.RepoInfo{Root: m.Root, Head: m.Head, Branch: m.Branch, Source: source}
}

// Describe names the source for reports and logs.
func (s Source) Describe() string {
	if s.Rev == "" {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s %s", s.Kind, s.Rev)
}

// ChangeSet runs git diff and parses the result.
func (s Source) ChangeSet(ctx context.Context) (changeset.ChangeSet, error) {
	diff, err := s.Diff(ctx)
	if err != nil {
		return changeset.ChangeSet{}, apperr.Wrap(apperr.TypeClassification, "collecting changes", err).
			WithContext("source", s.Describe())
	}
	if len(s.Exclude) > 0 {
		diff = filterExcluded(diff, s.Exclude)
	}
	cs, err := changeset.ParseDiff(diff)
	if err != nil {
		return changeset.ChangeSet{}, err
	}
	logging.Debug(ctx, "changes collected", "source", s.Describe(), "files", cs.Len(), "bytes", len(diff))
	return cs, nil
}

// Diff returns the raw unified diff for the source.
func (s Source) Diff(ctx context.Context) (string, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff", "--find-renames"}
	if s.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", s.ContextLines))
	}

	switch s.Kind {
	case KindUnstaged:
		return gitOutput(ctx, s.Dir, append(args, "--")...)
	case KindStaged:
		return gitOutput(ctx, s.Dir, append(args, "--cached", "--")...)
	case KindCommit:
		if s.Rev == "" {
			return "", errors.New("commit source needs a revision")
		}
		diff, err := gitOutput(ctx, s.Dir, append(args, s.Rev+"~1", s.Rev, "--")...)
		if err == nil {
			return diff, nil
		}
		// The root commit has no parent to diff against.
		show := []string{"show", "--no-color", "--no-ext-diff", "--find-renames", "--format=", s.Rev, "--"}
		diff, showErr := gitOutput(ctx, s.Dir, show...)
		if showErr != nil {
			return "", fmt.Errorf("git diff %s: %w", s.Rev, err)
		}
		return diff, nil
	case KindRange:
		if s.Rev == "" {
			return "", errors.New("range source needs a revision range")
		}
		return gitOutput(ctx, s.Dir, append(args, rangeSpec(s.Rev, s.MergeBase), "--")...)
	default:
		return "", fmt.Errorf("unknown change source %q", s.Kind)
	}
}

func rangeSpec(revRange string, mergeBase bool) string {
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		return strings.Replace(revRange, "..", "...", 1)
	}
	return revRange
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta(ctx context.Context, dir string) (RepoMeta, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// HooksDir returns the repository's hooks directory, honoring core.hooksPath.
func HooksDir(ctx context.Context, dir string) (string, error) {
	out, err := gitOutput(ctx, dir, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	hooks := strings.TrimSpace(out)
	if !filepath.IsAbs(hooks) && dir != "" {
		hooks = filepath.Join(dir, hooks)
	}
	return hooks, nil
}

func filterExcluded(diff string, excludes []string) string {
	sections := splitDiffSections(diff)
	var kept []string
	for _, section := range sections {
		path := extractPathFromSection(section)
		if path == "" || !MatchesAny(path, excludes) {
			kept = append(kept, section)
		}
	}
	return strings.Join(kept, "")
}

func splitDiffSections(diff string) []string {
	var sections []string
	lines := strings.SplitAfter(diff, "\n")
	var current strings.Builder
	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}

// extractPathFromSection prefers the post-image path and falls back to the
// pre-image path for deletions.
func extractPathFromSection(section string) string {
	var old string
	for _, line := range strings.Split(section, "\n") {
		if p, ok := strings.CutPrefix(line, "+++ b/"); ok {
			return p
		}
		if p, ok := strings.CutPrefix(line, "--- a/"); ok {
			old = p
		}
	}
	return old
}

// MatchesAny returns true if the path matches any of the given glob patterns.
// "dir/**" matches everything below dir and "**/x" matches x at any depth.
func MatchesAny(path string, patterns []string) bool {
	return changeset.MatchAny(path, patterns)
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
