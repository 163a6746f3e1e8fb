package changeset

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/revgate/internal/apperr"
)

// ChangeType describes how a file changed.
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
	Renamed  ChangeType = "renamed"
)

// Valid reports whether t is a known change type.
func (t ChangeType) Valid() bool {
	switch t {
	case Added, Modified, Deleted, Renamed:
		return true
	}
	return false
}

// Op is the role of a line inside a hunk.
type Op int

const (
	OpContext Op = iota
	OpAdd
	OpDelete
)

// Line is a single hunk line without its trailing newline.
type Line struct {
	Op   Op
	Text string
}

// Hunk is one contiguous region of a file diff.
type Hunk struct {
	OldStart int
	NewStart int
	Lines    []Line
}

// NumberedLine is an added line with its line number in the new file.
type NumberedLine struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// FileChange describes one changed file. A ChangeSet hands out deep copies,
// so a module that edits its hunks cannot affect another module.
type FileChange struct {
	Path    string     `json:"path"`
	OldPath string     `json:"oldPath,omitempty"`
	Type    ChangeType `json:"changeType"`
	// Content is the post-image text visible in the diff (context and added
	// lines), or the removed text for deleted files. Classifiers match
	// content signatures against it.
	Content string `json:"content,omitempty"`
	Binary  bool   `json:"binary,omitempty"`
	Hunks   []Hunk `json:"-"`
}

// Clone returns a copy of f that shares no hunk or line storage with it.
func (f FileChange) Clone() FileChange {
	if f.Hunks == nil {
		return f
	}
	hunks := make([]Hunk, len(f.Hunks))
	for i, h := range f.Hunks {
		h.Lines = append([]Line(nil), h.Lines...)
		hunks[i] = h
	}
	f.Hunks = hunks
	return f
}

// AddedLines returns every added line with its new-file line number.
func (f FileChange) AddedLines() []NumberedLine {
	var out []NumberedLine
	for _, h := range f.Hunks {
		n := h.NewStart
		for _, l := range h.Lines {
			switch l.Op {
			case OpAdd:
				out = append(out, NumberedLine{Number: n, Text: l.Text})
				n++
			case OpContext:
				n++
			}
		}
	}
	return out
}

// ChangeSet is an ordered set of file changes with unique paths.
type ChangeSet struct {
	files []FileChange
	index map[string]int
}

// New builds a ChangeSet. Empty, duplicate, or untyped paths are rejected
// with a classification error because no run can proceed from them.
func New(files ...FileChange) (ChangeSet, error) {
	cs := ChangeSet{
		files: make([]FileChange, 0, len(files)),
		index: make(map[string]int, len(files)),
	}
	for i, f := range files {
		path := strings.TrimSpace(f.Path)
		if path == "" {
			return ChangeSet{}, apperr.New(apperr.TypeClassification, "file change has empty path").
				WithContext("index", i)
		}
		if _, dup := cs.index[path]; dup {
			return ChangeSet{}, apperr.New(apperr.TypeClassification, "duplicate path in changeset").
				WithContext("path", path)
		}
		if f.Type == "" {
			f.Type = Modified
		}
		if !f.Type.Valid() {
			return ChangeSet{}, apperr.New(apperr.TypeClassification, fmt.Sprintf("unknown change type %q", f.Type)).
				WithContext("path", path)
		}
		f.Path = path
		cs.index[path] = len(cs.files)
		cs.files = append(cs.files, f.Clone())
	}
	return cs, nil
}

// Len returns the number of files.
func (cs ChangeSet) Len() int {
	return len(cs.files)
}

// Files returns a deep copy of the file list in changeset order.
func (cs ChangeSet) Files() []FileChange {
	out := make([]FileChange, len(cs.files))
	for i, f := range cs.files {
		out[i] = f.Clone()
	}
	return out
}

// Paths returns the file paths in changeset order.
func (cs ChangeSet) Paths() []string {
	out := make([]string, len(cs.files))
	for i, f := range cs.files {
		out[i] = f.Path
	}
	return out
}

// Lookup finds a file by path.
func (cs ChangeSet) Lookup(path string) (FileChange, bool) {
	i, ok := cs.index[path]
	if !ok {
		return FileChange{}, false
	}
	return cs.files[i].Clone(), true
}

// Stats returns the file count and the added/deleted line totals.
func (cs ChangeSet) Stats() (files, added, deleted int) {
	files = len(cs.files)
	for _, f := range cs.files {
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				switch l.Op {
				case OpAdd:
					added++
				case OpDelete:
					deleted++
				}
			}
		}
	}
	return
}

// Provider supplies the ChangeSet for a run.
type Provider interface {
	ChangeSet(ctx context.Context) (ChangeSet, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (ChangeSet, error)

func (f ProviderFunc) ChangeSet(ctx context.Context) (ChangeSet, error) {
	return f(ctx)
}

// Static returns a Provider that always yields cs.
func Static(cs ChangeSet) Provider {
	return ProviderFunc(func(context.Context) (ChangeSet, error) { return cs, nil })
}
