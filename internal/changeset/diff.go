package changeset

import (
	"context"
	"io"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/dshills/revgate/internal/apperr"
)

// ParseDiff builds a ChangeSet from unified diff text.
func ParseDiff(raw string) (ChangeSet, error) {
	return Parse(strings.NewReader(raw))
}

// Parse reads a unified diff and builds a ChangeSet.
func Parse(r io.Reader) (ChangeSet, error) {
	parsed, _, err := gitdiff.Parse(r)
	if err != nil {
		return ChangeSet{}, apperr.Wrap(apperr.TypeClassification, "parsing diff", err)
	}

	files := make([]FileChange, 0, len(parsed))
	for _, f := range parsed {
		files = append(files, convertFile(f))
	}
	return New(files...)
}

func convertFile(f *gitdiff.File) FileChange {
	fc := FileChange{
		Path:   f.NewName,
		Binary: f.IsBinary,
	}
	switch {
	case f.IsNew:
		fc.Type = Added
	case f.IsDelete:
		fc.Type = Deleted
		fc.Path = f.OldName
	case f.IsRename:
		fc.Type = Renamed
		fc.OldPath = f.OldName
	default:
		fc.Type = Modified
	}
	if fc.Path == "" {
		fc.Path = f.OldName
	}

	var content strings.Builder
	for _, frag := range f.TextFragments {
		h := Hunk{
			OldStart: int(frag.OldPosition),
			NewStart: int(frag.NewPosition),
			Lines:    make([]Line, 0, len(frag.Lines)),
		}
		for _, line := range frag.Lines {
			text := strings.TrimRight(line.Line, "\r\n")
			var op Op
			switch line.Op {
			case gitdiff.OpAdd:
				op = OpAdd
			case gitdiff.OpDelete:
				op = OpDelete
			default:
				op = OpContext
			}
			h.Lines = append(h.Lines, Line{Op: op, Text: text})

			keep := op != OpDelete
			if fc.Type == Deleted {
				keep = op == OpDelete
			}
			if keep {
				content.WriteString(text)
				content.WriteByte('\n')
			}
		}
		fc.Hunks = append(fc.Hunks, h)
	}
	fc.Content = content.String()
	return fc
}

// DiffProvider supplies a ChangeSet parsed from a unified diff stream.
type DiffProvider struct {
	R io.Reader
}

func (p DiffProvider) ChangeSet(ctx context.Context) (ChangeSet, error) {
	if err := ctx.Err(); err != nil {
		return ChangeSet{}, err
	}
	if p.R == nil {
		return ChangeSet{}, apperr.New(apperr.TypeClassification, "no diff input")
	}
	data, err := io.ReadAll(p.R)
	if err != nil {
		return ChangeSet{}, apperr.Wrap(apperr.TypeClassification, "reading diff", err)
	}
	return ParseDiff(string(data))
}
