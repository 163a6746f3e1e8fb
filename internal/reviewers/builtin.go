package reviewers

import (
	"context"
	"strings"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/classify"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
)

// codeDomains are the source-code domains the line-level reviewers scan.
var codeDomains = []review.Domain{
	classify.DomainGo,
	classify.DomainTypeScript,
	classify.DomainTypeScriptGraphQL,
	classify.DomainE2ETest,
	classify.DomainUIComponent,
	classify.DomainPython,
	classify.DomainC,
	classify.DomainFluentBitPlugin,
	classify.DomainAuthPolicy,
}

// configDomains hold deployment and build files where credentials tend to
// be pasted.
var configDomains = []review.Domain{
	classify.DomainInfraChart,
	classify.DomainInfraTerraform,
	classify.DomainContainer,
	classify.DomainCI,
	classify.DomainDBMigration,
	classify.DomainDependencies,
	classify.DomainDocs,
}

// Builtins returns the reviewers that ship with revgate.
func Builtins() []registry.Module {
	return []registry.Module{Secrets(), AntiPatterns(), Dependencies()}
}

// lineScanner inspects one added line and reports findings through emit.
type lineScanner func(path string, line changeset.NumberedLine, emit func(review.Finding))

// scanAdded runs scan over every added line of every file in req, emitting
// findings as they are found so a timed-out scan keeps what it saw.
func scanAdded(ctx context.Context, req registry.Request, scan lineScanner) (registry.Outcome, error) {
	var out registry.Outcome
	for _, f := range req.Files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if f.Binary || f.Type == changeset.Deleted {
			continue
		}
		for _, l := range addedLines(f) {
			scan(f.Path, l, req.Emit)
		}
	}
	return out, nil
}

// addedLines prefers the diff hunks. Files built without hunks are treated
// as entirely new, numbered from line 1.
func addedLines(f changeset.FileChange) []changeset.NumberedLine {
	if len(f.Hunks) > 0 {
		return f.AddedLines()
	}
	if f.Content == "" {
		return nil
	}
	var out []changeset.NumberedLine
	for i, text := range strings.Split(strings.TrimSuffix(f.Content, "\n"), "\n") {
		out = append(out, changeset.NumberedLine{Number: i + 1, Text: strings.TrimSuffix(text, "\r")})
	}
	return out
}

func at(line int) *review.LineRange {
	return &review.LineRange{Start: line, End: line}
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
