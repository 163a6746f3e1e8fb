package reviewers

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/classify"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
)

// DependenciesID is the id of the dependency reviewer.
const DependenciesID = "dependencies"

// manifests maps dependency manifest base names to their ecosystem. Lock
// files are left out: they churn with every resolution.
var manifests = map[string]string{
	"go.mod":           "go",
	"package.json":     "npm",
	"Cargo.toml":       "cargo",
	"requirements.txt": "pip",
	"Gemfile":          "gem",
}

// Dependencies flags every dependency a change adds to a manifest so that
// new third-party code gets an explicit look.
func Dependencies() registry.Module {
	return registry.Module{
		ID:          DependenciesID,
		Description: "new third-party dependencies in manifests",
		Domains:     []review.Domain{classify.DomainDependencies},
		Cost:        registry.CostStandard,
		Builtin:     true,
		Reviewer:    registry.ReviewerFunc(reviewDependencies),
	}
}

func reviewDependencies(ctx context.Context, req registry.Request) (registry.Outcome, error) {
	return scanAdded(ctx, req, func(p string, l changeset.NumberedLine, emit func(review.Finding)) {
		eco, ok := manifests[path.Base(p)]
		if !ok {
			return
		}
		name := parseDepLine(l.Text, eco)
		if name == "" {
			return
		}
		emit(review.Finding{
			Priority: review.P2,
			Category: review.CategoryDependencies,
			File:     p,
			Lines:    at(l.Number),
			Summary:  fmt.Sprintf("New %s dependency: %s", eco, name),
			Fix:      "Confirm the package is maintained, licensed compatibly, and actually needed.",
		})
	})
}

func parseDepLine(line, eco string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	switch eco {
	case "go":
		if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "module ") || strings.HasPrefix(line, "go ") {
			return ""
		}
		line = strings.TrimPrefix(line, "require ")
		parts := strings.Fields(line)
		if len(parts) >= 2 && strings.Contains(parts[0], "/") && strings.HasPrefix(parts[1], "v") {
			return parts[0]
		}

	case "npm":
		line = strings.TrimSuffix(line, ",")
		name, version, found := strings.Cut(line, ":")
		if !found {
			return ""
		}
		name = strings.Trim(name, `" `)
		version = strings.TrimSpace(version)
		if name == "" || strings.HasPrefix(version, "{") || strings.HasPrefix(version, "[") {
			return ""
		}
		switch name {
		case "name", "version", "description", "main", "license", "private", "type", "author":
			return ""
		}
		return name

	case "cargo":
		if strings.HasPrefix(line, "[") || strings.HasPrefix(line, "#") {
			return ""
		}
		name, _, found := strings.Cut(line, "=")
		if !found {
			return ""
		}
		name = strings.TrimSpace(name)
		switch name {
		case "", "name", "version", "edition", "authors", "description", "license":
			return ""
		}
		if strings.Contains(name, ".") {
			return ""
		}
		return name

	case "pip":
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "[") {
			return ""
		}
		line = strings.Trim(line, `",`)
		for _, sep := range []string{"==", ">=", "<=", "!=", "~=", ">", "<"} {
			if idx := strings.Index(line, sep); idx > 0 {
				return strings.TrimSpace(line[:idx])
			}
		}
		if !strings.ContainsAny(line, " =") {
			return line
		}

	case "gem":
		if rest, ok := strings.CutPrefix(line, "gem "); ok {
			name, _, _ := strings.Cut(rest, ",")
			return strings.Trim(name, `'" `)
		}
	}
	return ""
}
