package reviewers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/redact"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
)

// SecretsID is the id of the secrets reviewer.
const SecretsID = "secrets"

// Secrets flags credentials committed in added lines. Every hit is P0: a
// leaked secret has to be rotated whatever else the change does.
func Secrets() registry.Module {
	return registry.Module{
		ID:          SecretsID,
		Description: "hardcoded credentials and private keys in added lines",
		Domains:     append(append([]review.Domain(nil), codeDomains...), configDomains...),
		Cost:        registry.CostFast,
		Salvage:     true,
		Builtin:     true,
		Reviewer:    registry.ReviewerFunc(reviewSecrets),
	}
}

func reviewSecrets(ctx context.Context, req registry.Request) (registry.Outcome, error) {
	return scanAdded(ctx, req, func(path string, l changeset.NumberedLine, emit func(review.Finding)) {
		kinds := redact.Find(l.Text)
		if len(kinds) == 0 {
			return
		}
		emit(review.Finding{
			Priority: review.P0,
			Category: review.CategorySecurity,
			File:     path,
			Lines:    at(l.Number),
			Summary:  fmt.Sprintf("Possible %s committed: %s", strings.Join(kinds, ", "), excerpt(redact.Secrets(l.Text))),
			Fix:      "Remove the value, load it from the environment or a secret store, and rotate it.",
		})
	})
}
