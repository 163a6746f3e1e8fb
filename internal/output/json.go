package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/revgate/internal/review"
)

// JSONWriter outputs the full report, the machine-readable contract for
// downstream tooling. Code in summaries and fixes is written unescaped.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("writing JSON report: %w", err)
	}
	return nil
}
