package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/revgate/internal/review"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *review.Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is empty.
func WriteReport(report *review.Report, format, outPath string, stdout io.Writer) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = stdout
	}

	return writer.Write(w, report)
}

// priorityLabel is the human name for each priority level.
func priorityLabel(p review.Priority) string {
	switch p {
	case review.P0:
		return "blocking"
	case review.P1:
		return "must fix"
	case review.P2:
		return "should fix"
	case review.P3:
		return "suggestion"
	default:
		return "unknown"
	}
}

func location(f review.Finding) string {
	if f.Lines == nil {
		return f.File
	}
	if f.Lines.Start == f.Lines.End {
		return fmt.Sprintf("%s:%d", f.File, f.Lines.Start)
	}
	return fmt.Sprintf("%s:%d-%d", f.File, f.Lines.Start, f.Lines.End)
}

// groupByPriority buckets findings by priority. The report's finding order
// is already by priority, so each bucket keeps the report order.
func groupByPriority(findings []review.Finding) map[review.Priority][]review.Finding {
	m := make(map[review.Priority][]review.Finding)
	for _, f := range findings {
		m[f.Priority] = append(m[f.Priority], f)
	}
	return m
}
