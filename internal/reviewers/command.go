package reviewers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dshills/revgate/internal/changeset"
	"github.com/dshills/revgate/internal/redact"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
)

// replySchemaJSON is the contract an external reviewer's stdout must meet.
const replySchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["findings"],
  "properties": {
    "partial": {"type": "boolean"},
    "diagnostics": {"type": "array", "items": {"type": "string"}},
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["priority", "category", "file", "summary"],
        "properties": {
          "priority": {"type": "string", "enum": ["P0", "P1", "P2", "P3"]},
          "category": {"type": "string", "minLength": 1},
          "file": {"type": "string", "minLength": 1},
          "summary": {"type": "string", "minLength": 1},
          "fix": {"type": "string"},
          "lines": {
            "type": "object",
            "required": ["start", "end"],
            "properties": {
              "start": {"type": "integer", "minimum": 1},
              "end": {"type": "integer", "minimum": 1}
            }
          }
        }
      }
    }
  }
}`

var replySchemaLoader = gojsonschema.NewStringLoader(replySchemaJSON)

// maxStderr bounds how much of a failing command's stderr is kept.
const maxStderr = 2048

// Command runs an external executable as a reviewer. The request is written
// to stdin as JSON; stdout must be a JSON reply matching the reply schema.
// A non-zero exit, unparseable output, or a schema violation is an error,
// which the orchestrator records as a module failure.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
	// Redact scrubs secrets from file content before it leaves the process.
	Redact bool
	// RedactPaths withholds the content of files matching these globs.
	RedactPaths []string
}

type commandFile struct {
	Path       string                   `json:"path"`
	OldPath    string                   `json:"oldPath,omitempty"`
	ChangeType changeset.ChangeType     `json:"changeType"`
	Content    string                   `json:"content,omitempty"`
	Added      []changeset.NumberedLine `json:"added,omitempty"`
}

type commandRequest struct {
	RunID   string          `json:"runId"`
	Domains []review.Domain `json:"domains"`
	Config  registry.Config `json:"config,omitempty"`
	Files   []commandFile   `json:"files"`
}

type commandReply struct {
	Partial     bool             `json:"partial"`
	Diagnostics []string         `json:"diagnostics"`
	Findings    []review.Finding `json:"findings"`
}

// Review implements registry.Reviewer.
func (c Command) Review(ctx context.Context, req registry.Request) (registry.Outcome, error) {
	if c.Path == "" {
		return registry.Outcome{}, fmt.Errorf("command reviewer: no executable configured")
	}
	payload, err := json.Marshal(c.request(req))
	if err != nil {
		return registry.Outcome{}, fmt.Errorf("encoding request: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return registry.Outcome{}, ctxErr
		}
		return registry.Outcome{}, fmt.Errorf("running %s: %w%s", c.Path, err, stderrSuffix(stderr.String()))
	}

	reply, err := decodeReply(stdout.Bytes())
	if err != nil {
		return registry.Outcome{}, fmt.Errorf("%s: %w", c.Path, err)
	}
	return registry.Outcome{
		Findings:    reply.Findings,
		Partial:     reply.Partial,
		Diagnostics: reply.Diagnostics,
	}, nil
}

func (c Command) request(req registry.Request) commandRequest {
	out := commandRequest{
		RunID:   req.RunID,
		Domains: req.Domains,
		Config:  req.Config,
		Files:   make([]commandFile, 0, len(req.Files)),
	}
	for _, f := range req.Files {
		cf := commandFile{Path: f.Path, OldPath: f.OldPath, ChangeType: f.Type}
		if !f.Binary {
			cf.Content = f.Content
			cf.Added = addedLines(f)
		}
		if c.Redact || len(c.RedactPaths) > 0 {
			cf.Content = c.scrub(f.Path, cf.Content)
			for i := range cf.Added {
				cf.Added[i].Text = c.scrub(f.Path, cf.Added[i].Text)
			}
		}
		out.Files = append(out.Files, cf)
	}
	return out
}

func (c Command) scrub(path, text string) string {
	if text == "" {
		return text
	}
	if c.Redact || redact.ShouldRedactPath(path, c.RedactPaths) {
		return redact.Content(text, path, c.RedactPaths)
	}
	return text
}

func decodeReply(data []byte) (commandReply, error) {
	var reply commandReply
	if len(bytes.TrimSpace(data)) == 0 {
		return reply, fmt.Errorf("empty reply")
	}
	result, err := gojsonschema.Validate(replySchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return reply, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return reply, fmt.Errorf("reply violates schema: %s", strings.Join(msgs, "; "))
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return reply, fmt.Errorf("decoding reply: %w", err)
	}
	return reply, nil
}

func stderrSuffix(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > maxStderr {
		s = s[:maxStderr] + "..."
	}
	return ": " + s
}
