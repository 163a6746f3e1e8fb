package output

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/revgate/internal/review"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json"

// SARIFWriter outputs findings in SARIF v2.1.0 format.
type SARIFWriter struct{}

func (s *SARIFWriter) Write(w io.Writer, report *review.Report) error {
	sarif := buildSARIF(report)
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling SARIF: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing SARIF: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// SARIF schema types (v2.1.0)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations"`
	Results     []sarifResult     `json:"results"`
	Properties  sarifRunProps     `json:"properties"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifInvocation struct {
	ExecutionSuccessful bool                `json:"executionSuccessful"`
	Notifications       []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifRunProps struct {
	RunID    string `json:"runId,omitempty"`
	Verdict  string `json:"verdict"`
	GateRule string `json:"gateRule"`
}

type sarifResult struct {
	RuleID     string           `json:"ruleId"`
	Level      string           `json:"level"`
	Message    sarifMessage     `json:"message"`
	Locations  []sarifLocation  `json:"locations"`
	Fixes      []sarifFix       `json:"fixes,omitempty"`
	Properties sarifResultProps `json:"properties"`
}

type sarifResultProps struct {
	Priority   string   `json:"priority"`
	Provenance []string `json:"provenance"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

type sarifFix struct {
	Description sarifMessage `json:"description"`
}

func buildSARIF(report *review.Report) sarifLog {
	var rules []sarifRule
	seen := make(map[string]bool)
	results := make([]sarifResult, 0, len(report.Findings))

	for _, f := range report.Findings {
		ruleID := generateRuleID(f)
		if !seen[ruleID] {
			seen[ruleID] = true
			rules = append(rules, sarifRule{
				ID:               ruleID,
				Name:             string(f.Category),
				ShortDescription: sarifMessage{Text: f.Summary},
				DefaultConfig:    sarifDefaultConfig{Level: priorityToLevel(f.Priority)},
			})
		}

		loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{ArtifactLocation: sarifArtifactLocation{URI: f.File}}}
		if f.Lines != nil {
			loc.PhysicalLocation.Region = &sarifRegion{StartLine: f.Lines.Start, EndLine: f.Lines.End}
		}
		result := sarifResult{
			RuleID:    ruleID,
			Level:     priorityToLevel(f.Priority),
			Message:   sarifMessage{Text: f.Summary},
			Locations: []sarifLocation{loc},
			Properties: sarifResultProps{
				Priority:   string(f.Priority),
				Provenance: f.Provenance,
			},
		}
		if f.Fix != "" {
			result.Fixes = append(result.Fixes, sarifFix{Description: sarifMessage{Text: f.Fix}})
		}
		results = append(results, result)
	}

	inv := sarifInvocation{ExecutionSuccessful: !report.Partial}
	for _, res := range report.Problems() {
		text := fmt.Sprintf("module %s: %s", res.ModuleID, res.Status)
		if len(res.Diagnostics) > 0 {
			text += ": " + res.Diagnostics[0]
		}
		inv.Notifications = append(inv.Notifications, sarifNotification{
			Level:      "warning",
			Message:    sarifMessage{Text: text},
			Properties: map[string]string{"moduleId": res.ModuleID, "status": string(res.Status)},
		})
	}
	for _, cov := range report.Coverage {
		if cov.State == review.CoverageFull {
			continue
		}
		inv.Notifications = append(inv.Notifications, sarifNotification{
			Level:      "warning",
			Message:    sarifMessage{Text: fmt.Sprintf("domain %s coverage is %s", cov.Domain, cov.State)},
			Properties: map[string]string{"domain": string(cov.Domain), "coverage": string(cov.State)},
		})
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  sarifSchema,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "revgate",
						Version:        report.Version,
						InformationURI: "https://github.com/dshills/revgate",
						Rules:          rules,
					},
				},
				Invocations: []sarifInvocation{inv},
				Results:     results,
				Properties: sarifRunProps{
					RunID:    report.RunID,
					Verdict:  string(report.Decision.Verdict),
					GateRule: report.Decision.Rule,
				},
			},
		},
	}
}

// priorityToLevel maps a finding priority to a SARIF level.
func priorityToLevel(p review.Priority) string {
	switch p {
	case review.P0, review.P1:
		return "error"
	case review.P2:
		return "warning"
	default:
		return "note"
	}
}

// generateRuleID creates a stable rule ID from category + summary.
func generateRuleID(f review.Finding) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s/%s", f.Category, f.Summary)))
	return fmt.Sprintf("revgate/%s/%x", f.Category, h[:4])
}
