package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/revgate/internal/classify"
	"github.com/dshills/revgate/internal/gate"
	"github.com/dshills/revgate/internal/registry"
	"github.com/dshills/revgate/internal/review"
	"github.com/dshills/revgate/internal/reviewers"
)

// Manifest is the per-repository review setup, usually .revgate.yaml at the
// repository root.
//
//	builtins: true
//	disable: [dependencies]
//	securityDomains: [auth-policy, payments]
//	rules:
//	  - {kind: contains, pattern: /payments/, domain: payments}
//	modules:
//	  - id: payments-review
//	    domains: [payments]
//	    cost: deep
//	    timeout: 5m
//	    command: [./scripts/review-payments.sh]
type Manifest struct {
	// Builtins enables the built-in reviewers. Unset means enabled.
	Builtins *bool `yaml:"builtins,omitempty"`
	// Disable drops built-in modules by id.
	Disable []string `yaml:"disable,omitempty"`
	// ReplaceRules discards the default rule table instead of extending it.
	ReplaceRules    bool            `yaml:"replaceRules,omitempty"`
	Rules           []classify.Rule `yaml:"rules,omitempty"`
	SecurityDomains []review.Domain `yaml:"securityDomains,omitempty"`
	Modules         []ModuleSpec    `yaml:"modules,omitempty"`

	// dir resolves relative command paths. Empty means the working directory.
	dir string
}

// ModuleSpec declares an external command reviewer.
type ModuleSpec struct {
	ID          string          `yaml:"id"`
	Description string          `yaml:"description,omitempty"`
	Domains     []review.Domain `yaml:"domains"`
	Cost        registry.Cost   `yaml:"cost"`
	Timeout     string          `yaml:"timeout,omitempty"`
	Salvage     bool            `yaml:"salvage,omitempty"`
	Command     []string        `yaml:"command"`
	Env         []string        `yaml:"env,omitempty"`
	Dir         string          `yaml:"dir,omitempty"`
	Config      map[string]any  `yaml:"config,omitempty"`
}

// LoadManifest reads a manifest file. A missing file yields an empty
// manifest, which builds the default rules and the built-in reviewers.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes manifest YAML. Unknown keys are rejected so that a
// misspelt setting does not silently fall back to a default.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}

// BuiltinsEnabled reports whether the built-in reviewers are registered.
func (m Manifest) BuiltinsEnabled() bool {
	return m.Builtins == nil || *m.Builtins
}

// Build returns the classification rule table and the frozen module
// registry the manifest describes. Privacy settings apply to every external
// command reviewer.
func (m Manifest) Build(privacy PrivacyConfig) ([]classify.Rule, *registry.Registry, error) {
	rules := m.Rules
	if !m.ReplaceRules {
		rules = append(classify.DefaultRules(), m.Rules...)
	}
	if err := classify.ValidateRules(rules); err != nil {
		return nil, nil, fmt.Errorf("manifest rules: %w", err)
	}

	var modules []registry.Module
	if m.BuiltinsEnabled() {
		disabled := make(map[string]bool, len(m.Disable))
		for _, id := range m.Disable {
			disabled[id] = true
		}
		for _, b := range reviewers.Builtins() {
			if !disabled[b.ID] {
				modules = append(modules, b)
			}
		}
	}
	for i, spec := range m.Modules {
		mod, err := spec.module(m.dir, privacy)
		if err != nil {
			return nil, nil, fmt.Errorf("manifest module %d: %w", i, err)
		}
		modules = append(modules, mod)
	}

	reg, err := registry.New(modules...)
	if err != nil {
		return nil, nil, fmt.Errorf("manifest modules: %w", err)
	}
	return rules, reg, nil
}

// Policy adds the manifest's security domains to base, or to the default
// security domains when base names none. base is not modified.
func (m Manifest) Policy(base *gate.Policy) *gate.Policy {
	if len(m.SecurityDomains) == 0 {
		return base
	}
	var p gate.Policy
	if base != nil {
		p = *base
	}
	current := p.SecurityDomains
	if len(current) == 0 {
		current = gate.DefaultSecurityDomains
	}
	seen := make(map[review.Domain]bool)
	var domains []review.Domain
	for _, d := range append(append([]review.Domain(nil), current...), m.SecurityDomains...) {
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	p.SecurityDomains = domains
	return &p
}

func (s ModuleSpec) module(dir string, privacy PrivacyConfig) (registry.Module, error) {
	if len(s.Command) == 0 {
		return registry.Module{}, fmt.Errorf("module %q has no command", s.ID)
	}
	var timeout time.Duration
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return registry.Module{}, fmt.Errorf("module %q timeout: %w", s.ID, err)
		}
		timeout = d
	}
	cost := s.Cost
	if cost == "" {
		cost = registry.CostStandard
	}

	workDir := s.Dir
	if workDir == "" {
		workDir = dir
	} else if !filepath.IsAbs(workDir) && dir != "" {
		workDir = filepath.Join(dir, workDir)
	}
	path := s.Command[0]
	if filepath.Base(path) != path && !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}

	mod := registry.Module{
		ID:          s.ID,
		Description: s.Description,
		Domains:     s.Domains,
		Cost:        cost,
		Timeout:     timeout,
		Salvage:     s.Salvage,
		Config:      registry.Config(s.Config),
		Reviewer: reviewers.Command{
			Path:        path,
			Args:        s.Command[1:],
			Env:         s.Env,
			Dir:         workDir,
			Redact:      privacy.RedactSecrets,
			RedactPaths: privacy.RedactPaths,
		},
	}
	if mod.Description == "" {
		mod.Description = "external command " + s.Command[0]
	}
	if err := mod.Validate(); err != nil {
		return registry.Module{}, err
	}
	return mod, nil
}
