package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/revgate/internal/review"
)

// Config represents the revgate configuration.
type Config struct {
	Mode          string            `json:"mode"`
	Format        string            `json:"format"`
	Concurrency   int               `json:"concurrency,omitempty"`
	RunDeadline   string            `json:"runDeadline,omitempty"`
	PartialReport bool              `json:"partialReport,omitempty"`
	Manifest      string            `json:"manifest"`
	Policy        string            `json:"policy,omitempty"`
	Allow         []string          `json:"allow,omitempty"`
	Deny          []string          `json:"deny,omitempty"`
	Timeouts      map[string]string `json:"timeouts,omitempty"`
	Privacy       PrivacyConfig     `json:"privacy"`
}

// PrivacyConfig controls what external reviewers get to see.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty"`
}

// Formats lists the report formats the CLI can write.
var Formats = []string{"text", "json", "markdown", "sarif"}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Mode:     string(review.ModeStandard),
		Format:   "text",
		Manifest: ".revgate.yaml",
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// Validate checks field values that the merge steps cannot.
func (c Config) Validate() error {
	if _, err := review.ParseMode(c.Mode); err != nil {
		return err
	}
	if !validFormat(c.Format) {
		return fmt.Errorf("unknown format %q (want one of %s)", c.Format, strings.Join(Formats, ", "))
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative: %d", c.Concurrency)
	}
	if _, err := c.Deadline(); err != nil {
		return err
	}
	if _, err := c.ModuleTimeouts(); err != nil {
		return err
	}
	return nil
}

// Deadline parses RunDeadline. An empty value means no deadline.
func (c Config) Deadline() (time.Duration, error) {
	if c.RunDeadline == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RunDeadline)
	if err != nil {
		return 0, fmt.Errorf("runDeadline: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("runDeadline must not be negative: %s", c.RunDeadline)
	}
	return d, nil
}

// ModuleTimeouts parses the per-module timeout table.
func (c Config) ModuleTimeouts() (map[string]time.Duration, error) {
	out := make(map[string]time.Duration, len(c.Timeouts))
	for id, v := range c.Timeouts {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("timeout for %s: %w", id, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("timeout for %s must be positive: %s", id, v)
		}
		out[id] = d
	}
	return out, nil
}

func validFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}

// ConfigDir returns the platform-appropriate config directory for revgate.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "revgate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "revgate"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "revgate"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "revgate"), nil
	default:
		return filepath.Join(home, ".config", "revgate"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads the config file over the defaults. Keys the file omits keep
// their default value; a missing file yields Default().
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags; only flags the user set belong in it.
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	for k, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(&cfg, k, v); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var envKeys = map[string]string{
	"REVGATE_MODE":         "mode",
	"REVGATE_FORMAT":       "format",
	"REVGATE_CONCURRENCY":  "concurrency",
	"REVGATE_MANIFEST":     "manifest",
	"REVGATE_POLICY":       "policy",
	"REVGATE_RUN_DEADLINE": "runDeadline",
}

func mergeEnv(cfg *Config) error {
	for env, key := range envKeys {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "mode":
		if _, err := review.ParseMode(value); err != nil {
			return err
		}
		cfg.Mode = value
	case "format":
		if !validFormat(value) {
			return fmt.Errorf("unknown format %q (want one of %s)", value, strings.Join(Formats, ", "))
		}
		cfg.Format = value
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("concurrency must be an integer: %w", err)
		}
		cfg.Concurrency = n
	case "runDeadline":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("runDeadline must be a duration: %w", err)
		}
		cfg.RunDeadline = value
	case "partialReport":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("partialReport must be a boolean: %w", err)
		}
		cfg.PartialReport = b
	case "manifest":
		cfg.Manifest = value
	case "policy":
		cfg.Policy = value
	case "allow":
		cfg.Allow = splitList(value)
	case "deny":
		cfg.Deny = splitList(value)
	case "redactSecrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("redactSecrets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSecrets = b
	case "redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	default:
		if id, ok := strings.CutPrefix(key, "timeouts."); ok && id != "" {
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("%s must be a duration: %w", key, err)
			}
			if cfg.Timeouts == nil {
				cfg.Timeouts = make(map[string]string)
			}
			cfg.Timeouts[id] = value
			return nil
		}
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
