package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/tree"
	"github.com/robert-at-pretension-io/vhdl-ilagen/internal/vhdl"
)

// configValidate checks struct tags. "vhdl_ident" is registered in init().
var configValidate *validator.Validate

var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("vhdl_ident", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return identPattern.MatchString(s) && !strings.Contains(s, "__") && !strings.HasSuffix(s, "_")
	})
}

// Config is the top-level configuration for ilagen
type Config struct {
	// Width is the operand width n when no --width flag is given
	Width int `json:"width,omitempty" yaml:"width,omitempty" validate:"omitempty,gt=16,lte=65536"`

	// Widths generates several cores in one run; it wins over Width
	Widths []int `json:"widths,omitempty" yaml:"widths,omitempty" validate:"omitempty,dive,gt=16,lte=65536"`

	// Style is "generate" (for-generate loops) or "unrolled"
	Style string `json:"style,omitempty" yaml:"style,omitempty" validate:"oneof=generate unrolled"`

	// OutputDir receives the .vhd files (relative to the config file)
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	CoreName    string `json:"core_name,omitempty" yaml:"core_name,omitempty" validate:"required,vhdl_ident"`
	WrapperName string `json:"wrapper_name,omitempty" yaml:"wrapper_name,omitempty" validate:"required,vhdl_ident"`
	WrapperTag  string `json:"wrapper_tag,omitempty" yaml:"wrapper_tag,omitempty" validate:"omitempty,alphanum"`

	// Header holds the attribution lines of both file banners
	Header vhdl.Header `json:"header,omitempty" yaml:"header,omitempty"`

	// Checks toggles the pre-write pipeline checks
	Checks ChecksConfig `json:"checks,omitempty" yaml:"checks,omitempty"`

	// PolicyDir holds extra .rego rules added to package ilagen.rules
	PolicyDir string `json:"policy_dir,omitempty" yaml:"policy_dir,omitempty"`

	// TimingPath appends per-stage timings as JSONL, creating the file if needed
	TimingPath string `json:"timing_path,omitempty" yaml:"timing_path,omitempty"`

	// MetricsPath writes a Prometheus textfile after each run
	MetricsPath string `json:"metrics_path,omitempty" yaml:"metrics_path,omitempty"`

	// Manifest writes <core>_<n>.manifest.json next to the artifacts
	Manifest *bool `json:"manifest,omitempty" yaml:"manifest,omitempty"`

	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// path is the file the config was loaded from, empty for defaults
	path string
}

// ChecksConfig toggles each pipeline check. A nil field means enabled.
type ChecksConfig struct {
	Schema   *bool `json:"schema,omitempty" yaml:"schema,omitempty"`
	Rules    *bool `json:"rules,omitempty" yaml:"rules,omitempty"`
	Readback *bool `json:"readback,omitempty" yaml:"readback,omitempty"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" validate:"oneof=debug info warn error"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" validate:"oneof=text json"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	opts := vhdl.DefaultOptions()
	return &Config{
		Style:       string(opts.Style),
		OutputDir:   ".",
		CoreName:    opts.CoreName,
		WrapperName: opts.WrapperName,
		WrapperTag:  opts.WrapperTag,
		Header:      opts.Header,
		Checks: ChecksConfig{
			Schema:   boolPtr(true),
			Rules:    boolPtr(true),
			Readback: boolPtr(true),
		},
		Manifest: boolPtr(true),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

func enabled(v *bool) bool {
	return v == nil || *v
}

// Names of the config files Load looks for, in order.
var fileNames = []string{"ilagen.json", ".ilagen.json", "ilagen.yaml", "ilagen.yml"}

// Load finds and loads the configuration file
// Search order:
//  1. ./ilagen.json, ./.ilagen.json, ./ilagen.yaml, ./ilagen.yml
//  2. the same names under rootPath (if different from cwd)
//  3. ~/.config/ilagen/config.json, ~/.config/ilagen/config.yaml
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range fileNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range fileNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "ilagen", "config.json"),
			filepath.Join(home, ".config", "ilagen", "config.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file. The decoder is picked
// from the extension: .yaml/.yml use YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.path = path

	return &cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Style == "" {
		c.Style = def.Style
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.CoreName == "" {
		c.CoreName = def.CoreName
	}
	if c.WrapperName == "" {
		c.WrapperName = def.WrapperName
	}
	// an empty wrapper tag is meaningful (no tag in the file name), so it is
	// only defaulted together with the wrapper name
	if c.WrapperName == def.WrapperName && c.WrapperTag == "" {
		c.WrapperTag = def.WrapperTag
	}
	if c.Header == (vhdl.Header{}) {
		c.Header = def.Header
	}
	if c.Checks.Schema == nil {
		c.Checks.Schema = boolPtr(true)
	}
	if c.Checks.Rules == nil {
		c.Checks.Rules = boolPtr(true)
	}
	if c.Checks.Readback == nil {
		c.Checks.Readback = boolPtr(true)
	}
	if c.Manifest == nil {
		c.Manifest = boolPtr(true)
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

// Validate checks field constraints and reports every failing field.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		if err := c.ToOptions().CheckNames(c.Width); err != nil {
			return fmt.Errorf("invalid config: Config.WrapperName: %w", err)
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s: failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param())
		}
		msgs = append(msgs, fmt.Sprintf("%s, got %v", msg, fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Save writes the configuration to a file, as YAML or JSON by extension
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// WidthList returns the widths to generate: Widths without repeats, else
// Width, else none.
func (c *Config) WidthList() []int {
	if len(c.Widths) > 0 {
		seen := make(map[int]bool, len(c.Widths))
		var out []int
		for _, n := range c.Widths {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
		return out
	}
	if c.Width > 0 {
		return []int{c.Width}
	}
	return nil
}

// SchemaCheck, RulesCheck and ReadbackCheck report whether a check runs.
func (c *Config) SchemaCheck() bool   { return enabled(c.Checks.Schema) }
func (c *Config) RulesCheck() bool    { return enabled(c.Checks.Rules) }
func (c *Config) ReadbackCheck() bool { return enabled(c.Checks.Readback) }

// WriteManifest reports whether the manifest is written with the artifacts.
func (c *Config) WriteManifest() bool { return enabled(c.Manifest) }

// ToOptions converts the naming and layout fields to render options.
func (c *Config) ToOptions() vhdl.Options {
	return vhdl.Options{
		CoreName:    c.CoreName,
		WrapperName: c.WrapperName,
		WrapperTag:  c.WrapperTag,
		Style:       vhdl.Style(c.Style),
		Header:      c.Header,
	}
}

// CheckWidth applies the same bounds as the tree planner, for flag values
// that never went through Validate.
func CheckWidth(n int) error {
	if n <= tree.MinWidth {
		return fmt.Errorf("width %d: %w", n, tree.ErrWidthTooSmall)
	}
	if n > tree.MaxWidth {
		return fmt.Errorf("width %d: %w", n, tree.ErrWidthTooLarge)
	}
	return nil
}
