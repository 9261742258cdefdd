package config

import (
	"fmt"
	"strings"
	"time"
)

// TaskConfig is the typed configuration of one primitive task.
type TaskConfig interface {
	Validate() error
}

// cloner is implemented by every TaskConfig the store owns. Get hands out
// clones so callers never share the store's slices.
type cloner interface {
	clone() TaskConfig
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

type Config struct {
	Aliases   map[string][]string `mapstructure:"-"`
	Tasks     TasksConfig         `mapstructure:"tasks"`
	Watch     WatchConfig         `mapstructure:"watch"`
	Notify    NotifyConfig        `mapstructure:"notify"`
	Telemetry TelemetryConfig     `mapstructure:"telemetry"`
}

type TasksConfig struct {
	BundleVerbose    BundleConfig    `mapstructure:"bundle-verbose"`
	BundleMinified   BundleConfig    `mapstructure:"bundle-minified"`
	BundleTests      BundleConfig    `mapstructure:"bundle-tests"`
	ExtractSourcemap SourceMapConfig `mapstructure:"extract-sourcemap"`
	Lint             LintConfig      `mapstructure:"lint"`
	RunUnitTests     UnitTestConfig  `mapstructure:"run-unit-tests"`
	Docs             DocsConfig      `mapstructure:"docs"`
}

// BundleConfig drives one esbuild invocation. Define entries are
// KEY=VALUE pairs substituted at bundle time.
type BundleConfig struct {
	Sources   []string `mapstructure:"sources"`
	Output    string   `mapstructure:"output"`
	SourceMap bool     `mapstructure:"source_map"`
	Minify    bool     `mapstructure:"minify"`
	Target    string   `mapstructure:"target"`
	Define    []string `mapstructure:"define"`
}

func (c *BundleConfig) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("bundle: no sources declared")
	}
	if c.Output == "" {
		return fmt.Errorf("bundle: output is required")
	}
	for _, d := range c.Define {
		if !strings.Contains(d, "=") {
			return fmt.Errorf("bundle: define %q is not KEY=VALUE", d)
		}
	}
	return nil
}

type SourceMapConfig struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
}

func (c *BundleConfig) clone() TaskConfig {
	out := *c
	out.Sources = cloneStrings(c.Sources)
	out.Define = cloneStrings(c.Define)
	return &out
}

func (c *SourceMapConfig) Validate() error {
	if c.Input == "" || c.Output == "" {
		return fmt.Errorf("extract-sourcemap: input and output are required")
	}
	if c.Input == c.Output {
		return fmt.Errorf("extract-sourcemap: input and output must differ")
	}
	return nil
}

func (c *SourceMapConfig) clone() TaskConfig {
	out := *c
	return &out
}

type LintRules struct {
	TrailingWhitespace   bool `mapstructure:"trailing_whitespace"`
	NoTabs               bool `mapstructure:"no_tabs"`
	NoSemicolons         bool `mapstructure:"no_semicolons"`
	NoMultipleBlankLines bool `mapstructure:"no_multiple_blank_lines"`
	FinalNewline         bool `mapstructure:"final_newline"`
}

type LintConfig struct {
	Sources     []string  `mapstructure:"sources"`
	Rules       LintRules `mapstructure:"rules"`
	FailOnError bool      `mapstructure:"fail_on_error"`
}

func (c *LintConfig) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("lint: no sources declared")
	}
	return nil
}

func (c *LintConfig) clone() TaskConfig {
	out := *c
	out.Sources = cloneStrings(c.Sources)
	return &out
}

type UnitTestConfig struct {
	Files   []string `mapstructure:"files"`
	Command []string `mapstructure:"command"`
}

func (c *UnitTestConfig) Validate() error {
	if len(c.Command) == 0 || c.Command[0] == "" {
		return fmt.Errorf("run-unit-tests: command is required")
	}
	return nil
}

func (c *UnitTestConfig) clone() TaskConfig {
	out := *c
	out.Files = cloneStrings(c.Files)
	out.Command = cloneStrings(c.Command)
	return &out
}

type DocMapping struct {
	Dest    string   `mapstructure:"dest"`
	Sources []string `mapstructure:"sources"`
}

// DocsConfig maps each destination to its ordered sources. Separator is
// written between the transformed sources of one destination.
type DocsConfig struct {
	Mappings  []DocMapping `mapstructure:"mappings"`
	Separator string       `mapstructure:"separator"`
}

func (c *DocsConfig) Validate() error {
	for i, m := range c.Mappings {
		if m.Dest == "" {
			return fmt.Errorf("docs: mapping %d has no destination", i)
		}
		if len(m.Sources) == 0 {
			return fmt.Errorf("docs: %s has no sources", m.Dest)
		}
	}
	return nil
}

func (c *DocsConfig) clone() TaskConfig {
	out := *c
	if c.Mappings != nil {
		out.Mappings = make([]DocMapping, len(c.Mappings))
		for i, m := range c.Mappings {
			out.Mappings[i] = DocMapping{Dest: m.Dest, Sources: cloneStrings(m.Sources)}
		}
	}
	return &out
}

type WatchConfig struct {
	Files    []string      `mapstructure:"files"`
	Tasks    []string      `mapstructure:"tasks"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type NotifyConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxWarnings int           `mapstructure:"max_warnings"`
	Title       string        `mapstructure:"title"`
	Success     bool          `mapstructure:"success"`
	Duration    time.Duration `mapstructure:"duration"`
	Backend     string        `mapstructure:"backend"`
	WebhookURL  string        `mapstructure:"webhook_url"`
}

type TelemetryConfig struct {
	Enabled       bool                `mapstructure:"enabled"`
	ServiceName   string              `mapstructure:"service_name"`
	OTELCollector OTELCollectorConfig `mapstructure:"otel_collector"`
}

type OTELCollectorConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}
