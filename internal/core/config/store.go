package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/utils/errorutil"
)

// Manifest is the subset of package.json used to name build outputs.
type Manifest struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type Options struct {
	// ManifestPath defaults to package.json.
	ManifestPath string
	// ConfigPath is optional. When empty, mtbuild.yaml is read if present.
	ConfigPath string
	// DisableEnv turns off MTBUILD_* overrides.
	DisableEnv bool
}

// Store is the immutable configuration for one process.
type Store struct {
	fs       afero.Fs
	manifest Manifest
	config   Config
	tasks    map[models.TaskName]TaskConfig
}

// Load reads the manifest and build configuration from fs, which is
// rooted at the project directory.
func Load(fs afero.Fs, opts Options) (*Store, error) {
	if opts.ManifestPath == "" {
		opts.ManifestPath = DefaultManifestPath
	}

	manifest, err := loadManifest(fs, opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	cfg, err := loadBuildConfig(fs, opts)
	if err != nil {
		return nil, err
	}

	if err := render(&cfg, manifest); err != nil {
		return nil, errorutil.ConfigLoadError(err, "rendering templates")
	}

	s := &Store{
		fs:       fs,
		manifest: manifest,
		config:   cfg,
	}
	s.tasks = map[models.TaskName]TaskConfig{
		models.TaskBundleVerbose:    &s.config.Tasks.BundleVerbose,
		models.TaskBundleMinified:   &s.config.Tasks.BundleMinified,
		models.TaskBundleTests:      &s.config.Tasks.BundleTests,
		models.TaskExtractSourcemap: &s.config.Tasks.ExtractSourcemap,
		models.TaskLint:             &s.config.Tasks.Lint,
		models.TaskRunUnitTests:     &s.config.Tasks.RunUnitTests,
		models.TaskDocs:             &s.config.Tasks.Docs,
	}

	for _, name := range models.AllTasks {
		if err := s.tasks[name].Validate(); err != nil {
			return nil, errorutil.ConfigLoadError(err, "invalid configuration for %s", name)
		}
	}

	return s, nil
}

func loadManifest(fs afero.Fs, path string) (Manifest, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return Manifest{}, errorutil.ConfigLoadError(err, "reading manifest %s", path)
	}

	var m Manifest
	if err := v.Unmarshal(&m); err != nil {
		return Manifest{}, errorutil.ConfigLoadError(err, "decoding manifest %s", path)
	}
	if m.Name == "" || m.Version == "" {
		return Manifest{}, errorutil.ConfigLoadError(nil, "manifest %s must declare name and version", path)
	}
	return m, nil
}

func loadBuildConfig(fs afero.Fs, opts Options) (Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	if !opts.DisableEnv {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}

	path := opts.ConfigPath
	required := path != ""
	if !required {
		path = DefaultConfigPath
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return Config{}, errorutil.ConfigLoadError(err, "checking build config %s", path)
	}
	switch {
	case exists:
		if _, err := buildFileFormat(path); err != nil {
			return Config{}, errorutil.ConfigLoadError(err, "build config %s", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errorutil.ConfigLoadError(err, "reading build config %s", path)
		}
	case required:
		return Config{}, errorutil.ConfigLoadError(os.ErrNotExist, "build config %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return Config{}, errorutil.ConfigLoadError(err, "decoding build config")
	}

	cfg.Aliases = defaultAliases()
	if exists {
		declared, err := loadAliases(fs, path)
		if err != nil {
			return Config{}, errorutil.ConfigLoadError(err, "reading aliases from %s", path)
		}
		for name, members := range declared {
			cfg.Aliases[name] = members
		}
	}
	return cfg, nil
}

func buildFileFormat(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "yaml", "yml", "json":
		return ext, nil
	}
	return "", fmt.Errorf("unsupported format %q, use YAML or JSON", ext)
}

// loadAliases decodes the aliases section of the build file directly.
// Viper lowercases keys and splits them on dots, so alias names would not
// survive a round trip through it.
func loadAliases(fs afero.Fs, path string) (map[string][]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	var section struct {
		Aliases map[string][]string `yaml:"aliases" json:"aliases"`
	}
	format, err := buildFileFormat(path)
	if err != nil {
		return nil, err
	}
	if format == "json" {
		err = json.Unmarshal(data, &section)
	} else {
		err = yaml.Unmarshal(data, &section)
	}
	if err != nil {
		return nil, err
	}

	for name := range section.Aliases {
		if name == "" || strings.ContainsAny(name, " \t\r\n") {
			return nil, fmt.Errorf("invalid alias name %q", name)
		}
	}
	return section.Aliases, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsToDurationHook reads a bare number in a duration field as seconds,
// so "duration: 3" means three seconds. Values with a unit suffix are left
// to the standard duration hook.
func secondsToDurationHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType || from == durationType {
		return data, nil
	}

	var secs float64
	value := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		secs = float64(value.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		secs = float64(value.Uint())
	case reflect.Float32, reflect.Float64:
		secs = value.Float()
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(value.String()), 64)
		if err != nil {
			return data, nil
		}
		secs = f
	default:
		return data, nil
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// render expands {{.Name}} and {{.Version}} in output paths and defines.
func render(cfg *Config, m Manifest) error {
	var errs []error
	expand := func(s string) string {
		out, err := renderString(s, m)
		if err != nil {
			errs = append(errs, err)
			return s
		}
		return out
	}

	for _, b := range []*BundleConfig{&cfg.Tasks.BundleVerbose, &cfg.Tasks.BundleMinified, &cfg.Tasks.BundleTests} {
		b.Output = expand(b.Output)
		for i := range b.Define {
			b.Define[i] = expand(b.Define[i])
		}
	}
	cfg.Tasks.ExtractSourcemap.Input = expand(cfg.Tasks.ExtractSourcemap.Input)
	cfg.Tasks.ExtractSourcemap.Output = expand(cfg.Tasks.ExtractSourcemap.Output)
	for i := range cfg.Tasks.Docs.Mappings {
		cfg.Tasks.Docs.Mappings[i].Dest = expand(cfg.Tasks.Docs.Mappings[i].Dest)
	}
	cfg.Notify.Title = expand(cfg.Notify.Title)

	return errors.Join(errs...)
}

func renderString(s string, m Manifest) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	tmpl, err := template.New("path").Option("missingkey=error").Parse(s)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", s, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("executing %q: %w", s, err)
	}
	return buf.String(), nil
}

// Get returns a copy of the configuration of a primitive task. Changing
// it does not affect the store.
func (s *Store) Get(name models.TaskName) (TaskConfig, error) {
	tc, ok := s.tasks[name]
	if !ok {
		return nil, errorutil.UnknownTaskError(string(name))
	}
	return tc.(cloner).clone(), nil
}

func (s *Store) Manifest() Manifest { return s.manifest }

func (s *Store) Fs() afero.Fs { return s.fs }

// Alias returns the members of an alias and whether name is one.
func (s *Store) Alias(name string) ([]string, bool) {
	members, ok := s.config.Aliases[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(members))
	copy(out, members)
	return out, true
}

// AliasNames returns all alias names, sorted.
func (s *Store) AliasNames() []string {
	names := make([]string, 0, len(s.config.Aliases))
	for name := range s.config.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) Watch() WatchConfig {
	w := s.config.Watch
	w.Files = cloneStrings(w.Files)
	w.Tasks = cloneStrings(w.Tasks)
	return w
}

func (s *Store) Notify() NotifyConfig { return s.config.Notify }

func (s *Store) Telemetry() TelemetryConfig { return s.config.Telemetry }
