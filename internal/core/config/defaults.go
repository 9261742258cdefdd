package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultManifestPath = "package.json"
	DefaultConfigPath   = "mtbuild.yaml"
	EnvPrefix           = "MTBUILD"

	libSources  = "lib/*.js"
	testSources = "test/*.js"
)

// defaultAliases returns a fresh copy of the built-in aliases. Aliases
// declared in the build file are merged over it by name.
func defaultAliases() map[string][]string {
	return map[string][]string{
		"browser": {"bundle-verbose", "bundle-minified", "extract-sourcemap"},
		"test":    {"lint", "run-unit-tests"},
		"default": {"browser", "test"},
	}
}

// setDefaults registers the built-in task table. Durations given as bare
// numbers are read as seconds. Every value here can be
// overridden from the build file or MTBUILD_* environment variables.
func setDefaults(v *viper.Viper) {
	// Keys are lowercased by viper, so defines are kept as strings.
	versionDefine := []string{`__VERSION__={{printf "%q" .Version}}`}

	v.SetDefault("tasks.bundle-verbose.sources", []string{libSources})
	v.SetDefault("tasks.bundle-verbose.output", "target/{{.Name}}.js")
	v.SetDefault("tasks.bundle-verbose.source_map", true)
	v.SetDefault("tasks.bundle-verbose.minify", false)
	v.SetDefault("tasks.bundle-verbose.target", "es2015")
	v.SetDefault("tasks.bundle-verbose.define", versionDefine)

	v.SetDefault("tasks.bundle-minified.sources", []string{libSources})
	v.SetDefault("tasks.bundle-minified.output", "target/{{.Name}}.min.js")
	v.SetDefault("tasks.bundle-minified.source_map", true)
	v.SetDefault("tasks.bundle-minified.minify", true)
	v.SetDefault("tasks.bundle-minified.target", "es2015")
	v.SetDefault("tasks.bundle-minified.define", versionDefine)

	v.SetDefault("tasks.bundle-tests.sources", []string{testSources})
	v.SetDefault("tasks.bundle-tests.output", "test/tests_browser.js")
	v.SetDefault("tasks.bundle-tests.source_map", true)
	v.SetDefault("tasks.bundle-tests.minify", false)
	v.SetDefault("tasks.bundle-tests.target", "es2015")
	v.SetDefault("tasks.bundle-tests.define", versionDefine)

	v.SetDefault("tasks.extract-sourcemap.input", "target/{{.Name}}.min.js")
	v.SetDefault("tasks.extract-sourcemap.output", "target/{{.Name}}.min.map")

	v.SetDefault("tasks.lint.sources", []string{libSources, "tests/*.js"})
	v.SetDefault("tasks.lint.rules.trailing_whitespace", true)
	v.SetDefault("tasks.lint.rules.no_tabs", true)
	v.SetDefault("tasks.lint.rules.no_semicolons", true)
	v.SetDefault("tasks.lint.rules.no_multiple_blank_lines", true)
	v.SetDefault("tasks.lint.rules.final_newline", true)
	v.SetDefault("tasks.lint.fail_on_error", true)

	v.SetDefault("tasks.run-unit-tests.files", []string{testSources})
	v.SetDefault("tasks.run-unit-tests.command", []string{"nodeunit"})

	v.SetDefault("tasks.docs.mappings", []map[string]interface{}{
		{"dest": "docs/implementing-transformer.md", "sources": []string{"lib/id.js"}},
		{"dest": "docs/api.md", "sources": []string{"lib/data.js", "lib/comp.js"}},
	})
	v.SetDefault("tasks.docs.separator", "\n")

	v.SetDefault("watch.files", []string{testSources, libSources})
	v.SetDefault("watch.tasks", []string{"test"})
	v.SetDefault("watch.debounce", 100*time.Millisecond)

	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.max_warnings", 5)
	v.SetDefault("notify.title", "{{.Name}}")
	v.SetDefault("notify.success", false)
	v.SetDefault("notify.duration", 3*time.Second)
	v.SetDefault("notify.backend", "log")
	v.SetDefault("notify.webhook_url", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "mtbuild")
	v.SetDefault("telemetry.otel_collector.host", "localhost")
	v.SetDefault("telemetry.otel_collector.port", 4317)
}
