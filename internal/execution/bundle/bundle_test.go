package bundle

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

const inlineMapMarker = "//# sourceMappingURL=data:application/json;base64,"

func projectFs(t *testing.T) afero.Fs {
	t.Helper()
	logger.InitWithMode(logger.LogModeTest)

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"lib/id.js":                        "const version = require('./version')\nmodule.exports = function id (x) { return x }\nmodule.exports.version = version\n",
		"lib/version.js":                   "module.exports = __VERSION__\n",
		"node_modules/ramda/package.json":  `{"main": "dist/ramda.js"}`,
		"node_modules/ramda/dist/ramda.js": "module.exports = { identity: function (x) { return x } }\n",
		"lib/uses-dep.js":                  "const R = require('ramda')\nmodule.exports = R.identity\n",
	}
	for p, c := range files {
		require.NoError(t, afero.WriteFile(fs, p, []byte(c), 0o644))
	}
	return fs
}

func bundleConfig(output string, minify bool) *config.BundleConfig {
	return &config.BundleConfig{
		Sources:   []string{"lib/*.js"},
		Output:    output,
		SourceMap: true,
		Minify:    minify,
		Target:    "es2015",
		Define:    []string{`__VERSION__="1.0.0"`},
	}
}

func TestBundleVerbose(t *testing.T) {
	fs := projectFs(t)

	report, err := NewHandler(fs).Run(context.Background(), bundleConfig("target/mylib.js", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"target/mylib.js"}, report.Outputs)

	out, err := afero.ReadFile(fs, "target/mylib.js")
	require.NoError(t, err)
	js := string(out)

	assert.Contains(t, js, `"1.0.0"`)
	assert.NotContains(t, js, "__VERSION__")
	assert.Contains(t, js, "function id")
	assert.Contains(t, js, "identity")
	assert.Contains(t, js, inlineMapMarker)
}

func TestBundleMinified(t *testing.T) {
	fs := projectFs(t)
	h := NewHandler(fs)

	_, err := h.Run(context.Background(), bundleConfig("target/mylib.js", false))
	require.NoError(t, err)
	_, err = h.Run(context.Background(), bundleConfig("target/mylib.min.js", true))
	require.NoError(t, err)

	verbose, err := afero.ReadFile(fs, "target/mylib.js")
	require.NoError(t, err)
	minified, err := afero.ReadFile(fs, "target/mylib.min.js")
	require.NoError(t, err)

	stripMap := func(b []byte) string {
		s := string(b)
		return s[:strings.Index(s, inlineMapMarker)]
	}
	assert.Less(t, len(stripMap(minified)), len(stripMap(verbose)))
	assert.Contains(t, string(minified), `"1.0.0"`)
	assert.Contains(t, string(minified), inlineMapMarker)
}

func TestBundleWithoutSourceMap(t *testing.T) {
	fs := projectFs(t)
	cfg := bundleConfig("target/plain.js", false)
	cfg.SourceMap = false

	_, err := NewHandler(fs).Run(context.Background(), cfg)
	require.NoError(t, err)

	out, err := afero.ReadFile(fs, "target/plain.js")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "sourceMappingURL")
}

func TestBundleFailures(t *testing.T) {
	t.Run("no sources matched", func(t *testing.T) {
		fs := projectFs(t)
		cfg := bundleConfig("target/x.js", false)
		cfg.Sources = []string{"src/*.js"}

		_, err := NewHandler(fs).Run(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no sources matched")
	})

	t.Run("unresolvable import", func(t *testing.T) {
		fs := projectFs(t)
		require.NoError(t, afero.WriteFile(fs, "lib/broken.js", []byte("require('./nope')\n"), 0o644))

		_, err := NewHandler(fs).Run(context.Background(), bundleConfig("target/x.js", false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")

		exists, _ := afero.Exists(fs, "target/x.js")
		assert.False(t, exists)
	})

	t.Run("syntax error", func(t *testing.T) {
		fs := projectFs(t)
		require.NoError(t, afero.WriteFile(fs, "lib/bad.js", []byte("module.exports = (\n"), 0o644))

		_, err := NewHandler(fs).Run(context.Background(), bundleConfig("target/x.js", false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lib/bad.js")
	})

	t.Run("unknown target", func(t *testing.T) {
		cfg := bundleConfig("target/x.js", false)
		cfg.Target = "es1999"
		_, err := NewHandler(projectFs(t)).Run(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("wrong config type", func(t *testing.T) {
		_, err := NewHandler(afero.NewMemMapFs()).Run(context.Background(), &config.DocsConfig{})
		assert.Error(t, err)
	})
}

func TestEntrySource(t *testing.T) {
	assert.Equal(t, "require(\"./lib/a.js\");\nrequire(\"./lib/b.js\");\n", entrySource([]string{"lib/a.js", "./lib/b.js"}))
}
