package sourcemap

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

const testMap = `{"version":3,"sources":["lib/id.js"],"mappings":"AAAA"}`

func inline(code, m string) string {
	return code + "\n//# sourceMappingURL=data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(m)) + "\n"
}

func TestExtract(t *testing.T) {
	t.Run("base64", func(t *testing.T) {
		code, m, err := Extract(inline("(()=>{})();", testMap), "mylib.min.map")
		require.NoError(t, err)
		assert.Equal(t, "(()=>{})();\n//# sourceMappingURL=mylib.min.map\n", code)
		assert.JSONEq(t, testMap, string(m))
	})

	t.Run("url encoded with charset", func(t *testing.T) {
		src := "x()\n//# sourceMappingURL=data:application/json;charset=utf-8," + url.PathEscape(testMap)
		_, m, err := Extract(src, "x.map")
		require.NoError(t, err)
		assert.JSONEq(t, testMap, string(m))
	})

	t.Run("legacy marker", func(t *testing.T) {
		src := "x()\n//@ sourceMappingURL=data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(testMap))
		code, _, err := Extract(src, "x.map")
		require.NoError(t, err)
		assert.Equal(t, "x()\n//# sourceMappingURL=x.map", code)
	})

	t.Run("no map", func(t *testing.T) {
		_, _, err := Extract("x()\n", "x.map")
		assert.True(t, errors.Is(err, ErrNoInlineMap))
	})

	t.Run("already external", func(t *testing.T) {
		_, _, err := Extract("x()\n//# sourceMappingURL=x.map\n", "x.map")
		assert.True(t, errors.Is(err, ErrNoInlineMap))
	})

	t.Run("not a source map", func(t *testing.T) {
		_, _, err := Extract(inline("x()", `{"hello":"world"}`), "x.map")
		assert.Error(t, err)
	})

	t.Run("corrupt base64", func(t *testing.T) {
		_, _, err := Extract("x()\n//# sourceMappingURL=data:application/json;base64,@@@", "x.map")
		assert.Error(t, err)
	})
}

func TestHandlerRun(t *testing.T) {
	logger.InitWithMode(logger.LogModeTest)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "target/mylib.min.js", []byte(inline("(()=>{})();", testMap)), 0o644))

	cfg := &config.SourceMapConfig{Input: "target/mylib.min.js", Output: "target/mylib.min.map"}
	report, err := NewHandler(fs).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"target/mylib.min.map"}, report.Outputs)

	m, err := afero.ReadFile(fs, "target/mylib.min.map")
	require.NoError(t, err)
	assert.JSONEq(t, testMap, string(m))

	js, err := afero.ReadFile(fs, "target/mylib.min.js")
	require.NoError(t, err)
	assert.Equal(t, "(()=>{})();\n//# sourceMappingURL=mylib.min.map\n", string(js))

	t.Run("second run has nothing to extract", func(t *testing.T) {
		_, err := NewHandler(fs).Run(context.Background(), cfg)
		assert.True(t, errors.Is(err, ErrNoInlineMap))
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := NewHandler(afero.NewMemMapFs()).Run(context.Background(), cfg)
		assert.Error(t, err)
	})
}
