package lint

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

var allRules = config.LintRules{
	TrailingWhitespace:   true,
	NoTabs:               true,
	NoSemicolons:         true,
	NoMultipleBlankLines: true,
	FinalNewline:         true,
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{name: "clean", src: "const a = 1\n\nmodule.exports = a\n"},
		{name: "trailing whitespace", src: "const a = 1  \n", want: []string{"f.js:1: trailing whitespace"}},
		{name: "tab indentation", src: "if (a) {\n\treturn b\n}\n", want: []string{"f.js:2: unexpected tab indentation"}},
		{name: "semicolon", src: "const a = 1;\n", want: []string{"f.js:1: extra semicolon"}},
		{name: "semicolon before comment", src: "const a = 1; // one\n", want: []string{"f.js:1: extra semicolon"}},
		{name: "semicolon inside comment", src: "// a; b;\n/* c;\n * d;\n */\n"},
		{name: "for loop header", src: "for (let i = 0; i < n; i++) x(i)\n"},
		{name: "multiple blank lines", src: "a()\n\n\n\nb()\n", want: []string{"f.js:3: more than one blank line"}},
		{name: "missing final newline", src: "a()", want: []string{"f.js:1: missing newline at end of file"}},
		{name: "empty file", src: ""},
		{name: "crlf line endings", src: "a()\r\nb()\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, v := range Check("f.js", tt.src, allRules) {
				got = append(got, v.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckRulesCanBeDisabled(t *testing.T) {
	assert.Empty(t, Check("f.js", "a();  \n\n\n\tb()", config.LintRules{}))
}

func TestHandlerRun(t *testing.T) {
	logger.InitWithMode(logger.LogModeTest)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "lib/ok.js", []byte("module.exports = 1\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "lib/bad.js", []byte("module.exports = 2;\n"), 0o644))

	cfg := &config.LintConfig{Sources: []string{"lib/*.js"}, Rules: allRules, FailOnError: true}

	t.Run("violations fail the task", func(t *testing.T) {
		report, err := NewHandler(fs).Run(context.Background(), cfg)
		require.Error(t, err)
		assert.Equal(t, []string{"lib/bad.js:1: extra semicolon"}, report.Warnings)
	})

	t.Run("violations as warnings only", func(t *testing.T) {
		lenient := *cfg
		lenient.FailOnError = false
		report, err := NewHandler(fs).Run(context.Background(), &lenient)
		require.NoError(t, err)
		assert.Len(t, report.Warnings, 1)
	})

	t.Run("no files is a no-op", func(t *testing.T) {
		empty := *cfg
		empty.Sources = []string{"tests/*.js"}
		report, err := NewHandler(fs).Run(context.Background(), &empty)
		require.NoError(t, err)
		assert.Empty(t, report.Warnings)
	})
}
