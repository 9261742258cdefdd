// Package lint applies a small set of line-based style rules in the
// spirit of JavaScript Standard Style.
package lint

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/utils/globutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

type Violation struct {
	Path    string
	Line    int
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%d: %s", v.Path, v.Line, v.Message)
}

type Handler struct {
	fs afero.Fs
}

func NewHandler(fs afero.Fs) *Handler {
	return &Handler{fs: fs}
}

// Run lints every matched file. Violations are reported as warnings and
// fail the task when FailOnError is set. No matched files is a no-op.
func (h *Handler) Run(ctx context.Context, tc config.TaskConfig) (*models.TaskReport, error) {
	cfg, ok := tc.(*config.LintConfig)
	if !ok {
		return nil, fmt.Errorf("lint: unexpected config type %T", tc)
	}
	log := logger.WithComponent("lint")

	files, err := globutil.Expand(h.fs, cfg.Sources)
	if err != nil {
		return nil, err
	}

	report := &models.TaskReport{}
	var count int
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		data, err := afero.ReadFile(h.fs, filepath.FromSlash(f))
		if err != nil {
			return report, fmt.Errorf("reading %s: %w", f, err)
		}
		for _, v := range Check(f, string(data), cfg.Rules) {
			report.Warnings = append(report.Warnings, v.String())
			count++
		}
	}

	log.Debug().Int("files", len(files)).Int("violations", count).Msg("Lint finished")

	if count > 0 && cfg.FailOnError {
		return report, fmt.Errorf("%d style violation(s) in %d file(s)", count, len(files))
	}
	return report, nil
}

// Check returns the rule violations of one file, in line order.
func Check(path, src string, rules config.LintRules) []Violation {
	var out []Violation
	add := func(line int, msg string) {
		out = append(out, Violation{Path: path, Line: line, Message: msg})
	}

	src = strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.Split(src, "\n")
	// A trailing newline produces one empty element that is not a line.
	if strings.HasSuffix(src, "\n") {
		lines = lines[:len(lines)-1]
	}

	blank := 0
	for i, line := range lines {
		n := i + 1

		if rules.TrailingWhitespace && strings.TrimRight(line, " \t") != line {
			add(n, "trailing whitespace")
		}
		if rules.NoTabs && strings.HasPrefix(strings.TrimLeft(line, " "), "\t") && strings.TrimSpace(line) != "" {
			add(n, "unexpected tab indentation")
		}
		if rules.NoSemicolons && endsWithSemicolon(line) {
			add(n, "extra semicolon")
		}

		if strings.TrimSpace(line) == "" {
			blank++
			if rules.NoMultipleBlankLines && blank == 2 {
				add(n, "more than one blank line")
			}
		} else {
			blank = 0
		}
	}

	if rules.FinalNewline && src != "" && !strings.HasSuffix(src, "\n") {
		add(len(lines), "missing newline at end of file")
	}
	return out
}

// endsWithSemicolon ignores semicolons inside comments and for-loop
// headers.
func endsWithSemicolon(line string) bool {
	code := strings.TrimRight(line, " \t")
	if i := strings.Index(code, "//"); i >= 0 {
		code = strings.TrimRight(code[:i], " \t")
	}
	trimmed := strings.TrimSpace(code)
	if strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") {
		return false
	}
	if strings.HasPrefix(trimmed, "for ") || strings.HasPrefix(trimmed, "for(") {
		return false
	}
	return strings.HasSuffix(code, ";")
}
