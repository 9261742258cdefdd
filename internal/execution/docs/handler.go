package docs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/utils/globutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

type Handler struct {
	fs afero.Fs
}

func NewHandler(fs afero.Fs) *Handler {
	return &Handler{fs: fs}
}

// Run writes every destination of the docs task. A source pattern that
// matches nothing is reported as a warning, and a destination left with
// no sources is skipped.
func (h *Handler) Run(ctx context.Context, tc config.TaskConfig) (*models.TaskReport, error) {
	cfg, ok := tc.(*config.DocsConfig)
	if !ok {
		return nil, fmt.Errorf("docs: unexpected config type %T", tc)
	}

	log := logger.WithComponent("docs")
	report := &models.TaskReport{}

	for _, m := range cfg.Mappings {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		var files []string
		for _, pattern := range m.Sources {
			matched, err := globutil.Expand(h.fs, []string{pattern})
			if err != nil {
				return report, err
			}
			if len(matched) == 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("source file %q not found", pattern))
			}
			files = append(files, matched...)
		}
		if len(files) == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("destination %q not written: no sources", m.Dest))
			continue
		}

		sources := make([]string, len(files))
		for i, f := range files {
			data, err := afero.ReadFile(h.fs, filepath.FromSlash(f))
			if err != nil {
				return report, fmt.Errorf("reading %s: %w", f, err)
			}
			sources[i] = string(data)
		}

		dest := filepath.FromSlash(m.Dest)
		if err := h.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return report, fmt.Errorf("creating directory for %s: %w", m.Dest, err)
		}
		if err := afero.WriteFile(h.fs, dest, []byte(TransformFiles(cfg.Separator, sources...)), 0o644); err != nil {
			return report, fmt.Errorf("writing %s: %w", m.Dest, err)
		}

		log.Debug().Str("dest", m.Dest).Strs("sources", files).Msg("Documentation written")
		report.Outputs = append(report.Outputs, m.Dest)
	}

	return report, nil
}
