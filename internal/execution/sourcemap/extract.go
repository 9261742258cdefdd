// Package sourcemap moves inline source maps out of bundles into
// separate files.
package sourcemap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

var ErrNoInlineMap = errors.New("no inline source map")

var commentPrefixes = []string{"//# sourceMappingURL=", "//@ sourceMappingURL="}

type Handler struct {
	fs afero.Fs
}

func NewHandler(fs afero.Fs) *Handler {
	return &Handler{fs: fs}
}

func (h *Handler) Run(ctx context.Context, tc config.TaskConfig) (*models.TaskReport, error) {
	cfg, ok := tc.(*config.SourceMapConfig)
	if !ok {
		return nil, fmt.Errorf("extract-sourcemap: unexpected config type %T", tc)
	}

	in := filepath.FromSlash(cfg.Input)
	out := filepath.FromSlash(cfg.Output)

	src, err := afero.ReadFile(h.fs, in)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", cfg.Input, err)
	}

	ref, err := filepath.Rel(filepath.Dir(in), out)
	if err != nil {
		return nil, fmt.Errorf("relating %s to %s: %w", cfg.Output, cfg.Input, err)
	}

	code, sourceMap, err := Extract(string(src), filepath.ToSlash(ref))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Input, err)
	}

	if err := h.fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", cfg.Output, err)
	}
	if err := afero.WriteFile(h.fs, out, sourceMap, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", cfg.Output, err)
	}
	if err := afero.WriteFile(h.fs, in, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("rewriting %s: %w", cfg.Input, err)
	}

	log := logger.WithComponent("sourcemap")
	log.Debug().
		Str("input", cfg.Input).
		Str("output", cfg.Output).
		Int("bytes", len(sourceMap)).
		Msg("Source map extracted")

	return &models.TaskReport{Outputs: []string{cfg.Output}}, nil
}

// Extract removes the last inline source map comment from code and
// returns the rewritten code, which references mapURL instead, together
// with the decoded map.
func Extract(code, mapURL string) (string, []byte, error) {
	lines := strings.Split(code, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		value, ok := mappingURL(lines[i])
		if !ok {
			continue
		}
		if !strings.HasPrefix(value, "data:") {
			return "", nil, fmt.Errorf("%w: source map is already external (%s)", ErrNoInlineMap, value)
		}

		data, err := decodeDataURL(value)
		if err != nil {
			return "", nil, err
		}
		if err := validate(data); err != nil {
			return "", nil, err
		}

		lines[i] = commentPrefixes[0] + mapURL
		return strings.Join(lines, "\n"), data, nil
	}
	return "", nil, ErrNoInlineMap
}

func mappingURL(line string) (string, bool) {
	line = strings.TrimSpace(line)
	for _, p := range commentPrefixes {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(line[len(p):]), true
		}
	}
	return "", false
}

func decodeDataURL(u string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL")
	}
	if !strings.HasPrefix(meta, "application/json") {
		return nil, fmt.Errorf("unexpected source map media type %q", meta)
	}

	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 source map: %w", err)
		}
		return data, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding source map: %w", err)
	}
	return []byte(decoded), nil
}

func validate(data []byte) error {
	var m struct {
		Version  int     `json:"version"`
		Mappings *string `json:"mappings"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("inline source map is not JSON: %w", err)
	}
	if m.Version != 3 || m.Mappings == nil {
		return fmt.Errorf("inline source map is not a version 3 map")
	}
	return nil
}
