// Package bundle produces browser bundles with esbuild.
package bundle

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/utils/globutil"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

type Handler struct {
	fs afero.Fs
}

func NewHandler(fs afero.Fs) *Handler {
	return &Handler{fs: fs}
}

func (h *Handler) Run(ctx context.Context, tc config.TaskConfig) (*models.TaskReport, error) {
	cfg, ok := tc.(*config.BundleConfig)
	if !ok {
		return nil, fmt.Errorf("bundle: unexpected config type %T", tc)
	}
	log := logger.WithComponent("bundle")

	files, err := globutil.Expand(h.fs, cfg.Sources)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no sources matched %v", cfg.Sources)
	}

	opts, err := buildOptions(cfg, files)
	if err != nil {
		return nil, err
	}
	opts.Plugins = []api.Plugin{projectPlugin(h.fs)}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debug().Strs("sources", files).Str("output", cfg.Output).Bool("minify", cfg.Minify).Msg("Bundling")
	result := api.Build(opts)

	report := &models.TaskReport{}
	for _, w := range result.Warnings {
		report.Warnings = append(report.Warnings, formatMessage(w))
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			msgs[i] = formatMessage(e)
		}
		return report, fmt.Errorf("bundling %s failed: %s", cfg.Output, strings.Join(msgs, "; "))
	}

	var contents []byte
	for _, f := range result.OutputFiles {
		if !strings.HasSuffix(f.Path, ".map") {
			contents = f.Contents
			break
		}
	}
	if contents == nil {
		return report, fmt.Errorf("bundling %s produced no output", cfg.Output)
	}

	out := filepath.FromSlash(cfg.Output)
	if err := h.fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return report, fmt.Errorf("creating directory for %s: %w", cfg.Output, err)
	}
	if err := afero.WriteFile(h.fs, out, contents, 0o644); err != nil {
		return report, fmt.Errorf("writing %s: %w", cfg.Output, err)
	}

	report.Outputs = append(report.Outputs, cfg.Output)
	return report, nil
}

func buildOptions(cfg *config.BundleConfig, files []string) (api.BuildOptions, error) {
	target := api.ES2015
	if cfg.Target != "" {
		t, ok := targets[strings.ToLower(cfg.Target)]
		if !ok {
			return api.BuildOptions{}, fmt.Errorf("unknown target %q", cfg.Target)
		}
		target = t
	}

	define := make(map[string]string, len(cfg.Define))
	for _, d := range cfg.Define {
		k, v, ok := strings.Cut(d, "=")
		if !ok || k == "" {
			return api.BuildOptions{}, fmt.Errorf("define %q is not KEY=VALUE", d)
		}
		define[k] = v
	}

	sourcemap := api.SourceMapNone
	if cfg.SourceMap {
		sourcemap = api.SourceMapInline
	}

	return api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   entrySource(files),
			ResolveDir: "/",
			Sourcefile: "mtbuild-entry.js",
			Loader:     api.LoaderJS,
		},
		Bundle:            true,
		Write:             false,
		Outfile:           path.Join("/", cfg.Output),
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            target,
		Sourcemap:         sourcemap,
		MinifyWhitespace:  cfg.Minify,
		MinifyIdentifiers: cfg.Minify,
		MinifySyntax:      cfg.Minify,
		Define:            define,
		LogLevel:          api.LogLevelSilent,
	}, nil
}

// entrySource requires every source so all of them land in one bundle.
func entrySource(files []string) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString("require(")
		b.WriteString(strconv.Quote("./" + strings.TrimPrefix(f, "./")))
		b.WriteString(");\n")
	}
	return b.String()
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}
