package bundle

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
)

// namespace marks modules served from the project filesystem.
const namespace = "project"

// projectPlugin makes esbuild read every module from fs instead of the
// process working directory. Module paths are slash-separated and rooted
// at "/", which is the project directory.
func projectPlugin(fs afero.Fs) api.Plugin {
	return api.Plugin{
		Name: "project-fs",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^\.{0,2}/`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					base := path.Join(args.ResolveDir, args.Path)
					if strings.HasPrefix(args.Path, "/") {
						base = path.Clean(args.Path)
					}
					if p, ok := resolveFile(fs, base); ok {
						return api.OnResolveResult{Path: p, Namespace: namespace}, nil
					}
					return api.OnResolveResult{}, fmt.Errorf("cannot resolve %q from %s", args.Path, args.Importer)
				})

			build.OnResolve(api.OnResolveOptions{Filter: `^[^./]`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if p, ok := resolvePackage(fs, args.Path); ok {
						return api.OnResolveResult{Path: p, Namespace: namespace}, nil
					}
					return api.OnResolveResult{}, fmt.Errorf("package %q not found in node_modules", args.Path)
				})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: namespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					data, err := afero.ReadFile(fs, fsPath(args.Path))
					if err != nil {
						return api.OnLoadResult{}, err
					}
					contents := string(data)
					loader := api.LoaderJS
					if path.Ext(args.Path) == ".json" {
						loader = api.LoaderJSON
					}
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: path.Dir(args.Path),
						Loader:     loader,
					}, nil
				})
		},
	}
}

func resolveFile(fs afero.Fs, base string) (string, bool) {
	for _, candidate := range []string{base, base + ".js", base + ".json", path.Join(base, "index.js")} {
		info, err := fs.Stat(fsPath(candidate))
		if err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func resolvePackage(fs afero.Fs, name string) (string, bool) {
	base := path.Join("/node_modules", name)
	if p, ok := resolveFile(fs, base); ok {
		return p, true
	}

	data, err := afero.ReadFile(fs, fsPath(path.Join(base, "package.json")))
	if err != nil {
		return "", false
	}
	var pkg struct {
		Browser string `json:"browser"`
		Main    string `json:"main"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", false
	}
	for _, entry := range []string{pkg.Browser, pkg.Main} {
		if entry == "" {
			continue
		}
		if p, ok := resolveFile(fs, path.Join(base, entry)); ok {
			return p, true
		}
	}
	return "", false
}

// fsPath converts a module path to a path relative to the fs root.
func fsPath(p string) string {
	p = strings.TrimPrefix(path.Clean(p), "/")
	if p == "" {
		return "."
	}
	return p
}
