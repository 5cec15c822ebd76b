package audio

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jmylchreest/chime/internal/model"
)

// BuiltinChime is the synthesized sound used when no file is configured.
var BuiltinChime = Asset{Name: "builtin:chime"}

// Asset is a playable sound. An empty Path means the built-in chime.
type Asset struct {
	Name string
	Path string
}

// Builtin reports whether the asset is synthesized rather than read from disk.
func (a Asset) Builtin() bool {
	return a.Path == ""
}

// String returns the path, or the name for built-in assets.
func (a Asset) String() string {
	if a.Builtin() {
		return a.Name
	}
	return a.Path
}

// AssetTable maps every kind to some asset. Lookups never fail: unknown kinds
// and kinds without a configured file resolve to the fallback.
type AssetTable struct {
	byKind   map[model.Kind]Asset
	fallback Asset
}

// NewAssetTable builds a table from per-kind paths and a default path.
// An empty default path selects the built-in chime.
func NewAssetTable(paths map[model.Kind]string, defaultPath string) *AssetTable {
	t := &AssetTable{
		byKind:   make(map[model.Kind]Asset, len(paths)),
		fallback: BuiltinChime,
	}

	if defaultPath != "" {
		t.fallback = Asset{Name: "default", Path: expandPath(defaultPath)}
	}

	for kind, path := range paths {
		if path == "" {
			continue
		}
		t.byKind[kind] = Asset{Name: string(kind), Path: expandPath(path)}
	}

	return t
}

// Resolve returns the asset for kind.
func (t *AssetTable) Resolve(kind model.Kind) Asset {
	if t == nil {
		return BuiltinChime
	}
	if a, ok := t.byKind[kind]; ok {
		return a
	}
	return t.fallback
}

// Candidates returns the assets to try for kind, most specific first: the
// kind's own file, the default file, then the built-in chime.
func (t *AssetTable) Candidates(kind model.Kind) []Asset {
	first := t.Resolve(kind)
	out := []Asset{first}
	if t != nil && t.fallback != first {
		out = append(out, t.fallback)
	}
	if out[len(out)-1] != BuiltinChime {
		out = append(out, BuiltinChime)
	}
	return out
}

// Files returns every on-disk asset path in the table.
func (t *AssetTable) Files() []string {
	if t == nil {
		return nil
	}

	seen := make(map[string]bool)
	if !t.fallback.Builtin() {
		seen[t.fallback.Path] = true
	}
	for _, a := range t.byKind {
		seen[a.Path] = true
	}

	return slices.Sorted(maps.Keys(seen))
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
