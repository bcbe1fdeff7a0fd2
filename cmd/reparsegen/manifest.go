package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// manifest is the optional project-wide .reparse.yaml, letting
// `reparsegen generate`/`reparsegen watch` run with no path arguments in
// a repo root (SPEC_FULL.md domain stack item 11).
type manifest struct {
	Globs    []string `yaml:"globs"`
	CacheDir string   `yaml:"cache_dir"`
	Debounce string   `yaml:"debounce"`
}

const defaultManifestPath = ".reparse.yaml"

func loadManifest(path string) (*manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &manifest{Globs: []string{"./..."}, CacheDir: ".reparse-cache"}, nil
		}
		return nil, err
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if len(m.Globs) == 0 {
		m.Globs = []string{"./..."}
	}
	if m.CacheDir == "" {
		m.CacheDir = ".reparse-cache"
	}
	return &m, nil
}
