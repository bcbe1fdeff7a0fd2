package main

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// discoverFiles expands manifest-style globs into concrete .go file paths.
// "./..." (and any directory path ending in "/...") means "this directory,
// recursively"; anything else is passed to filepath.Glob as-is.
func discoverFiles(globs []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, g := range globs {
		if strings.HasSuffix(g, "/...") {
			root := strings.TrimSuffix(g, "/...")
			if root == "." {
				root = "."
			}
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					base := filepath.Base(path)
					if base != "." && strings.HasPrefix(base, ".") {
						return filepath.SkipDir
					}
					return nil
				}
				if strings.HasSuffix(path, ".go") {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}

		matches, err := filepath.Glob(g)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if strings.HasSuffix(m, ".go") {
				add(m)
			}
		}
	}

	return files, nil
}
