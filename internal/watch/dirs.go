package watch

import (
	"io/fs"
	"path/filepath"
)

// subdirs returns root and every directory beneath it, skipping anything
// starting with "." (vendor checkouts of .git, editor swap dirs) the way
// a generator tool should ignore VCS internals by default.
func subdirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if base != "." && len(base) > 0 && base[0] == '.' {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}
