// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package blob

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for pathnames that are empty, absolute, hidden or escape the root.
var ErrInvalidPath = errors.New("blob: invalid pathname")

// CleanPathname normalises a slash-separated object name.
// Segments may not be empty, "." or "..", or start with a dot.
func CleanPathname(name string) (string, error) {
	if strings.Contains(name, "\\") || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
		}
	}
	return path.Clean(name), nil
}

// confine joins root and a cleaned pathname and checks that the result,
// after resolving symlinks of the nearest existing parent, stays under root.
func confine(realRoot, name string) (string, error) {
	full := filepath.Join(realRoot, filepath.FromSlash(name))

	resolved := full
	if rp, err := filepath.EvalSymlinks(full); err == nil {
		resolved = rp
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("blob: resolve %s: %w", name, err)
	} else {
		dir := filepath.Dir(full)
		for {
			if rp, err := filepath.EvalSymlinks(dir); err == nil {
				rel, _ := filepath.Rel(dir, full)
				resolved = filepath.Join(rp, rel)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	rel, err := filepath.Rel(realRoot, resolved)
	if err != nil {
		return "", fmt.Errorf("blob: rel: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes root", ErrInvalidPath, name)
	}
	return full, nil
}
