// Package pathutil confines file paths supplied by untrusted callers to
// allowed directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FieldsDir is the directory inside a store directory from which MCP
// callers may load field grids.
const FieldsDir = "fields"

// RedactPath reduces a full path to .../<parent>/<basename> for safe error messages.
// For example, "/home/user/.porewalk/fields/pore.arrow" becomes ".../fields/pore.arrow".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ValidatePath checks that path lies within one of allowed after cleaning
// and resolving symlinks. The file itself need not exist.
func ValidatePath(path string, allowed []string) error {
	switch {
	case path == "":
		return errors.New("path validation failed: path is empty")
	case len(allowed) == 0:
		return errors.New("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, '\x00'):
		return errors.New("path validation failed: path contains null byte")
	}

	resolved, err := resolve(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	for _, dir := range allowed {
		base, err := resolve(dir)
		if err != nil {
			continue
		}
		if isSubpath(resolved, base) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(path))
}

// resolve returns the absolute path with symlinks in its deepest existing
// ancestor resolved.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	var tail []string
	for dir := abs; ; {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{real}, tail...)...), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("cannot resolve %s", RedactPath(abs))
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent
	}
}

// isSubpath reports whether path is base or lies below it.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(base, string(os.PathSeparator))+string(os.PathSeparator))
}

// AllowedFieldDirs returns the directories from which field grids may be
// loaded for a store directory.
func AllowedFieldDirs(storeDir string) []string {
	return []string{filepath.Join(storeDir, FieldsDir)}
}
