// Package filex contains filesystem helpers used by the client.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureSubDir creates dirName under the current working directory if needed
// and returns its absolute path. Absolute names are used as they are.
func EnsureSubDir(dirName string) (string, error) {
	if filepath.IsAbs(dirName) {
		if err := os.MkdirAll(dirName, 0o770); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dirName, err)
		}
		return dirName, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SafeFileName replaces path separators and other awkward characters so that
// a server-provided key can be used as a local file name.
func SafeFileName(name string) string {
	name = filepath.Base(name)
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	name = r.Replace(name)
	if name == "." || name == ".." || name == "" {
		return "export"
	}
	return name
}
