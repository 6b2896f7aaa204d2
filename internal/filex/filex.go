// Package filex contains small filesystem helpers shared by the camera and
// controller components.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureSubDir creates dirName under the current working directory if it
// does not exist yet and returns its absolute path.
func EnsureSubDir(dirName string) (string, error) {
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

// UniqueName returns a path under dir for "<base>.<ext>" that does not
// collide with an existing file, appending "_1", "_2", ... to the base until
// a free name is found.
func UniqueName(dir, base, ext string) string {
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", base, ext))
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", base, n, ext))
	}
}
