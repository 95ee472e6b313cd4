package harness

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempDataDirName is the scratch directory the publisher tests write into.
const TempDataDirName = "tempdata"

// EnsureTempData creates <root>/tempdata if it does not exist and returns its
// path. An empty root means the current working directory.
func EnsureTempData(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		root = wd
	}
	dir := filepath.Join(root, TempDataDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp data dir: %w", err)
	}
	return dir, nil
}
