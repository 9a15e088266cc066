package utils

import (
	"path/filepath"

	"github.com/charmbracelet/log"
)

// ResolveDataPath locates a data file the daemon was pointed at. Absolute
// paths pass through. Relative paths resolve against the working directory
// first, then next to the executable; when neither holds the file yet the
// input comes back unchanged so the store can create it in place.
func ResolveDataPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	if FileExists(path) {
		return path
	}

	if execDir, err := GetExecutableDir(); err == nil {
		candidate := filepath.Join(execDir, path)
		if FileExists(candidate) {
			log.Debugf("Resolved %s next to the executable: %s", path, candidate)
			return candidate
		}
	}

	return path
}
