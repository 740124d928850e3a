package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveRoot returns the directory holding the devserve executable. Binaries
// started by "go run" or "go test" live in the build cache, so for those the
// working directory is used instead.
func ResolveRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	dir := filepath.Dir(exe)
	if isBuildCache(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}
	return dir, nil
}

func isBuildCache(dir string) bool {
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if strings.HasPrefix(part, "go-build") {
			return true
		}
	}
	return false
}
