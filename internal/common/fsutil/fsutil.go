package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/bin/gemini
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// LookCommand resolves a command to an absolute path when it contains a path
// separator, otherwise reports whether it is findable on PATH. The resolved
// string is returned unchanged when resolution fails; startup only warns.
func LookCommand(cmd string) (string, bool) {
	if strings.ContainsRune(cmd, os.PathSeparator) {
		expanded, err := ExpandHome(cmd)
		if err != nil {
			return cmd, false
		}
		return expanded, PathExists(expanded)
	}
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		if PathExists(filepath.Join(dir, cmd)) {
			return cmd, true
		}
	}
	return cmd, false
}
