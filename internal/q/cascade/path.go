package cascade

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ to the home directory and makes path absolute.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}

	expanded := path
	if strings.HasPrefix(expanded, "~") {
		if home, _ := os.UserHomeDir(); home != "" {
			switch {
			case expanded == "~" || expanded == "~/" || expanded == `~\`:
				expanded = home
			case strings.HasPrefix(expanded, "~/") || strings.HasPrefix(expanded, `~\`):
				expanded = filepath.Join(home, expanded[2:])
			}
		}
	}

	if !filepath.IsAbs(expanded) {
		if abs, err := filepath.Abs(expanded); err == nil {
			expanded = abs
		}
	}
	return expanded
}

// FindNearest searches upward from start (the working directory if empty; a file's directory if start is a file) for the first non-empty file named fileName.
// It returns "" if there is none. fileName must be relative and may contain directories (ex: ".blockdiff/config.json").
func FindNearest(fileName, start string) string {
	if filepath.IsAbs(fileName) {
		panic("fileName shouldn't be absolute")
	}
	if start == "" {
		if wd, err := os.Getwd(); err == nil {
			start = wd
		}
	}
	if start == "" {
		return ""
	}
	start = ExpandPath(start)
	if fi, err := os.Stat(start); err == nil && !fi.IsDir() {
		start = filepath.Dir(start)
	}

	for dir := start; ; {
		candidate := filepath.Join(dir, fileName)
		if data, err := os.ReadFile(candidate); err == nil && strings.TrimSpace(string(data)) != "" {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
