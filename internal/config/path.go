package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ to the home directory and then substitutes
// $VAR references. Paths are left as they are when the home directory is
// unknown.
func ExpandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == filepath.Separator) {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + rest
		}
	}
	return os.ExpandEnv(path)
}
