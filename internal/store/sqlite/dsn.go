package sqlite

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const memoryPath = ":memory:"

// parseDSN turns sqlite://<path> into a driver path. A leading ~/ expands to
// the user's home directory.
func parseDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "sqlite://") {
		return "", fmt.Errorf("invalid sqlite DSN scheme, expected sqlite://")
	}

	rest := strings.TrimPrefix(dsn, "sqlite://")
	if rest == "" {
		return "", fmt.Errorf("sqlite DSN has no path")
	}
	if rest == memoryPath {
		return memoryPath, nil
	}

	path, query, _ := strings.Cut(rest, "?")
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("unescaping path: %w", err)
	}
	path = unescaped

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
	} else if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") {
		path = "./" + path
	}

	if query != "" {
		return path + "?" + query, nil
	}
	return path, nil
}

func ensureDir(path string) error {
	if path == memoryPath {
		return nil
	}
	file, _, _ := strings.Cut(path, "?")
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	return nil
}
