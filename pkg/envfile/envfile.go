// Package envfile loads KEY=VALUE pairs from a local env file into the
// process environment before flags are parsed. Variables already present
// in the environment are never overridden, so real configuration always
// beats file contents.
//
// Search order:
//  1. $OWP_ENV_FILE, taken as given and, when relative, also joined to
//     the search directory
//  2. .env, .env.local, env.local, secrets.env in the search directory
//
// The first readable regular file wins; later candidates are ignored.
package envfile

import (
	"os"
	"path/filepath"
	"strings"
)

// PathEnv names the variable that points at an explicit env file.
const PathEnv = "OWP_ENV_FILE"

var defaultNames = []string{".env", ".env.local", "env.local", "secrets.env"}

// Load applies the first env file found under dir (empty means the
// current directory) and returns its path. It returns "" when no
// candidate exists; that is not an error.
func Load(dir string) string {
	if dir == "" {
		dir = "."
	}

	var candidates []string
	if explicit := os.Getenv(PathEnv); explicit != "" {
		candidates = append(candidates, explicit)
		if !filepath.IsAbs(explicit) {
			candidates = append(candidates, filepath.Join(dir, explicit))
		}
	}
	for _, name := range defaultNames {
		candidates = append(candidates, filepath.Join(dir, name))
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		apply(string(raw))
		return path
	}
	return ""
}

func apply(content string) {
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}
		key, val, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		os.Setenv(key, stripQuotes(val))
	}
}

// stripQuotes removes one matching pair of surrounding single or double
// quotes after trimming whitespace.
func stripQuotes(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == v[len(v)-1] && (v[0] == '\'' || v[0] == '"') {
		return v[1 : len(v)-1]
	}
	return v
}
