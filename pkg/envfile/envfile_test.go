package envfile

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadParsesAndSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ".env"), `
# comment
PLAIN=value
SPACED =  padded
QUOTED="with spaces"
SINGLE='single'
HALF_QUOTED="mismatch'
=no-key
not a pair
`)
	for _, k := range []string{"PLAIN", "SPACED", "QUOTED", "SINGLE", "HALF_QUOTED"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	got := Load(dir)
	if got != filepath.Join(dir, ".env") {
		t.Fatalf("Load returned %q", got)
	}

	cases := map[string]string{
		"PLAIN":       "value",
		"SPACED":      "padded",
		"QUOTED":      "with spaces",
		"SINGLE":      "single",
		"HALF_QUOTED": `"mismatch'`,
	}
	for k, want := range cases {
		if v := os.Getenv(k); v != want {
			t.Errorf("%s = %q, want %q", k, v, want)
		}
	}
}

func TestLoadNeverOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ".env"), "KEEP=from-file\n")
	t.Setenv("KEEP", "from-env")

	Load(dir)

	if v := os.Getenv("KEEP"); v != "from-env" {
		t.Fatalf("KEEP = %q, existing environment must win", v)
	}
}

func TestLoadHonorsExplicitPath(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "custom.env"), "EXPLICIT_PICK=yes\n")
	write(t, filepath.Join(dir, ".env"), "EXPLICIT_PICK=no\n")
	t.Setenv(PathEnv, "custom.env")
	t.Setenv("EXPLICIT_PICK", "")
	os.Unsetenv("EXPLICIT_PICK")

	got := Load(dir)

	if got != filepath.Join(dir, "custom.env") {
		t.Fatalf("Load returned %q, want the explicit file", got)
	}
	if v := os.Getenv("EXPLICIT_PICK"); v != "yes" {
		t.Fatalf("EXPLICIT_PICK = %q", v)
	}
}

func TestLoadSearchOrder(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, ".env.local"), "ORDERED=second\n")
	write(t, filepath.Join(dir, "secrets.env"), "ORDERED=fourth\n")
	t.Setenv("ORDERED", "")
	os.Unsetenv("ORDERED")

	got := Load(dir)

	if got != filepath.Join(dir, ".env.local") {
		t.Fatalf("Load returned %q, want .env.local to win over secrets.env", got)
	}
	if v := os.Getenv("ORDERED"); v != "second" {
		t.Fatalf("ORDERED = %q", v)
	}
}

func TestLoadNothingFound(t *testing.T) {
	if got := Load(t.TempDir()); got != "" {
		t.Fatalf("Load returned %q for an empty directory", got)
	}
}
