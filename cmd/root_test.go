package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "test.db") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2024-01-01")
	defer SetVersionInfo("dev", "none", "unknown")

	out := run(t, "version")
	if !strings.Contains(out, "newsapp 1.2.3 (commit: abc123") {
		t.Errorf("version output = %q", out)
	}
}

func TestSourcesRoundTrip(t *testing.T) {
	cfg := writeConfig(t)

	out := run(t, "--config", cfg, "migrate")
	if !strings.Contains(out, "sqlite schema is up to date") {
		t.Errorf("migrate output = %q", out)
	}

	opmlPath := filepath.Join(t.TempDir(), "feeds.opml")
	doc := `<?xml version="1.0"?>
<opml version="2.0"><body>
  <outline text="Tech">
    <outline text="Hacker News" type="rss" xmlUrl="https://news.ycombinator.com/rss"/>
  </outline>
</body></opml>`
	if err := os.WriteFile(opmlPath, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	out = run(t, "--config", cfg, "sources", "import", opmlPath)
	if !strings.Contains(out, "imported 1 of 1 sources") {
		t.Errorf("import output = %q", out)
	}

	out = run(t, "--config", cfg, "sources", "export")
	if !strings.Contains(out, `xmlUrl="https://news.ycombinator.com/rss"`) || !strings.Contains(out, `text="Tech"`) {
		t.Errorf("export output = %q", out)
	}

	out = run(t, "--config", cfg, "stats")
	if !strings.Contains(out, "Users:            0") {
		t.Errorf("stats output = %q", out)
	}
}
