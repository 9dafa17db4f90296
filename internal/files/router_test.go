package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pokertrack/summary-importer/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestResolveFolders(t *testing.T) {
	cfg := config.FoldersConfig{
		Processed:   "Processed",
		NeedsReview: "Needs Review",
		Duplicate:   "/var/poker/dups",
		Logs:        "logs",
	}
	f := Resolve("/data/in", cfg, "import_log.jsonl")

	if f.Processed != filepath.Join("/data/in", "Processed") {
		t.Errorf("Processed = %q", f.Processed)
	}
	if f.NeedsReview != filepath.Join("/data/in", "Needs Review") {
		t.Errorf("NeedsReview = %q", f.NeedsReview)
	}
	if f.Duplicate != "/var/poker/dups" {
		t.Errorf("absolute folder was re-rooted: %q", f.Duplicate)
	}
	if f.LogPath != filepath.Join("/data/in", "logs", "import_log.jsonl") {
		t.Errorf("LogPath = %q", f.LogPath)
	}
}

func TestEnsureDirsIdempotent(t *testing.T) {
	base := t.TempDir()
	f := Resolve(base, config.FoldersConfig{
		Processed:   "Processed",
		NeedsReview: "Needs Review",
		Duplicate:   "Duplicate",
		Logs:        "logs",
	}, "log.jsonl")

	for i := 0; i < 2; i++ {
		if err := EnsureDirs(f); err != nil {
			t.Fatalf("EnsureDirs (pass %d): %v", i+1, err)
		}
	}
	for _, dir := range []string{f.Processed, f.NeedsReview, f.Duplicate, f.Logs} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("folder %s missing after EnsureDirs", dir)
		}
	}
}

func TestSafeMove(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "Processed")

	path := writeFile(t, src, "summary.txt", "first")
	moved, err := SafeMove(path, dest)
	if err != nil {
		t.Fatalf("SafeMove: %v", err)
	}
	if moved != filepath.Join(dest, "summary.txt") {
		t.Errorf("moved to %q", moved)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("source still exists after move")
	}
}

func TestSafeMoveCollisionGetsSuffix(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	first := writeFile(t, src, "summary.txt", "first")
	if _, err := SafeMove(first, dest); err != nil {
		t.Fatalf("SafeMove first: %v", err)
	}
	second := writeFile(t, src, "summary.txt", "second")
	moved, err := SafeMove(second, dest)
	if err != nil {
		t.Fatalf("SafeMove second: %v", err)
	}

	base := filepath.Base(moved)
	if base == "summary.txt" {
		t.Fatalf("collision not disambiguated: %q", moved)
	}
	if !strings.HasPrefix(base, "summary_") || !strings.HasSuffix(base, ".txt") {
		t.Errorf("unexpected suffixed name %q", base)
	}
	data, err := os.ReadFile(filepath.Join(dest, "summary.txt"))
	if err != nil || string(data) != "first" {
		t.Errorf("original destination file was overwritten")
	}
	data, err = os.ReadFile(moved)
	if err != nil || string(data) != "second" {
		t.Errorf("moved content = %q, err %v", data, err)
	}
}

func TestDecodeText(t *testing.T) {
	if got := DecodeText([]byte("plain utf-8 café")); got != "plain utf-8 café" {
		t.Errorf("utf-8 passthrough = %q", got)
	}

	// "café" in Windows-1252 plus a 0x92 right single quote.
	raw := []byte{'c', 'a', 'f', 0xE9, ' ', 0x92}
	got := DecodeText(raw)
	if !strings.HasPrefix(got, "café") {
		t.Errorf("cp1252 fallback = %q, want café prefix", got)
	}
	if !strings.Contains(got, "’") {
		t.Errorf("cp1252 fallback = %q, want right single quote", got)
	}
}
