// Package files routes summary files between stage folders. Moves are
// collision-safe: an existing destination name gets a timestamp suffix and,
// failing that, a numeric counter, so nothing is ever overwritten.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pokertrack/summary-importer/pkg/config"
)

// Folders holds the resolved stage folder paths for one run.
type Folders struct {
	Processed   string
	NeedsReview string
	Duplicate   string
	Logs        string
	LogPath     string
}

// Resolve builds the stage folder paths from config, resolving relative
// names against the input directory.
func Resolve(inputDir string, cfg config.FoldersConfig, logFileName string) Folders {
	logs := resolveFolder(inputDir, cfg.Logs)
	return Folders{
		Processed:   resolveFolder(inputDir, cfg.Processed),
		NeedsReview: resolveFolder(inputDir, cfg.NeedsReview),
		Duplicate:   resolveFolder(inputDir, cfg.Duplicate),
		Logs:        logs,
		LogPath:     filepath.Join(logs, logFileName),
	}
}

func resolveFolder(inputDir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(inputDir, name)
}

// EnsureDirs creates all stage folders. Creation is idempotent.
func EnsureDirs(f Folders) error {
	for _, dir := range []string{f.Processed, f.NeedsReview, f.Duplicate, f.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating folder %s: %w", dir, err)
		}
	}
	return nil
}

// SafeMove moves src into destDir and returns the final path. A same-named
// file already in destDir gets a timestamp suffix, then a numeric counter if
// even that collides.
func SafeMove(src, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating folder %s: %w", destDir, err)
	}

	name := filepath.Base(src)
	dest := filepath.Join(destDir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		ts := time.Now().Format("20060102_150405")
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%s%s", stem, ts, ext))
		for counter := 1; ; counter++ {
			if _, err := os.Stat(dest); os.IsNotExist(err) {
				break
			}
			dest = filepath.Join(destDir, fmt.Sprintf("%s_%s_%d%s", stem, ts, counter, ext))
		}
	}

	if err := move(src, dest); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", src, dest, err)
	}
	return dest, nil
}

// move renames src to dest, falling back to copy-and-delete when the
// destination is on a different filesystem.
func move(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
