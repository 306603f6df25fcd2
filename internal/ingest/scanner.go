// Package ingest discovers invoice text documents: a one-shot recursive scan
// for batch runs, and an fsnotify watcher for continuous intake.
package ingest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// documentExt is the only extension the engine ingests. Invoices arrive as
// plain text produced by an upstream PDF/OCR step.
const documentExt = ".txt"

func isDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), documentExt)
}

// Scan walks root recursively and returns the paths of every invoice text
// document, sorted for deterministic batch order.
func Scan(root string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %q: not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && isDocument(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", root, err)
	}
	sort.Strings(paths)

	logger.Info("ingest.scanned",
		slog.String("root", root),
		slog.Int("documents", len(paths)))
	return paths, nil
}

// ReadDocument loads one document's text.
func ReadDocument(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document %q: %w", path, err)
	}
	return string(b), nil
}
