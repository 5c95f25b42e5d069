package search

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Relevance band edges for the pack manifest.
const (
	bandHigh = 0.7
	bandMid  = 0.4
)

// Pack copies the selected documents into a dated directory under
// destBase with sequence-numbered filenames and writes a manifest
// grouping them by relevance band. Returns the pack directory.
func Pack(results []DocResult, destBase, query string) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("nothing to pack")
	}

	dir := filepath.Join(destBase, time.Now().Format("20060102")+"_"+slug(query))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create pack dir: %w", err)
	}

	var copied []DocResult
	for i, r := range results {
		name := fmt.Sprintf("%02d_%s", i+1, filepath.Base(r.Path))
		if err := copyTo(r.Path, filepath.Join(dir, name)); err != nil {
			// A moved or deleted source file loses its slot but not the
			// whole pack.
			fmt.Fprintf(os.Stderr, "pack: skipping %s: %v\n", r.Path, err)
			continue
		}
		copied = append(copied, r)
	}
	if len(copied) == 0 {
		return "", fmt.Errorf("no documents could be copied into %s", dir)
	}

	if err := writeManifest(filepath.Join(dir, "manifest.txt"), query, copied); err != nil {
		return "", err
	}
	return dir, nil
}

func writeManifest(path, query string, results []DocResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", query)
	fmt.Fprintf(&b, "Packed: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Documents: %d\n", len(results))

	bands := []struct {
		title string
		keep  func(float64) bool
	}{
		{"Highly relevant (score > 0.7)", func(s float64) bool { return s > bandHigh }},
		{"Relevant (score 0.4 - 0.7)", func(s float64) bool { return s > bandMid && s <= bandHigh }},
		{"Marginal (score < 0.4)", func(s float64) bool { return s <= bandMid }},
	}
	for _, band := range bands {
		var lines []string
		for i, r := range results {
			if !band.keep(r.Score) {
				continue
			}
			title := r.Title
			if title == "" {
				title = filepath.Base(r.Path)
			}
			lines = append(lines, fmt.Sprintf("  %02d. [%.2f %s] %s (%s/%s)",
				i+1, r.Score, r.Method, title, r.Vendor, r.DocType))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", band.title)
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a query into a short directory-name fragment.
func slug(query string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(query), "_")
	s = strings.Trim(s, "_")
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		s = "query"
	}
	return s
}

func copyTo(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
