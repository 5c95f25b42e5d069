// Package pdfio wraps the poppler command line tools (pdftotext, pdfinfo)
// for text extraction and exposes PDF validity and file stability checks.
// The external commands sit behind a CommandRunner so tests never need
// poppler installed.
package pdfio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Extractor extracts text and page counts from PDF files.
type Extractor struct {
	runner CommandRunner
}

// NewExtractor returns an Extractor using the real poppler binaries.
func NewExtractor() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewExtractorWithRunner returns an Extractor with a custom runner.
func NewExtractorWithRunner(r CommandRunner) *Extractor {
	return &Extractor{runner: r}
}

// Available reports whether pdftotext can be found on PATH.
func (e *Extractor) Available() bool {
	if _, ok := e.runner.(execRunner); !ok {
		return true
	}
	_, err := exec.LookPath("pdftotext")
	return err == nil
}

// ExtractText extracts text from path. maxPages caps extraction at the
// first maxPages pages; zero or negative extracts the whole document.
// Output goes through pdftotext's layout-free mode and is returned as is.
func (e *Extractor) ExtractText(ctx context.Context, path string, maxPages int) (string, error) {
	args := []string{"-q", "-enc", "UTF-8"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(maxPages))
	}
	args = append(args, path, "-")
	out, err := e.runner.Run(ctx, "pdftotext", args...)
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", path, err)
	}
	return string(out), nil
}

// PageCount reads the page count via pdfinfo. Returns 0 with an error when
// the file cannot be parsed.
func (e *Extractor) PageCount(ctx context.Context, path string) (int, error) {
	out, err := e.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w", path, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("parse page count of %s: %w", path, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo %s: no page count in output", path)
}

// pdfMagic is the header every well-formed PDF starts with.
var pdfMagic = []byte("%PDF")

// IsPDF reports whether the file at path starts with the PDF magic bytes.
// Read errors and files shorter than the magic count as not a PDF; the
// caller quarantines either way.
func IsPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, pdfMagic)
}
