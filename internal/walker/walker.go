// Package walker discovers PDF files under a directory tree.
package walker

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FileInfo holds metadata about a discovered PDF.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
}

// skippedDirs are never descended into. Trash holds quarantined files and
// underscore or dot prefixed directories are treated as internal.
var skippedDirs = []string{"Trash"}

// Walk traverses the tree rooted at root and sends discovered PDFs on the
// returned channel. Symlinks and empty files are skipped.
func Walk(root string) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip errors, keep walking
			}

			if d.IsDir() {
				if path == absRoot {
					return nil
				}
				if skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			// Skip symlinks.
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}

			if !strings.EqualFold(filepath.Ext(path), ".pdf") {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() == 0 {
				return nil
			}

			relPath, _ := filepath.Rel(absRoot, path)
			files <- FileInfo{
				Path:    path,
				RelPath: filepath.ToSlash(relPath),
				Size:    info.Size(),
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	for _, s := range skippedDirs {
		if name == s {
			return true
		}
	}
	return false
}
