// Package export writes a generated project to disk.
package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"prompt2web_server/internal/types"
)

// ErrUnsafePath rejects file paths that would escape the target directory.
var ErrUnsafePath = errors.New("unsafe file path")

// Writer saves project files under a root directory.
type Writer struct {
	root   string
	logger *slog.Logger
}

func NewWriter(root string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{root: root, logger: logger}
}

// WriteProject writes every file of project below the root, creating
// subdirectories as needed. All paths are validated before anything is written.
func (w *Writer) WriteProject(project *types.Project) error {
	if project == nil {
		return errors.New("no project to export")
	}
	targets := make([]string, len(project.Files))
	for i, f := range project.Files {
		rel, err := safeRelPath(f.Path)
		if err != nil {
			return err
		}
		targets[i] = filepath.Join(w.root, filepath.FromSlash(rel))
	}

	for i, f := range project.Files {
		if err := os.MkdirAll(filepath.Dir(targets[i]), 0o755); err != nil {
			return fmt.Errorf("failed to create subdirectories for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(targets[i], []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", f.Path, err)
		}
	}
	w.logger.Info("project exported", "project", project.ProjectName, "files", len(project.Files), "dir", w.root)
	return nil
}

// WriteDocument writes a single standalone document, e.g. the composited preview.
func (w *Writer) WriteDocument(name, document string) (string, error) {
	rel, err := safeRelPath(name)
	if err != nil {
		return "", err
	}
	target := filepath.Join(w.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(target, []byte(document), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return target, nil
}

func safeRelPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") || filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
		}
	}
	clean := path.Clean(p)
	if clean == "." {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}
	return clean, nil
}

// DocumentName is the download file name for a project's composited document.
func DocumentName(projectName string) string {
	name := strings.TrimSpace(projectName)
	if name == "" {
		name = "website"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, name)
	return name + ".html"
}
