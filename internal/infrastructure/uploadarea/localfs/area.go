// Package localfs backs the upload area with a directory tree. Each
// submission gets its own directory; the opaque destination handed to callers
// is a file:// URL pointing at it.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Area struct {
	basePath string
}

func New(basePath string) (*Area, error) {
	if basePath == "" {
		basePath = "./data/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload area dir: %w", err)
	}
	return &Area{basePath: basePath}, nil
}

// Allocate creates the submission's upload directory and returns its opaque
// destination reference.
func (a *Area) Allocate(_ context.Context, submissionID string) (string, error) {
	path := filepath.Join(a.basePath, submissionID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create submission upload dir: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve upload dir: %w", err)
	}
	return "file://" + abs, nil
}

// HasContent reports whether anything has been placed in the submission's
// upload directory.
func (a *Area) HasContent(_ context.Context, submissionID string) (bool, error) {
	dir, err := os.Open(filepath.Join(a.basePath, submissionID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("open submission upload dir: %w", err)
	}
	defer dir.Close()

	_, err = dir.Readdirnames(1)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("list submission upload dir: %w", err)
	}
	return true, nil
}
