package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PromptRepo persists the assistant rules as a single text file.
// Writes replace the whole file; there is no history of previous content.
type PromptRepo struct {
	path string
}

func NewPromptRepo(path string) *PromptRepo {
	return &PromptRepo{path: path}
}

func (r *PromptRepo) Path() string {
	return r.path
}

// Read returns the file content verbatim.
func (r *PromptRepo) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces the file content, creating parent directories as needed.
func (r *PromptRepo) Write(ctx context.Context, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	return os.WriteFile(r.path, []byte(content), 0o644)
}

// Exists reports whether the rules file is present.
func (r *PromptRepo) Exists() (bool, error) {
	_, err := os.Stat(r.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
