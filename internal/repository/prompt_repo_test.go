package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptRepo_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	repo := NewPromptRepo(filepath.Join(t.TempDir(), "nested", "ai-rules.txt"))

	exists, err := repo.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Write(ctx, "first"))
	require.NoError(t, repo.Write(ctx, "`second` with ${markup}\n"))

	got, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "`second` with ${markup}\n", got)

	exists, err = repo.Exists()
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPromptRepo_ReadMissingFile(t *testing.T) {
	repo := NewPromptRepo(filepath.Join(t.TempDir(), "missing.txt"))

	_, err := repo.Read(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPromptRepo_WriteIntoFileParentFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	repo := NewPromptRepo(filepath.Join(blocker, "ai-rules.txt"))
	assert.Error(t, repo.Write(context.Background(), "rules"))
}

func TestPromptRepo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewPromptRepo(filepath.Join(t.TempDir(), "ai-rules.txt"))
	assert.ErrorIs(t, repo.Write(ctx, "rules"), context.Canceled)
}
