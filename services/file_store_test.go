package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveReadDelete(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)

	path, err := fs.SaveResume("candidate-1", "Jane CV.PDF", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "resumes/candidate-1/"))
	assert.Equal(t, ".pdf", filepath.Ext(path))

	second, err := fs.SaveResume("candidate-1", "other.pdf", []byte("%PDF-1.5"))
	require.NoError(t, err)
	assert.NotEqual(t, path, second)

	data, err := fs.Read(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)

	require.NoError(t, fs.Delete(path))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(path)))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, fs.Delete(path), "deleting a missing file is not an error")
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	_, err := fs.SaveResume("..", "cv.pdf", []byte("x"))
	assert.Error(t, err)

	path, err := fs.SaveResume("../../etc", "cv.pdf", []byte("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "resumes/etc/"))

	_, err = fs.Read("../outside.txt")
	assert.Error(t, err)
	_, err = fs.Read("/etc/passwd")
	assert.Error(t, err)
	assert.Error(t, fs.Delete("../../outside.txt"))
}
