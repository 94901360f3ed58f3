package services

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/foloup/backend/document"
)

// FileStore keeps uploaded files on the local filesystem under baseDir.
// Stored paths are relative to baseDir and use forward slashes.
type FileStore struct {
	baseDir string
	mutex   sync.Mutex
}

func NewFileStore(baseDir string) *FileStore {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		slog.Error("Failed to create upload directory", "dir", baseDir, "error", err)
	}
	return &FileStore{baseDir: baseDir}
}

// SaveResume writes a resume to resumes/<owner>/<unix-millis><ext>
func (fs *FileStore) SaveResume(owner, filename string, data []byte) (string, error) {
	owner = filepath.Base(filepath.Clean(owner))
	if owner == "" || owner == "." || owner == ".." || owner == string(filepath.Separator) {
		return "", errors.New("invalid owner for stored file")
	}

	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	dir := filepath.Join(fs.baseDir, "resumes", owner)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	ext := document.Ext(filename)
	stamp := time.Now().UnixMilli()
	for attempt := 0; ; attempt++ {
		name := fmt.Sprintf("%d%s", stamp, ext)
		if attempt > 0 {
			name = fmt.Sprintf("%d-%d%s", stamp, attempt, ext)
		}
		full := filepath.Join(dir, name)

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(full)
			return "", fmt.Errorf("failed to write file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close file: %w", err)
		}

		rel := filepath.ToSlash(filepath.Join("resumes", owner, name))
		slog.Info("File stored", "path", rel, "size", len(data))
		return rel, nil
	}
}

func (fs *FileStore) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid stored path %q", rel)
	}
	return filepath.Join(fs.baseDir, clean), nil
}

func (fs *FileStore) Read(rel string) ([]byte, error) {
	full, err := fs.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Delete removes a stored file; a missing file is not an error
func (fs *FileStore) Delete(rel string) error {
	full, err := fs.resolve(rel)
	if err != nil {
		return err
	}

	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		slog.Error("Failed to delete stored file", "path", rel, "error", err)
		return err
	}
	return nil
}
