// Package storage сохраняет загруженные файлы обложек и рукописей на локальном диске.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore сохраняет файлы в локальном каталоге. Предназначен для окружений,
// где объектное хранилище недоступно.
type FileStore struct {
	basePath string
}

// NewFileStore создаёт FileStore с корнем в basePath, создавая каталог при необходимости.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Save записывает данные под случайным именем, сохраняя расширение исходного
// файла, и возвращает ключ сохранённого файла.
func (s *FileStore) Save(originalName string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}

	ext := filepath.Ext(filepath.Base(originalName))
	key := uuid.NewString() + ext

	if err := os.WriteFile(filepath.Join(s.basePath, key), data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}

	return key, nil
}
