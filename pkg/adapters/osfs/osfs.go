// Package osfs implements ports.FileSystem on the local file system.
package osfs

import (
	"os"

	"github.com/user/clipforge/pkg/ports"
)

// FileSystem is the OS-backed file system.
type FileSystem struct{}

// New creates a new OS file system.
func New() *FileSystem {
	return &FileSystem{}
}

func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (f *FileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

func (f *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (f *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (f *FileSystem) Remove(path string) error {
	return os.Remove(path)
}

var _ ports.FileSystem = (*FileSystem)(nil)
