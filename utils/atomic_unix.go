//go:build !windows

package utils

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to a temp file in the same directory and renames it over filename.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}
