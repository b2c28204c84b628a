//go:build windows

package utils

import "os"

// WriteFileAtomic falls back to a plain write; renameio does not support Windows.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}
