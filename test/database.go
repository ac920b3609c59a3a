package test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

// TmpFile returns a path for a throwaway sqlite database. Every call gets
// its own file so suites never share state, cleanup is handled by the
// test's temporary directory.
func TmpFile(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), uuid.New().String())
}
