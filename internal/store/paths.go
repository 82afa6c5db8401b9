package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFile is the database file name inside a store directory.
const DBFile = "porewalk.db"

// GlobalDir returns the default store directory.
// On Unix: ~/.porewalk
// On Windows: %USERPROFILE%\.porewalk
func GlobalDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".porewalk"), nil
}

// DBPath returns the database path for a store directory.
func DBPath(dir string) string {
	return filepath.Join(dir, DBFile)
}
