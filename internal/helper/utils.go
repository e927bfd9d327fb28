package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// CreateFolder ensures a directory exists, creating it if necessary
func CreateFolder(path string) error {
	return os.MkdirAll(path, 0o755)
}

// UniqueFileName prefixes the original name with a timestamp so concurrent
// uploads of the same file never collide on disk.
func UniqueFileName(original string) string {
	base := filepath.Base(strings.TrimSpace(original))
	return fmt.Sprintf("%s_%s", time.Now().Format("20060102150405.000000"), base)
}
