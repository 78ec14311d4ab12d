package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NewID returns a new random UUID string.
func NewID() string {
	return uuid.New().String()
}

// IsValidID reports whether id is a well-formed UUID.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ShortCode returns the first n upper-cased hex characters of a fresh UUID.
func ShortCode(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

// ContainsString reports whether `s` is in `list`.
func ContainsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run during tests,
// so walk up until the module root is found.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}

// ContainsFold reports whether any of `values` contains `substr`, ignoring case.
func ContainsFold(substr string, values ...string) bool {
	substr = strings.ToLower(substr)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), substr) {
			return true
		}
	}
	return false
}
