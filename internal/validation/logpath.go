package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LogPathValidator keeps log output inside a small set of directories.
type LogPathValidator struct {
	// AllowedBaseDirs restricts log files to these directories; empty allows all
	AllowedBaseDirs []string
	MaxPathLength   int
}

func NewLogPathValidator() *LogPathValidator {
	homeDir, _ := os.UserHomeDir()
	return &LogPathValidator{
		AllowedBaseDirs: []string{
			filepath.Join(homeDir, ".quip"),
			filepath.Join(homeDir, ".cache", "quip"),
			os.TempDir(),
		},
		MaxPathLength: 4096,
	}
}

// DefaultLogPath is where the log goes when none is configured.
func DefaultLogPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".quip", "quip.log")
}

// ValidateFile expands and cleans path and checks it is a writable-looking
// file location inside an allowed directory. An empty path yields
// DefaultLogPath.
func (v *LogPathValidator) ValidateFile(path string) (string, error) {
	if path == "" {
		path = DefaultLogPath()
	}
	if len(path) > v.MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", v.MaxPathLength)
	}
	if strings.Contains(path, "\x00") {
		return "", fmt.Errorf("path contains null bytes")
	}
	for _, char := range path {
		if char < 32 && char != '\t' {
			return "", fmt.Errorf("path contains control characters")
		}
	}

	if len(path) >= 2 && path[:2] == "~/" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	for _, component := range strings.Split(filepath.ToSlash(path), "/") {
		if component == ".." {
			return "", fmt.Errorf("directory traversal not allowed")
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot make path absolute: %w", err)
	}
	abs = filepath.Clean(abs)

	if err := v.validateBaseDirs(abs); err != nil {
		return "", err
	}

	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", abs)
	}

	return abs, nil
}

func (v *LogPathValidator) validateBaseDirs(path string) error {
	if len(v.AllowedBaseDirs) == 0 {
		return nil
	}

	for _, baseDir := range v.AllowedBaseDirs {
		absBaseDir, err := filepath.Abs(baseDir)
		if err != nil {
			continue
		}
		relPath, err := filepath.Rel(absBaseDir, path)
		if err != nil {
			continue
		}
		if relPath != ".." && !strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("path not within allowed directories: %v", v.AllowedBaseDirs)
}
