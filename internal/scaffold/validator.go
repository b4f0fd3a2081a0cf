package scaffold

import (
	"fmt"
	"os"
	"strings"
)

// CheckExisting returns an error if shop.yml or .env.example already exist.
func CheckExisting() error {
	var existingFiles []string
	for _, path := range []string{"shop.yml", EnvExamplePath} {
		if _, err := os.Stat(path); err == nil {
			existingFiles = append(existingFiles, path)
		}
	}

	if len(existingFiles) == 0 {
		return nil
	}
	return &ExistingError{Files: existingFiles}
}

// ExistingError reports files init would overwrite.
type ExistingError struct {
	Files []string
}

func (e *ExistingError) Error() string {
	return fmt.Sprintf("already initialized: found %s", strings.Join(e.Files, ", "))
}
