package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/dyluth/shop/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// EnvExamplePath is written next to shop.yml.
const EnvExamplePath = ".env.example"

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes a starter shop.yml and .env.example into the working
// directory. If force is true, existing files are replaced.
func Initialize(force bool) ([]string, error) {
	if !force {
		if err := CheckExisting(); err != nil {
			return nil, err
		}
	}

	files, err := getTemplateFiles()
	if err != nil {
		return nil, err
	}

	if err := writeFiles(files); err != nil {
		return nil, err
	}

	if err := validateCreatedFiles(); err != nil {
		return nil, err
	}

	created := make([]string, len(files))
	for i, f := range files {
		created[i] = f.Path
	}
	return created, nil
}

// getTemplateFiles reads all template files
func getTemplateFiles() ([]FileInfo, error) {
	shopYml, err := templatesFS.ReadFile("templates/shop.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read shop.yml template: %w", err)
	}
	envExample, err := templatesFS.ReadFile("templates/env.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read .env template: %w", err)
	}

	return []FileInfo{
		{Path: config.DefaultPath, Content: shopYml, Permissions: 0644},
		{Path: EnvExamplePath, Content: envExample, Permissions: 0644},
	}, nil
}

// writeFiles writes all template files to disk
func writeFiles(files []FileInfo) error {
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

// validateCreatedFiles loads the written shop.yml the way every command will
func validateCreatedFiles() error {
	if _, err := config.Load(config.DefaultPath); err != nil {
		return fmt.Errorf("created %s is not valid: %w", config.DefaultPath, err)
	}
	return nil
}
