package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/screenplay-dashboard/backend/internal/models"
)

// Parse loads a category catalog from a YAML file.
func Parse(path string) (*models.CategoryCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return ParseFromReader(f)
}

// ParseFromReader loads a category catalog from a reader.
func ParseFromReader(r io.Reader) (*models.CategoryCatalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseFromBytes(data)
}

// ParseFromBytes loads a category catalog from YAML bytes.
func ParseFromBytes(data []byte) (*models.CategoryCatalog, error) {
	var c models.CategoryCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return &c, nil
}

// Default returns the built-in catalog used until an operator installs one.
func Default() *models.CategoryCatalog {
	return &models.CategoryCatalog{
		DefaultCategory: "randoms",
		Categories: []models.Category{
			{
				ID:        "blacklist-2024",
				Label:     "2024 Black List",
				Tag:       "BLKLST",
				OutputDir: "analysis_v3_2024",
			},
			{
				ID:        "randoms",
				Label:     "Randoms",
				OutputDir: "analysis_v3_randoms",
			},
		},
	}
}

// Validate checks a catalog before it is installed.
func Validate(c *models.CategoryCatalog) error {
	if c == nil || len(c.Categories) == 0 {
		return fmt.Errorf("catalog has no categories")
	}

	seen := make(map[string]bool)
	for i, cat := range c.Categories {
		if cat.ID == "" {
			return fmt.Errorf("category %d has no id", i)
		}
		if seen[cat.ID] {
			return fmt.Errorf("duplicate category id: %s", cat.ID)
		}
		seen[cat.ID] = true
		if cat.OutputDir == "" {
			return fmt.Errorf("category %s has no output_dir", cat.ID)
		}
	}

	if c.DefaultCategory != "" && !seen[c.DefaultCategory] {
		return fmt.Errorf("default category %s is not defined", c.DefaultCategory)
	}
	return nil
}

// Load reads the catalog at path, falling back to the built-in defaults
// when the file is missing or unusable.
func Load(path string) *models.CategoryCatalog {
	c, err := Parse(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("[Catalog] Warning: could not load %s, using defaults: %v\n", path, err)
		}
		return Default()
	}
	if err := Validate(c); err != nil {
		fmt.Printf("[Catalog] Warning: invalid catalog %s, using defaults: %v\n", path, err)
		return Default()
	}
	return c
}

// Save writes the catalog as YAML, atomically replacing any existing file.
func Save(c *models.CategoryCatalog, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace catalog file: %w", err)
	}
	return nil
}
