package models

// Category describes one screenplay collection the pipeline can file
// analyses under.
type Category struct {
	ID        string `json:"id" yaml:"id"`
	Label     string `json:"label" yaml:"label"`
	Tag       string `json:"tag,omitempty" yaml:"tag,omitempty"`
	OutputDir string `json:"outputDir" yaml:"output_dir"`
}

// CategoryCatalog is the set of known categories plus the default used
// when an upload does not name one.
type CategoryCatalog struct {
	DefaultCategory string     `json:"defaultCategory" yaml:"default_category"`
	Categories      []Category `json:"categories" yaml:"categories"`
}

// Find returns the category with the given ID.
func (c *CategoryCatalog) Find(id string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// CatalogInfo summarizes an installed catalog for API responses.
type CatalogInfo struct {
	Path            string `json:"path"`
	CategoryCount   int    `json:"categoryCount"`
	DefaultCategory string `json:"defaultCategory"`
}
