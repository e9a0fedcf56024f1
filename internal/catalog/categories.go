package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/blackwell-systems/caskctl/internal/cask"
)

//go:embed categories.json
var categoriesJSON []byte

// LoadCategories parses the bundled category manifest. A manifest that fails
// to parse is a structural failure: the caller must surface it, not degrade.
func LoadCategories() ([]cask.Category, error) {
	return ParseCategories(categoriesJSON)
}

// ParseCategories decodes a category manifest payload.
func ParseCategories(data []byte) ([]cask.Category, error) {
	var categories []cask.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("parse category manifest: %w", err)
	}
	return categories, nil
}
