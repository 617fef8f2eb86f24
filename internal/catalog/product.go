package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxPromptProducts caps how many catalog entries are embedded in a recommendation prompt.
const MaxPromptProducts = 20

// Product is a catalog record. Only id and category carry meaning for the backend; every other
// attribute is passed through to clients untouched.
type Product map[string]any

// ID returns the product identifier, or an empty string when the record has none.
func (p Product) ID() string {
	return p.stringField("id")
}

// Category returns the product category, or an empty string when missing.
func (p Product) Category() string {
	return p.stringField("category")
}

// Name returns the display name when present.
func (p Product) Name() string {
	return p.stringField("name")
}

// Brand returns the brand attribute when present.
func (p Product) Brand() string {
	return p.stringField("brand")
}

func (p Product) stringField(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64, int, int64, bool:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

// FindByID returns the first product whose id equals the supplied value.
func FindByID(id string, products []Product) (Product, bool) {
	if id == "" {
		return nil, false
	}
	for _, product := range products {
		if product.ID() == id {
			return product, true
		}
	}
	return nil, false
}

// SubsetForPrompt narrows the catalog to the products a prompt may reference. Without categories the
// first MaxPromptProducts entries are used; otherwise the catalog is filtered by category first.
// Catalog order is preserved in both cases.
func SubsetForPrompt(products []Product, categories []string) []Product {
	wanted := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		wanted[category] = struct{}{}
	}

	subset := make([]Product, 0, MaxPromptProducts)
	for _, product := range products {
		if len(subset) == MaxPromptProducts {
			break
		}
		if len(wanted) > 0 {
			if _, ok := wanted[product.Category()]; !ok {
				continue
			}
		}
		subset = append(subset, product)
	}
	return subset
}

// Categories lists the distinct categories in catalog order.
func Categories(products []Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, product := range products {
		category := strings.TrimSpace(product.Category())
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	return out
}
