package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"product-recommender/backend/internal/catalog"
)

// BuildPrompt renders the recommendation instruction for the model. Only the category-filtered
// catalog subset (at most catalog.MaxPromptProducts entries) is embedded.
func BuildPrompt(prefs Preferences, history []string, products []catalog.Product) (string, error) {
	subset := catalog.SubsetForPrompt(products, prefs.Categories)
	productsJSON, err := json.MarshalIndent(subset, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prompt products: %w", err)
	}

	builder := &strings.Builder{}
	builder.WriteString("You are an expert eCommerce recommendation engine.\n")
	builder.WriteString("A user has provided their preferences, browsing history, and a product catalog.\n")
	builder.WriteString("Your task is to recommend up to 3 products.\n\n")

	builder.WriteString("**User Preferences:**\n")
	fmt.Fprintf(builder, "- Price Range: %s\n", orDefault(prefs.PriceRange, "all"))
	fmt.Fprintf(builder, "- Categories: %s\n", joinOrDefault(prefs.Categories, "any"))
	fmt.Fprintf(builder, "- Brands: %s\n\n", joinOrDefault(prefs.Brands, "any"))

	builder.WriteString("**User Browsing History (by product_id):**\n")
	fmt.Fprintf(builder, "%s\n\n", joinOrDefault(history, "None"))

	builder.WriteString("**Available Product Catalog (JSON format):**\n")
	builder.Write(productsJSON)
	builder.WriteString("\n\n")

	builder.WriteString("**Instructions:**\n")
	builder.WriteString("1. Analyze the user's preferences AND their browsing history.\n")
	builder.WriteString("2. Recommend up to 3 products, chosen only from the catalog above, that best match the user's combined interests.\n")
	builder.WriteString("3. **Crucially, DO NOT recommend any product whose product_id is already in the browsing history.**\n")
	builder.WriteString("4. For each recommendation, provide a brief (1-sentence) explanation for *why* you chose it.\n")
	builder.WriteString("5. Provide an integer confidence_score (1-10) for how good you think the match is.\n\n")

	builder.WriteString("**Required Output Format (JSON ONLY):**\n")
	builder.WriteString("Return *only* a single valid JSON object in this exact format and nothing else:\n")
	builder.WriteString(`{
  "recommendations": [
    {
      "product_id": "prod_id_here",
      "explanation": "Your 1-sentence explanation here.",
      "confidence_score": 8
    }
  ]
}
`)
	return builder.String(), nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func joinOrDefault(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
