package ai

import (
	"math/rand"

	"product-recommender/backend/internal/catalog"
)

const (
	fallbackExplanation = "This MOCK recommendation is a great fit!"
	fallbackConfidence  = 8
	maxRecommendations  = 3
)

// Fallback picks up to three random products the user has not browsed. When every product is in the
// history the whole catalog is sampled instead, so history items may reappear in that case.
// A nil rng uses the package-level source.
func Fallback(history []string, products []catalog.Product, rng *rand.Rand) Result {
	seen := make(map[string]struct{}, len(history))
	for _, id := range history {
		seen[id] = struct{}{}
	}

	available := make([]catalog.Product, 0, len(products))
	for _, product := range products {
		if _, ok := seen[product.ID()]; ok {
			continue
		}
		available = append(available, product)
	}
	if len(available) == 0 {
		available = products
	}

	n := len(available)
	if n > maxRecommendations {
		n = maxRecommendations
	}
	perm := rand.Perm
	if rng != nil {
		perm = rng.Perm
	}

	recs := make([]Recommendation, 0, n)
	for _, idx := range perm(len(available))[:n] {
		recs = append(recs, Recommendation{
			Product:         available[idx],
			Explanation:     fallbackExplanation,
			ConfidenceScore: fallbackConfidence,
		})
	}
	return newResult(recs)
}
