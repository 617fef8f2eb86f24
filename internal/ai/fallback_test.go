package ai

import (
	"fmt"
	"math/rand"
	"testing"

	"product-recommender/backend/internal/catalog"
)

func TestFallbackSize(t *testing.T) {
	tests := []struct {
		name     string
		catalog  int
		history  []string
		expected int
	}{
		{"empty catalog", 0, nil, 0},
		{"smaller than three", 2, nil, 2},
		{"excludes history", 4, []string{"p1"}, 3},
		{"exclusion leaves two", 4, []string{"p1", "p2"}, 2},
		{"everything browsed uses full catalog", 2, []string{"p1", "p2"}, 2},
		{"large catalog", 50, []string{"p1", "p2", "p3"}, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fallback(tc.history, makeProducts(tc.catalog), rand.New(rand.NewSource(1)))
			if result.Count != tc.expected || len(result.Recommendations) != tc.expected {
				t.Fatalf("expected %d got count=%d len=%d", tc.expected, result.Count, len(result.Recommendations))
			}
			if result.Recommendations == nil {
				t.Fatalf("expected non-nil recommendations")
			}
		})
	}
}

func TestFallbackExcludesHistoryWithoutReplacement(t *testing.T) {
	products := makeProducts(4)
	for seed := int64(0); seed < 50; seed++ {
		result := Fallback([]string{"p1"}, products, rand.New(rand.NewSource(seed)))
		seen := map[string]bool{}
		for _, rec := range result.Recommendations {
			id := rec.Product.ID()
			if id == "p1" {
				t.Fatalf("seed %d: history item recommended", seed)
			}
			if seen[id] {
				t.Fatalf("seed %d: %s picked twice", seed, id)
			}
			seen[id] = true
			if rec.ConfidenceScore != fallbackConfidence || rec.Explanation != fallbackExplanation {
				t.Fatalf("seed %d: unexpected fallback entry %+v", seed, rec)
			}
		}
	}
}

func TestFallbackNilRandUsesPackageSource(t *testing.T) {
	result := Fallback(nil, makeProducts(5), nil)
	if result.Count != 3 {
		t.Fatalf("expected 3 got %d", result.Count)
	}
}

func makeProducts(n int) []catalog.Product {
	products := make([]catalog.Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, catalog.Product{"id": fmt.Sprintf("p%d", i), "category": "home"})
	}
	return products
}
