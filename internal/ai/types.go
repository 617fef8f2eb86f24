package ai

import (
	"product-recommender/backend/internal/catalog"
)

// Preferences captures optional user constraints. Absent fields mean no constraint.
type Preferences struct {
	PriceRange string   `json:"priceRange,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Brands     []string `json:"brands,omitempty"`
}

// Request bundles the inputs of one recommendation run.
type Request struct {
	Preferences Preferences
	History     []string
	Products    []catalog.Product
}

// Recommendation pairs a catalog product with the reason it was picked.
type Recommendation struct {
	Product         catalog.Product `json:"product"`
	Explanation     string          `json:"explanation"`
	ConfidenceScore int             `json:"confidence_score"`
}

// Result is the payload returned to API callers.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Count           int              `json:"count"`
}

func newResult(recs []Recommendation) Result {
	if recs == nil {
		recs = []Recommendation{}
	}
	return Result{Recommendations: recs, Count: len(recs)}
}

// Branch names the path through the pipeline that produced a result.
type Branch string

const (
	// BranchModel means the model answered and its reply was decoded.
	BranchModel Branch = "model"
	// BranchParseFailed means the model answered with text that could not be decoded; the result is empty.
	BranchParseFailed Branch = "parse_failed"
	// BranchFallbackUnavailable means no credential is configured and the random selector was used.
	BranchFallbackUnavailable Branch = "fallback_unavailable"
	// BranchFallbackModelError means the model call failed and the random selector was used.
	BranchFallbackModelError Branch = "fallback_model_error"
)

// IsFallback reports whether the branch served random picks.
func (b Branch) IsFallback() bool {
	return b == BranchFallbackUnavailable || b == BranchFallbackModelError
}

// Outcome is the result of a pipeline run together with how it was produced. Unmatched and Browsed
// list model picks dropped because they are not in the catalog or are already in the history.
type Outcome struct {
	Result    Result
	Branch    Branch
	Err       error
	Unmatched []string
	Browsed   []string
}
