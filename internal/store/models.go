package store

import (
	"encoding/json"
	"strings"
	"time"
)

// RecommendationEvent records one served recommendation request.
type RecommendationEvent struct {
	ID             string `gorm:"primaryKey;size:36"`
	RequestID      string `gorm:"size:128;index"`
	Branch         string `gorm:"size:32;index"`
	Count          int
	ProductIDsJSON string `gorm:"type:text"`
	CategoriesJSON string `gorm:"type:text"`
	UnmatchedJSON  string `gorm:"type:text"`
	HistorySize    int
	DurationMs     int64
	Error          string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"index"`
}

// BranchCount aggregates events per pipeline branch.
type BranchCount struct {
	Branch string `json:"branch"`
	Total  int64  `json:"total"`
}

// SetProductIDs persists the recommended product ids as JSON.
func (e *RecommendationEvent) SetProductIDs(ids []string) {
	e.ProductIDsJSON = encodeList(ids)
}

// ProductIDs returns the recommended product ids.
func (e *RecommendationEvent) ProductIDs() []string {
	return decodeList(e.ProductIDsJSON)
}

// SetCategories persists the requested categories as JSON.
func (e *RecommendationEvent) SetCategories(categories []string) {
	e.CategoriesJSON = encodeList(categories)
}

// Categories returns the requested categories.
func (e *RecommendationEvent) Categories() []string {
	return decodeList(e.CategoriesJSON)
}

// SetUnmatched persists the model ids that did not resolve to a product.
func (e *RecommendationEvent) SetUnmatched(ids []string) {
	e.UnmatchedJSON = encodeList(ids)
}

// Unmatched returns the unresolved model ids.
func (e *RecommendationEvent) Unmatched() []string {
	return decodeList(e.UnmatchedJSON)
}

func encodeList(values []string) string {
	if values == nil {
		return "[]"
	}
	payload, _ := json.Marshal(values)
	return string(payload)
}

func decodeList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
