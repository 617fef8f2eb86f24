package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"product-recommender/backend/internal/ai"
	"product-recommender/backend/internal/store"
)

const noDataMessage = "No data provided"

var errNoData = errors.New("no data provided")

// RecommendationRequest is the decoded body of POST /api/recommendations.
type RecommendationRequest struct {
	Preferences     ai.Preferences `json:"preferences"`
	BrowsingHistory []string       `json:"browsing_history"`
}

// decodeRecommendationRequest requires a non-empty JSON object. Missing fields default to empty values.
func decodeRecommendationRequest(body io.Reader) (RecommendationRequest, error) {
	var req RecommendationRequest
	if body == nil {
		return req, errNoData
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil || len(raw) == 0 {
		return req, errNoData
	}

	if value, ok := raw["preferences"]; ok && !isNull(value) {
		if err := json.Unmarshal(value, &req.Preferences); err != nil {
			return req, fmt.Errorf("invalid preferences: %w", err)
		}
	}
	if value, ok := raw["browsing_history"]; ok && !isNull(value) {
		if err := json.Unmarshal(value, &req.BrowsingHistory); err != nil {
			return req, fmt.Errorf("invalid browsing_history: %w", err)
		}
	}
	if req.BrowsingHistory == nil {
		req.BrowsingHistory = []string{}
	}
	return req, nil
}

func isNull(value json.RawMessage) bool {
	return string(value) == "null"
}

// ConfigResponse describes the running backend.
type ConfigResponse struct {
	ModelEnabled bool     `json:"model_enabled"`
	Model        string   `json:"model,omitempty"`
	DataPath     string   `json:"data_path"`
	CatalogSize  int      `json:"catalog_size"`
	Categories   []string `json:"categories"`
	AuditEnabled bool     `json:"audit_enabled"`
}

// AuditEventDTO is the API representation of a stored recommendation event.
type AuditEventDTO struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	Branch      string    `json:"branch"`
	Count       int       `json:"count"`
	ProductIDs  []string  `json:"product_ids"`
	Categories  []string  `json:"categories"`
	Unmatched   []string  `json:"unmatched"`
	HistorySize int       `json:"history_size"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuditResponse lists recent events with per-branch totals.
type AuditResponse struct {
	Items  []AuditEventDTO     `json:"items"`
	Totals []store.BranchCount `json:"totals"`
}

// AuditEventFromModel converts a stored event into its DTO.
func AuditEventFromModel(event store.RecommendationEvent) AuditEventDTO {
	return AuditEventDTO{
		ID:          event.ID,
		RequestID:   event.RequestID,
		Branch:      event.Branch,
		Count:       event.Count,
		ProductIDs:  nonNil(event.ProductIDs()),
		Categories:  nonNil(event.Categories()),
		Unmatched:   nonNil(event.Unmatched()),
		HistorySize: event.HistorySize,
		DurationMs:  event.DurationMs,
		Error:       event.Error,
		CreatedAt:   event.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
