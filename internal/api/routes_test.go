package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"product-recommender/backend/internal/ai"
)

const testOrigin = "https://shop.example.com"

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Enabled() bool { return true }

func (s stubCompleter) Complete(context.Context, string) (string, error) {
	return s.reply, s.err
}

type recommendationsBody struct {
	Recommendations []struct {
		Product         map[string]any `json:"product"`
		Explanation     string         `json:"explanation"`
		ConfidenceScore int            `json:"confidence_score"`
	} `json:"recommendations"`
	Count int `json:"count"`
}

func newTestRouter(t *testing.T, cfg Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = testOrigin
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(3))
	}
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = server.Close() })
	router, err := server.Router()
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return router
}

func writeCatalog(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

const fourProducts = `[
	{"id": "p1", "name": "Lamp", "category": "home", "price": 20},
	{"id": "p2", "name": "Phone", "category": "electronics", "price": 499},
	{"id": "p3", "name": "Puzzle", "category": "toys", "price": 15},
	{"id": "p4", "name": "Kettle", "category": "home", "price": 35}
]`

func perform(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestProductsMissingCatalogReturnsEmptyArray(t *testing.T) {
	router := newTestRouter(t, Config{DataPath: filepath.Join(t.TempDir(), "missing.json")})

	rec := perform(router, http.MethodGet, "/api/products", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected [] got %s", rec.Body.String())
	}
}

func TestProductsReturnsCatalog(t *testing.T) {
	router := newTestRouter(t, Config{DataPath: writeCatalog(t, fourProducts)})

	rec := perform(router, http.MethodGet, "/api/products", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var products []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 4 || products[1]["name"] != "Phone" || products[1]["price"] != float64(499) {
		t.Fatalf("unexpected products %v", products)
	}
}

func TestRecommendationsRejectsMissingBody(t *testing.T) {
	router := newTestRouter(t, Config{DataPath: writeCatalog(t, fourProducts)})

	for _, body := range []string{"", "not json", "{}", "null", "[]", `"text"`} {
		t.Run(body, func(t *testing.T) {
			rec := perform(router, http.MethodPost, "/api/recommendations", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", rec.Code)
			}
			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if payload["error"] != "No data provided" {
				t.Fatalf("unexpected error payload %v", payload)
			}
		})
	}
}

func TestRecommendationsRejectsWrongFieldTypes(t *testing.T) {
	router := newTestRouter(t, Config{DataPath: writeCatalog(t, fourProducts)})

	rec := perform(router, http.MethodPost, "/api/recommendations", `{"browsing_history": "p1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "browsing_history") {
		t.Fatalf("expected field name in error, got %s", rec.Body.String())
	}
}

func TestRecommendationsFallbackWithoutCredential(t *testing.T) {
	router := newTestRouter(t, Config{DataPath: writeCatalog(t, fourProducts)})

	rec := perform(router, http.MethodPost, "/api/recommendations", `{"browsing_history": ["p1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if got := rec.Header().Get(sourceHeader); got != string(ai.BranchFallbackUnavailable) {
		t.Fatalf("expected fallback source header got %q", got)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	var body recommendationsBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 3 || len(body.Recommendations) != 3 {
		t.Fatalf("expected 3 recommendations got %+v", body)
	}
	for _, r := range body.Recommendations {
		if r.Product["id"] == "p1" {
			t.Fatalf("browsed product recommended")
		}
		if r.ConfidenceScore != 8 {
			t.Fatalf("expected confidence 8 got %d", r.ConfidenceScore)
		}
	}
}

func TestRecommendationsModelBranches(t *testing.T) {
	tests := []struct {
		name        string
		completer   stubCompleter
		branch      ai.Branch
		expectCount int
	}{
		{
			name:        "model reply",
			completer:   stubCompleter{reply: "```json\n{\"recommendations\":[{\"product_id\":\"p2\",\"explanation\":\"Popular.\",\"confidence_score\":9},{\"product_id\":\"nope\"}]}\n```"},
			branch:      ai.BranchModel,
			expectCount: 1,
		},
		{
			name:        "model error",
			completer:   stubCompleter{err: ai.ErrModelCall},
			branch:      ai.BranchFallbackModelError,
			expectCount: 3,
		},
		{
			name:        "unparseable reply",
			completer:   stubCompleter{reply: "sorry, I cannot help"},
			branch:      ai.BranchParseFailed,
			expectCount: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, Config{DataPath: writeCatalog(t, fourProducts), Completer: tc.completer})

			rec := perform(router, http.MethodPost, "/api/recommendations", `{"preferences": {"categories": ["electronics"]}, "browsing_history": ["p1"]}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d", rec.Code)
			}
			if got := rec.Header().Get(sourceHeader); got != string(tc.branch) {
				t.Fatalf("expected source %s got %s", tc.branch, got)
			}
			var body recommendationsBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Count != tc.expectCount || len(body.Recommendations) != tc.expectCount {
				t.Fatalf("expected %d recommendations got %+v", tc.expectCount, body)
			}
			if !strings.Contains(rec.Body.String(), `"recommendations":[`) {
				t.Fatalf("expected recommendations array in %s", rec.Body.String())
			}
		})
	}
}

func TestAuditLog(t *testing.T) {
	dataPath := writeCatalog(t, fourProducts)

	disabled := newTestRouter(t, Config{DataPath: dataPath})
	if rec := perform(disabled, http.MethodGet, "/api/recommendations/audit", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when audit disabled got %d", rec.Code)
	}

	router := newTestRouter(t, Config{
		DataPath:    dataPath,
		AuditDBPath: filepath.Join(t.TempDir(), "audit.db"),
		SilentDB:    true,
	})
	for i := 0; i < 2; i++ {
		if rec := perform(router, http.MethodPost, "/api/recommendations", `{"browsing_history": ["p2"]}`); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
	}

	if rec := perform(router, http.MethodGet, "/api/recommendations/audit?limit=zero", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid limit got %d", rec.Code)
	}

	rec := perform(router, http.MethodGet, "/api/recommendations/audit?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var audit AuditResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &audit); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(audit.Items) != 1 || audit.Items[0].Branch != string(ai.BranchFallbackUnavailable) || audit.Items[0].Count != 3 {
		t.Fatalf("unexpected audit items %+v", audit.Items)
	}
	if len(audit.Totals) != 1 || audit.Totals[0].Total != 2 {
		t.Fatalf("unexpected totals %+v", audit.Totals)
	}
}

func TestConfigAndHealth(t *testing.T) {
	router := newTestRouter(t, Config{DataPath: writeCatalog(t, fourProducts)})

	if rec := perform(router, http.MethodGet, "/api/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	rec := perform(router, http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var cfg ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.ModelEnabled || cfg.CatalogSize != 4 || len(cfg.Categories) != 3 || cfg.AuditEnabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestCORSAllowsOnlyConfiguredOrigin(t *testing.T) {
	router := newTestRouter(t, Config{DataPath: writeCatalog(t, fourProducts)})

	allowed := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	allowed.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, allowed)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != testOrigin {
		t.Fatalf("expected allowed origin, got %d %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}

	foreign := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	foreign.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, foreign)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign origin got %d", rec.Code)
	}
}
