package api

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"product-recommender/backend/internal/ai"
	"product-recommender/backend/internal/catalog"
	"product-recommender/backend/internal/store"
	"product-recommender/backend/internal/util"
)

const (
	requestIDHeader = "X-Request-ID"
	sourceHeader    = "X-Recommendation-Source"
	requestIDKey    = "request_id"
)

// Config defines server dependencies.
type Config struct {
	DataPath      string
	AllowedOrigin string
	AIConfig      ai.Config
	AuditDBPath   string
	SilentDB      bool

	// Completer replaces the client built from AIConfig when set.
	Completer ai.Completer
	// Rand seeds fallback sampling when set.
	Rand *rand.Rand
}

// Server wires HTTP handlers with the catalog and the recommendation pipeline.
type Server struct {
	loader        *catalog.Loader
	pipeline      *ai.Pipeline
	audit         *store.Database
	allowedOrigin string
	model         string
}

// NewServer constructs the API server. Model availability is decided here, once.
func NewServer(cfg Config) (*Server, error) {
	completer := cfg.Completer
	model := ""
	if completer == nil {
		client, err := ai.NewClient(cfg.AIConfig)
		switch {
		case err == nil:
			completer = client
			model = client.Model()
			logrus.WithField("model", model).Info("recommendation model enabled")
		case errors.Is(err, ai.ErrDisabled):
			logrus.Info("recommendation model disabled - no API key configured, serving fallback picks")
		default:
			return nil, fmt.Errorf("ai client: %w", err)
		}
	}

	var opts []ai.Option
	if cfg.Rand != nil {
		opts = append(opts, ai.WithRand(cfg.Rand))
	}

	server := &Server{
		loader:        catalog.NewLoader(cfg.DataPath),
		pipeline:      ai.NewPipeline(completer, opts...),
		allowedOrigin: strings.TrimSpace(cfg.AllowedOrigin),
		model:         model,
	}

	if path := strings.TrimSpace(cfg.AuditDBPath); path != "" {
		db, err := store.Open(path, cfg.SilentDB)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		server.audit = db
		logrus.WithField("path", path).Info("recommendation audit log enabled")
	}

	logrus.WithField("data_path", server.loader.Path()).Info("catalog configured")
	return server, nil
}

// Close releases the audit database, if any.
func (s *Server) Close() error {
	return s.audit.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if s.allowedOrigin == "" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{s.allowedOrigin}
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.ExposeHeaders = []string{requestIDHeader, sourceHeader}
	r.Use(cors.New(corsCfg))
	r.Use(requestID())

	api := r.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/config", s.handleConfig)
		api.GET("/products", s.handleProducts)
		api.POST("/recommendations", s.handleRecommendations)
		api.GET("/recommendations/audit", s.handleAudit)
	}

	return r, nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	products := s.loader.Load()
	categories := catalog.Categories(products)
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, ConfigResponse{
		ModelEnabled: s.pipeline.ModelEnabled(),
		Model:        s.model,
		DataPath:     s.loader.Path(),
		CatalogSize:  len(products),
		Categories:   categories,
		AuditEnabled: s.audit != nil,
	})
}

func (s *Server) handleProducts(c *gin.Context) {
	products, err := s.loader.LoadErr()
	if err != nil {
		logrus.WithError(err).WithField("data_path", s.loader.Path()).Warn("catalog unavailable, serving empty list")
		products = []catalog.Product{}
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) handleRecommendations(c *gin.Context) {
	timer := util.StartTimer()

	req, err := decodeRecommendationRequest(c.Request.Body)
	if err != nil {
		if errors.Is(err, errNoData) {
			c.JSON(http.StatusBadRequest, gin.H{"error": noDataMessage})
			return
		}
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	products := s.loader.Load()
	outcome := s.pipeline.Recommend(c.Request.Context(), ai.Request{
		Preferences: req.Preferences,
		History:     req.BrowsingHistory,
		Products:    products,
	})
	s.recordOutcome(c, req, outcome, timer)

	c.Header(sourceHeader, string(outcome.Branch))
	c.JSON(http.StatusOK, outcome.Result)
}

func (s *Server) recordOutcome(c *gin.Context, req RecommendationRequest, outcome ai.Outcome, timer util.Timer) {
	fields := logrus.Fields{
		"request_id":   c.GetString(requestIDKey),
		"branch":       outcome.Branch,
		"count":        outcome.Result.Count,
		"history_size": len(req.BrowsingHistory),
		"duration_ms":  timer.ElapsedMs(),
	}
	if len(outcome.Unmatched) > 0 {
		fields["unmatched"] = outcome.Unmatched
	}
	if len(outcome.Browsed) > 0 {
		fields["browsed"] = outcome.Browsed
	}
	logrus.WithFields(fields).Info("recommendations served")

	if s.audit == nil {
		return
	}

	ids := make([]string, 0, len(outcome.Result.Recommendations))
	for _, rec := range outcome.Result.Recommendations {
		ids = append(ids, rec.Product.ID())
	}
	event := &store.RecommendationEvent{
		RequestID:   c.GetString(requestIDKey),
		Branch:      string(outcome.Branch),
		Count:       outcome.Result.Count,
		HistorySize: len(req.BrowsingHistory),
		DurationMs:  timer.ElapsedMs(),
	}
	event.SetProductIDs(ids)
	event.SetCategories(req.Preferences.Categories)
	event.SetUnmatched(outcome.Unmatched)
	if outcome.Err != nil {
		event.Error = outcome.Err.Error()
	}
	if err := s.audit.SaveEvent(event); err != nil {
		logrus.WithError(err).Warn("record recommendation event")
	}
}

func (s *Server) handleAudit(c *gin.Context) {
	if s.audit == nil {
		s.renderError(c, http.StatusNotFound, errors.New("audit log disabled"))
		return
	}

	limit := 50
	if value := strings.TrimSpace(c.Query("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", value))
			return
		}
		limit = parsed
	}

	events, err := s.audit.ListEvents(limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	totals, err := s.audit.BranchCounts()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	items := make([]AuditEventDTO, 0, len(events))
	for _, event := range events {
		items = append(items, AuditEventFromModel(event))
	}
	if totals == nil {
		totals = []store.BranchCount{}
	}
	c.JSON(http.StatusOK, AuditResponse{Items: items, Totals: totals})
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
