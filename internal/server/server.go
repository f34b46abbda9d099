package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/personet/doppel/internal/config"
	"github.com/personet/doppel/internal/core"
	"github.com/personet/doppel/internal/core/ingest"
	"github.com/personet/doppel/internal/core/model"
	"github.com/personet/doppel/internal/core/scoring"
	"github.com/personet/doppel/internal/driver"
	"github.com/personet/doppel/internal/llm"
	"github.com/personet/doppel/internal/store"
)

type Server struct {
	Engine      *core.Engine
	Sync        *ingest.Sync
	Connections store.ConnectionStore
	Network     store.Network
}

// New wires a server from pre-built components. Tests use this with the
// in-memory store and a stub scorer.
func New(engine *core.Engine, sync *ingest.Sync, connections store.ConnectionStore, network store.Network) *Server {
	return &Server{
		Engine:      engine,
		Sync:        sync,
		Connections: connections,
		Network:     network,
	}
}

// NewServer builds the production wiring: Memgraph storage, the configured
// LLM provider, and config from CONFIG_PATH (default config/config.toml)
// with env-var overrides.
func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("Warning: could not load %s: %v. Using defaults.", cfgPath, err)
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}

	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		cfg.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		cfg.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		cfg.Memgraph.Password = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
		cfg.LLM.Model = "gpt-oss:latest"
		cfg.LLM.BaseURL = "http://localhost:11434"
	}

	d, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
	if err != nil {
		log.Fatalf("Failed to connect to Memgraph: %v", err)
	}
	if err := d.BuildIndices(context.Background()); err != nil {
		log.Printf("Warning: failed to build indices: %v", err)
	}

	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	st := store.NewMemgraph(d)
	scorer := scoring.NewClient(llmClient, cfg.Disambiguation.Prompt,
		time.Duration(cfg.Disambiguation.ScoreTimeoutSeconds)*time.Second)
	engine := core.NewEngine(st, scorer)

	return New(engine, ingest.NewSync(st, st), st, st)
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/comparisons", s.CompareNodes)
	r.GET("/comparisons/pending", s.PendingComparisons)
	r.GET("/comparisons/pair", s.ComparisonForPair)
	r.GET("/comparisons/:id", s.ComparisonDetails)
	r.POST("/comparisons/:id/analyze", s.AnalyzeComparison)
	r.POST("/comparisons/:id/confirm", s.ConfirmComparison)
	r.DELETE("/comparisons/:id", s.CancelComparison)

	r.POST("/merges", s.MergeNodes)
	r.GET("/nodes/:node/comparisons", s.ComparisonsForNode)
	r.GET("/nodes/:node/merges", s.MergesForNode)

	r.POST("/connections/added", s.ConnectionAdded)
	r.POST("/network/merge", s.ApplyMerge)

	return r
}

// statusFor maps the engine's error taxonomy onto HTTP statuses: validation
// errors 400, state-precondition conflicts 409, pre-filter rejection 422,
// anything external 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrComparisonNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidPair),
		errors.Is(err, core.ErrInvalidDecision),
		errors.Is(err, core.ErrInvalidKeepNode),
		errors.Is(err, core.ErrMissingInfo):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAlreadyDecided),
		errors.Is(err, core.ErrNotCancellable),
		errors.Is(err, core.ErrWrongDecision):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoSimilarity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

type CompareRequest struct {
	NodeA     string         `json:"node_a" binding:"required"`
	NodeB     string         `json:"node_b" binding:"required"`
	NodeAInfo model.Snapshot `json:"node_a_info"`
	NodeBInfo model.Snapshot `json:"node_b_info"`
}

func (s *Server) CompareNodes(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	id, err := s.Engine.CompareNodes(c.Request.Context(), req.NodeA, req.NodeB, req.NodeAInfo, req.NodeBInfo)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparison": id})
}

func (s *Server) AnalyzeComparison(c *gin.Context) {
	if err := s.Engine.AnalyzeComparison(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type ConfirmRequest struct {
	Decision string `json:"decision" binding:"required"`
}

func (s *Server) ConfirmComparison(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := s.Engine.ConfirmComparison(c.Request.Context(), c.Param("id"), model.Decision(req.Decision)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) CancelComparison(c *gin.Context) {
	if err := s.Engine.CancelComparison(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) ComparisonDetails(c *gin.Context) {
	cmp, err := s.Engine.ComparisonDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if cmp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": core.ErrComparisonNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (s *Server) ComparisonForPair(c *gin.Context) {
	nodeA := c.Query("node_a")
	nodeB := c.Query("node_b")
	cmp, err := s.Engine.ComparisonForPair(c.Request.Context(), nodeA, nodeB)
	if err != nil {
		fail(c, err)
		return
	}
	comparisons := []model.Comparison{}
	if cmp != nil {
		comparisons = append(comparisons, *cmp)
	}
	c.JSON(http.StatusOK, gin.H{"comparisons": comparisons})
}

func (s *Server) ComparisonsForNode(c *gin.Context) {
	comparisons, err := s.Engine.ComparisonsForNode(c.Request.Context(), c.Param("node"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparisons": comparisons})
}

func (s *Server) PendingComparisons(c *gin.Context) {
	comparisons, err := s.Engine.PendingComparisons(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comparisons": comparisons})
}

func (s *Server) MergesForNode(c *gin.Context) {
	merges, err := s.Engine.MergesForNode(c.Request.Context(), c.Param("node"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"merges": merges})
}

type MergeRequest struct {
	Comparison string `json:"comparison" binding:"required"`
	KeepNode   string `json:"keep_node" binding:"required"`
}

func (s *Server) MergeNodes(c *gin.Context) {
	var req MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	m, err := s.Engine.MergeNodes(c.Request.Context(), req.Comparison, req.KeepNode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"merge": m})
}

type ConnectionAddedRequest struct {
	Account    string         `json:"account" binding:"required"`
	Connection string         `json:"connection" binding:"required"`
	Owner      string         `json:"owner" binding:"required"`
	ProfileURL string         `json:"profile_url"`
	Attributes model.Snapshot `json:"attributes"`
}

// ConnectionAdded records the imported connection and runs the
// canonicalization sync, answering with the node that joined the network.
func (s *Server) ConnectionAdded(c *gin.Context) {
	var req ConnectionAddedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := s.Connections.SaveConnection(c.Request.Context(), &model.Connection{
		UUID:       req.Connection,
		Account:    req.Account,
		ProfileURL: req.ProfileURL,
		Attributes: req.Attributes,
	})
	if err != nil {
		log.Printf("Failed to save connection: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save connection"})
		return
	}

	node, err := s.Sync.ConnectionAdded(c.Request.Context(), req.Account, req.Connection, req.Owner)
	if err != nil {
		log.Printf("Failed to sync connection: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync connection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"node": node})
}

type ApplyMergeRequest struct {
	Absorbed  string `json:"absorbed" binding:"required"`
	Canonical string `json:"canonical" binding:"required"`
}

// ApplyMerge repoints the absorbed node's graph memberships onto the
// canonical node. Invoked by the caller after MergeNodes; never chained
// automatically.
func (s *Server) ApplyMerge(c *gin.Context) {
	var req ApplyMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := s.Network.ApplyMerge(c.Request.Context(), req.Absorbed, req.Canonical); err != nil {
		log.Printf("Failed to apply merge: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply merge"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
