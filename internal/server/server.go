// Package server exposes the pipeline over HTTP. The surface mirrors
// the tutoring API: chat, knowledge-base initialization, health and a
// demo smoke-test endpoint.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tutor-rag/internal/config"
	"tutor-rag/internal/models"
	"tutor-rag/internal/rag"
)

type Server struct {
	pipeline *rag.Pipeline
	cfg      *config.Config
}

func New(pipeline *rag.Pipeline, cfg *config.Config) *Server {
	return &Server{pipeline: pipeline, cfg: cfg}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	api.POST("/chat", s.handleChat)
	api.POST("/initialize", s.handleInitialize)
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/debug-search/:query", s.handleDebugSearch)
	r.GET("/demo", s.handleDemo)

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	return s.Router().Run(addr)
}

type chatRequest struct {
	Query        string   `json:"query" binding:"required"`
	UserType     string   `json:"user_type"`
	WeakSubjects []string `json:"weak_subjects"`
	SessionID    string   `json:"session_id"`
}

type retrievedChunkResponse struct {
	Excerpt    string  `json:"excerpt"`
	Source     string  `json:"source"`
	Chapter    string  `json:"chapter"`
	Page       int     `json:"page"`
	Similarity float32 `json:"similarity"`
}

type chatResponse struct {
	Query           string                   `json:"query"`
	Answer          string                   `json:"answer"`
	Retrieved       []retrievedChunkResponse `json:"retrieved_chunks"`
	MatchedTopics   []string                 `json:"matched_topics"`
	Personalized    bool                     `json:"personalization_applied"`
	ProcessingTime  float64                  `json:"processing_time"`
	Usage           models.TokenUsage        `json:"usage"`
	GenerateRetries int                      `json:"generate_retries"`
	SessionID       string                   `json:"session_id"`
	Error           string                   `json:"error,omitempty"`
}

const excerptLimit = 300

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	userType, err := models.ParseStudentType(req.UserType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result := s.pipeline.Query(c.Request.Context(), models.QueryRequest{
		Query: req.Query,
		Profile: models.StudentProfile{
			UserType:     userType,
			WeakSubjects: req.WeakSubjects,
		},
		SessionID: req.SessionID,
	})

	c.JSON(http.StatusOK, toChatResponse(result, req.SessionID))
}

func toChatResponse(result *models.PipelineResult, sessionID string) chatResponse {
	resp := chatResponse{
		Query:           result.Query,
		Answer:          result.Answer,
		MatchedTopics:   result.MatchedTopics,
		Personalized:    result.Personalized,
		ProcessingTime:  result.TotalDuration.Seconds(),
		Usage:           result.Usage,
		GenerateRetries: result.GenerateRetries,
		SessionID:       sessionID,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	for _, rc := range result.Retrieved {
		resp.Retrieved = append(resp.Retrieved, toChunkResponse(rc))
	}
	return resp
}

func toChunkResponse(rc models.RetrievedChunk) retrievedChunkResponse {
	return retrievedChunkResponse{
		Excerpt:    truncateExcerpt(rc.Chunk.Content),
		Source:     rc.Chunk.Source,
		Chapter:    rc.Chunk.Chapter,
		Page:       rc.Chunk.Page,
		Similarity: rc.Similarity,
	}
}

// truncateExcerpt cuts on a rune boundary so the JSON never carries
// invalid UTF-8.
func truncateExcerpt(s string) string {
	if len(s) <= excerptLimit {
		return s
	}
	cut := excerptLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func (s *Server) handleInitialize(c *gin.Context) {
	start := time.Now()
	report, err := s.pipeline.InitializeKnowledgeBase(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"documents_seen":    report.DocumentsSeen,
		"documents_skipped": report.DocumentsSkipped,
		"documents_removed": report.DocumentsRemoved,
		"chunks_stored":     report.ChunksStored,
		"errors":            report.Errors,
		"processing_time":   time.Since(start).Seconds(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.pipeline.Health(c.Request.Context()))
}

func (s *Server) handleStats(c *gin.Context) {
	status := s.pipeline.Health(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"total_chunks":    status.ChunkCount,
		"store_backend":   status.StoreBackend,
		"collection":      s.cfg.Store.Collection,
		"documents_dir":   s.cfg.Documents.Dir,
		"embedding_model": s.cfg.EmbedLLM.Model,
		"chat_model":      s.cfg.ChatLLM.Model,
	})
}

// handleDebugSearch exposes raw retrieval results without generation,
// for inspecting what grounding a query would get.
func (s *Server) handleDebugSearch(c *gin.Context) {
	query := c.Param("query")
	retrieved, err := s.pipeline.Retrieve(c.Request.Context(), query)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, models.ErrIndexUnavailable) {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}

	results := make([]retrievedChunkResponse, 0, len(retrieved))
	for _, rc := range retrieved {
		results = append(results, toChunkResponse(rc))
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleDemo(c *gin.Context) {
	results := s.pipeline.Demo(c.Request.Context())
	responses := make([]chatResponse, 0, len(results))
	for _, r := range results {
		responses = append(responses, toChatResponse(r, "demo"))
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Sample queries across representative student profiles.",
		"sample_queries": models.DemoQueries,
		"results":        responses,
	})
}
