package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docqa/internal/auth"
	"docqa/internal/domain"
	"docqa/internal/ingest"
	"docqa/internal/rag"
	"docqa/internal/router"
)

// Server exposes authentication, ingestion and query endpoints over HTTP.
type Server struct {
	engine   *gin.Engine
	auth     *auth.Service
	router   *router.Router
	ingestor *ingest.Ingestor
	log      *slog.Logger
}

// New builds the HTTP server and registers all routes.
func New(authSvc *auth.Service, taskRouter *router.Router, ingestor *ingest.Ingestor, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   gin.New(),
		auth:     authSvc,
		router:   taskRouter,
		ingestor: ingestor,
		log:      log.With("component", "server"),
	}
	s.engine.Use(gin.Recovery())

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/api/auth/token", s.handleToken)

	api := s.engine.Group("/api", s.requireToken)
	api.POST("/query", s.handleQuery)
	api.POST("/ingest", s.handleIngest)
	return s
}

// Run blocks serving HTTP on the given port.
func (s *Server) Run(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.log.Info("listening", "addr", addr)
	return s.engine.Run(addr)
}

// Handler returns the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	token, expires, err := s.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.log.Error("token issuance failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expires.UTC().Format(time.RFC3339)})
}

const userKey = "authUser"

func (s *Server) requireToken(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	user, err := s.auth.Validate(strings.TrimSpace(raw))
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, auth.ErrExpiredToken) {
			msg = "token expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}
	c.Set(userKey, user)
	c.Next()
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
	Task  string `json:"task"`
	TopK  int    `json:"top_k"`
}

type citation struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

type queryResponse struct {
	Task            string     `json:"task"`
	Answer          string     `json:"answer,omitempty"`
	Citations       []citation `json:"citations,omitempty"`
	DBResult        string     `json:"db_result,omitempty"`
	CompletionError string     `json:"completion_error,omitempty"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	tc := router.TaskContext{
		Task:       router.Task(req.Task),
		Authorized: true,
		User:       c.GetString(userKey),
		Query:      req.Query,
	}
	res, err := s.router.Route(c.Request.Context(), tc, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, router.ErrNoDBRunner):
			c.JSON(http.StatusNotImplemented, gin.H{"error": "database tasks are not configured"})
		case errors.Is(err, rag.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": "query must not be empty"})
		default:
			s.log.Error("query failed", "user", tc.User, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	resp := queryResponse{Task: string(res.Task), DBResult: res.DBResult}
	if res.Task == router.TaskRAG {
		resp.Answer = res.Answer.Text
		if res.Answer.CompletionErr != nil {
			resp.CompletionError = res.Answer.CompletionErr.Error()
		}
		for _, r := range res.Answer.Retrieved {
			src, _ := r.Payload[domain.PayloadSource].(string)
			idx := -1
			switch v := r.Payload[domain.PayloadChunkIndex].(type) {
			case int:
				idx = v
			case int64:
				idx = int(v)
			case float64:
				idx = int(v)
			}
			resp.Citations = append(resp.Citations, citation{Source: src, ChunkIndex: idx, Score: r.Score})
		}
	}
	c.JSON(http.StatusOK, resp)
}

type ingestRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	count, err := s.ingestor.Ingest(c.Request.Context(), req.Path)
	if err != nil {
		s.log.Error("ingest failed", "path", req.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": req.Path, "chunks": count})
}
