package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ooocheckitout/llm-knowledge-base/internal/ingest"
	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
	"github.com/ooocheckitout/llm-knowledge-base/internal/rag"
	"github.com/ooocheckitout/llm-knowledge-base/internal/telemetry"
	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore"
)

// Server exposes the ingestion and completion pipelines over HTTP. The API
// is consumed by trusted front-ends (the bot and local tooling) and carries
// no authentication, matching how it is deployed.
type Server struct {
	ingest  *ingest.Pipeline
	rag     *rag.Pipeline
	metrics *telemetry.Metrics
	logger  *log.Logger
}

func New(ingestPipeline *ingest.Pipeline, ragPipeline *rag.Pipeline, metrics *telemetry.Metrics, logger *log.Logger) *Server {
	return &Server{ingest: ingestPipeline, rag: ragPipeline, metrics: metrics, logger: logger}
}

// Echo builds the configured echo instance without starting it, so tests can
// drive it through httptest.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	chats := e.Group("/users/:user_id/chats/:chat_id")
	chats.POST("/complete", s.handleComplete)
	chats.POST("/remember", s.handleRemember)
	// Older route name, kept for existing clients.
	chats.POST("/vectorize", s.handleRemember)
	chats.POST("/similarity", s.handleSimilarity)
	chats.POST("/forget", s.handleForget)
	chats.POST("/forgetAll", s.handleForgetAll)

	return e
}

// Run starts the HTTP server and blocks.
func (s *Server) Run(addr string) error {
	e := s.Echo()
	s.logger.Printf("listening on %s", addr)
	return e.Start(addr)
}

func sessionID(c echo.Context) string {
	return knowledge.SessionID(c.Param("user_id"), c.Param("chat_id"))
}

type promptRequest struct {
	Question string `json:"question"`
}

type completionResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleComplete(c echo.Context) error {
	var req promptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	started := time.Now()
	answer, err := s.rag.Complete(c.Request().Context(), sessionID(c), req.Question)
	if err != nil {
		return err
	}
	s.metrics.Completions.Inc()
	s.metrics.CompletionSeconds.Observe(time.Since(started).Seconds())
	return c.JSON(http.StatusOK, completionResponse{Answer: answer})
}

type information struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

type identifiable struct {
	ID string `json:"id"`
}

func (s *Server) handleRemember(c echo.Context) error {
	var infos []information
	if err := c.Bind(&infos); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(infos) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no documents provided")
	}

	docs := make([]knowledge.Document, len(infos))
	for i, info := range infos {
		docs[i] = knowledge.NewDocument(info.Content, info.Metadata)
	}

	ids, err := s.ingest.Ingest(c.Request().Context(), sessionID(c), docs)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyContent) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return err
	}
	s.metrics.DocumentsIngested.Add(float64(len(docs)))
	s.metrics.ChunksStored.Add(float64(len(ids)))

	out := make([]identifiable, len(ids))
	for i, id := range ids {
		out[i] = identifiable{ID: id}
	}
	return c.JSON(http.StatusOK, out)
}

type searchRequest struct {
	Query    string            `json:"query"`
	NResults int               `json:"n_results"`
	Filter   map[string]string `json:"filter"`
}

type embeddingResponse struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
	Content  string            `json:"content"`
}

func (s *Server) handleSimilarity(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	hits, err := s.rag.Similarity(c.Request().Context(), sessionID(c), req.Query, req.NResults, req.Filter)
	if err != nil {
		return err
	}

	out := make([]embeddingResponse, len(hits))
	for i, hit := range hits {
		out[i] = embeddingResponse{ID: hit.ID, Metadata: hit.Metadata, Content: hit.Content}
	}
	return c.JSON(http.StatusOK, out)
}

type filterRequest struct {
	Filter map[string]string `json:"filter"`
}

func (s *Server) handleForget(c echo.Context) error {
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Filter) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "filter is required")
	}

	filter := vectorstore.Filter{SessionID: sessionID(c), Extra: map[string]string{}}
	for key, value := range req.Filter {
		if key == knowledge.MetaSource {
			filter.Sources = append(filter.Sources, value)
			continue
		}
		filter.Extra[key] = value
	}

	if err := s.ingest.Delete(c.Request().Context(), filter); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleForgetAll(c echo.Context) error {
	if err := s.ingest.ForgetAll(c.Request().Context(), sessionID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
