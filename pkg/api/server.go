// Package api is the HTTP gateway: echo routes, token-audience middleware,
// and the mapping from component errors to the public error taxonomy.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/firstround/interviewd/pkg/codeeval"
	"github.com/firstround/interviewd/pkg/config"
	"github.com/firstround/interviewd/pkg/database"
	"github.com/firstround/interviewd/pkg/events"
	"github.com/firstround/interviewd/pkg/media"
	"github.com/firstround/interviewd/pkg/session"
	"github.com/firstround/interviewd/pkg/store"
	"github.com/firstround/interviewd/pkg/token"
)

// Server wires the HTTP surface. Every handler delegates to the session
// manager or the store; no business rules live here.
type Server struct {
	echo      *echo.Echo
	srv       *http.Server
	cfg       *config.Config
	sessions  *session.Manager
	store     store.Store
	tokens    *token.Authority
	bus       *events.Bus
	evaluator *codeeval.Evaluator
	blobs     media.BlobStore
	dbClient  *database.Client // nil with the memory store
}

// NewServer builds the server and registers all routes.
func NewServer(
	cfg *config.Config,
	sessions *session.Manager,
	st store.Store,
	tokens *token.Authority,
	bus *events.Bus,
	evaluator *codeeval.Evaluator,
	blobs media.BlobStore,
	dbClient *database.Client,
) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		store:     st,
		tokens:    tokens,
		bus:       bus,
		evaluator: evaluator,
		blobs:     blobs,
		dbClient:  dbClient,
	}

	e := echo.New()
	e.HTTPErrorHandler = errorHandler
	e.Use(requestLogger())
	e.Use(securityHeaders())
	e.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	e.GET("/healthz", s.healthHandler)
	e.POST("/auth/login", s.loginHandler)

	iv := e.Group("/interview")
	iv.POST("/sessions", s.createSessionHandler, s.requireUser())
	iv.GET("/sessions", s.listSessionsHandler, s.requireUser())
	iv.GET("/:id", s.getSessionHandler, s.requireUser())
	iv.GET("/:id/state", s.stateHandler, s.requireUser())
	iv.GET("/:id/summary", s.summaryHandler, s.requireUser())
	iv.GET("/:id/review", s.reviewHandler, s.requireUser())
	iv.GET("/:id/anti-cheat/tail", s.tailHandler, s.requireUser())

	iv.POST("/:id/token/acet", s.mintACETHandler, s.requireUser())
	iv.POST("/:id/token/aipt", s.mintAIPTHandler, s.requireUser())
	iv.POST("/:id/token/refresh", s.refreshHandler, s.requireUser())
	iv.POST("/:id/start", s.startHandler, s.requireUser())

	iv.POST("/:id/precheck", s.precheckHandler, s.requireToken(token.AudienceACET))
	iv.POST("/:id/anti-cheat", s.antiCheatHandler, s.requireToken(token.AudienceACET))
	iv.POST("/:id/next-question", s.nextQuestionHandler, s.requireToken(token.AudienceAIPT))
	iv.POST("/:id/answer", s.answerHandler, s.requireToken(token.AudienceIST))
	iv.POST("/:id/code-eval", s.codeEvalHandler, s.requireToken(token.AudienceIST))
	iv.POST("/:id/finalize", s.finalizeHandler, s.requireToken(token.AudienceIST))

	// The WST rides the query string; browsers cannot set headers on a
	// WebSocket handshake.
	iv.GET("/:id/stream", s.streamHandler)

	e.POST("/media/upload", s.uploadHandler, s.requireToken(token.AudienceUPT))

	s.echo = e
	s.srv = &http.Server{Handler: e}
	return s
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	s.srv.Addr = addr
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// requestTimeout bounds handler work; AI-backed handlers manage their own
// provider timeout beneath it.
const requestTimeout = 60 * time.Second
