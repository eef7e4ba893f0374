package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/IslandRhythms/notion-clone/internal/page"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
}

// pageService is the interface the page handlers call. *indexer.Indexer
// satisfies it; tests inject a fake.
type pageService interface {
	Save(ctx context.Context, callerID string, p *page.Page) (*page.Page, error)
	Get(ctx context.Context, callerID, id string) (*page.Page, error)
	List(ctx context.Context, callerID string) ([]string, error)
	Delete(ctx context.Context, callerID, id string) error
}

// answerer is the interface the answer handler calls. *qa.Pipeline satisfies
// it; tests inject a fake.
type answerer interface {
	Ask(ctx context.Context, callerID, question string) (*page.QueryResult, error)
}

// Server is the HTTP server that exposes the page store and the
// question-answering pipeline.
type Server struct {
	// pages serves the page CRUD handlers.
	pages pageService
	// answers serves POST /api/answer.
	answers answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// savePageRequest is the JSON body for POST /api/pages and PUT /api/pages/{id}.
type savePageRequest struct {
	// Blocks is the full ordered block list of the page.
	Blocks []page.ContentBlock `json:"blocks"`
}

// pageResponse is the JSON shape for a single page.
type pageResponse struct {
	// ID is the page identifier.
	ID string `json:"id"`
	// Blocks is the ordered block list.
	Blocks []page.ContentBlock `json:"blocks"`
	// Creator is the owner's user id, omitted for public pages.
	Creator string `json:"creator,omitempty"`
	// CreatedAt is the creation timestamp (RFC3339).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the last-save timestamp (RFC3339).
	UpdatedAt time.Time `json:"updatedAt"`
}

// listPagesResponse is the JSON response for GET /api/pages.
type listPagesResponse struct {
	// Pages is the list of page ids owned by the caller.
	Pages []string `json:"pages"`
}

// answerRequest is the JSON body for POST /api/answer.
type answerRequest struct {
	// Question is the user's natural-language question.
	Question string `json:"question"`
}

// answerResponse is the JSON response for POST /api/answer.
type answerResponse struct {
	// Question echoes the question that was asked.
	Question string `json:"question"`
	// Sources lists the ids of the pages the answer was grounded in,
	// ranked most relevant first.
	Sources []string `json:"sources"`
	// Answer is the synthesized answer text.
	Answer string `json:"answer"`
}

// toPageResponse converts a domain page to its wire shape.
func toPageResponse(p *page.Page) pageResponse {
	return pageResponse{
		ID:        p.ID,
		Blocks:    p.Blocks,
		Creator:   p.CreatorID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
