// Package server provides the HTTP API for jobnorm.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/jobnorm/internal/config"
	"github.com/hyperjump/jobnorm/internal/normalize"
	"github.com/hyperjump/jobnorm/internal/storage"
	"github.com/hyperjump/jobnorm/pkg/utils"
)

// FileLister reports the keyword files being watched.
type FileLister interface {
	Files() []string
}

// Server is the HTTP server for the jobnorm API.
type Server struct {
	norm    *normalize.Normalizer
	storage storage.Storage
	config  *config.Config
	files   FileLister
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. store and files may be nil;
// endpoints that need them then answer 501.
func NewServer(
	norm *normalize.Normalizer,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	files FileLister,
) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		norm:    norm,
		storage: store,
		config:  cfg,
		files:   files,
		logger:  utils.OrNop(logger),
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/match", s.handleMatch)
		r.Post("/normalize", s.handleNormalize)
		r.Post("/tokenize", s.handleTokenize)
		r.Get("/keywords", s.handleKeywordsList)
		r.Post("/keywords", s.handleKeywordsAdd)
		r.Post("/words", s.handleWordsAdd)
		r.Get("/lexicon/{word}", s.handleLexiconGet)
		r.Post("/postings", s.handlePostingCreate)
		r.Get("/postings", s.handlePostingList)
		r.Get("/postings/{id}", s.handlePostingGet)
		r.Delete("/postings/{id}", s.handlePostingDelete)
		r.Post("/snapshot", s.handleSnapshot)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
