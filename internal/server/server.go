// Package server exposes the data access layer over HTTP.
//
// Handlers are thin: they decode JSON, call the Store, and map error kinds
// to status codes. Internal error text is logged, never returned.
//
//	srv, err := server.New(server.Deps{Config: cfg.Server, Logger: log, Store: pool})
//	if err := srv.Start(); err != nil { ... }
//	defer srv.Close(ctx)
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/koustreak/tabula/internal/config"
	"github.com/koustreak/tabula/internal/database"
	"github.com/koustreak/tabula/internal/filestore"
	"github.com/koustreak/tabula/internal/logger"
)

// Store is the subset of *database.Pool the handlers use.
type Store interface {
	Ping(ctx context.Context) error
	QueryTable(ctx context.Context, table string) (database.RowSet, error)
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string) ([]string, error)
	AddColumn(ctx context.Context, table, column, columnType string) error
	InsertData(ctx context.Context, table string, data database.Mutation) (database.InsertResult, error)
	UpdateData(ctx context.Context, table string, set, where database.Mutation) (int64, error)
}

var _ Store = (*database.Pool)(nil)

// Deps holds the dependencies required by the server.
type Deps struct {
	Config config.ServerConfig
	Logger *logger.Logger
	Store  Store

	// Files backs /download/*. Optional; without it downloads are 404.
	Files filestore.Store
}

// Server is the HTTP front end.
type Server struct {
	cfg   config.ServerConfig
	log   *logger.Logger
	store Store
	files filestore.Store

	handler http.Handler
	server  *http.Server
}

// New creates a server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Config.MessagesTable == "" {
		deps.Config.MessagesTable = config.Default().Server.MessagesTable
	}
	if deps.Config.MaxBodyBytes <= 0 {
		deps.Config.MaxBodyBytes = config.Default().Server.MaxBodyBytes
	}

	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		cfg:   deps.Config,
		log:   log.Component("http"),
		store: deps.Store,
		files: deps.Files,
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves in a background goroutine.
// A bind failure is returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	s.server = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	s.log.InfoWith("http server listening", map[string]any{"addr": ln.Addr().String()})
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.ErrorWith("http server stopped", err, nil)
		}
	}()
	return nil
}

// Close stops accepting requests and waits for in-flight ones until ctx
// is done.
func (s *Server) Close(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
