// Package server exposes the shard's read-only HTTP surface: health,
// stats, schedule and query endpoints, and a dev-mode manual tick step.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/meridian-games/shardcore/index"
	"github.com/meridian-games/shardcore/query"
	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/types"
)

const shutdownTimeout = 5 * time.Second

// Engine is the coordinator surface the server needs. Kept as a local
// interface so the server depends only on behavior, not the coordinator
// package.
type Engine interface {
	TickID() uint64
	GetStats() types.EngineStats
	ExecutionGroups() [][]string
	ExcludedSystems() []string
	ExecuteSingleTick(ctx context.Context) *types.TickResult
}

type Server struct {
	app     *fiber.App
	engine  Engine
	reg     *registry.Registry
	idx     *index.Index
	queries *query.Engine
	port    int
	devMode bool
}

func New(engine Engine, reg *registry.Registry, idx *index.Index, queries *query.Engine, port int, devMode bool) (*Server, error) {
	if engine == nil || reg == nil || idx == nil || queries == nil {
		return nil, eris.New("server requires engine, registry, index and query engine")
	}

	app := fiber.New(fiber.Config{
		Network:               "tcp",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:     app,
		engine:  engine,
		reg:     reg,
		idx:     idx,
		queries: queries,
		port:    port,
		devMode: devMode,
	}
	s.setupRoutes()
	return s, nil
}

// Serve blocks until the server fails or ctx is canceled, then shuts the
// listener down gracefully. Run it in its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		addr := fmt.Sprintf(":%d", s.port)
		log.Info().Msgf("starting HTTP server at %s", addr)
		if err := s.app.Listen(addr); err != nil {
			serverErr <- eris.Wrap(err, "http server")
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	log.Info().Msg("shutting down HTTP server")
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return eris.Wrap(err, "http server shutdown")
	}
	return nil
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", GetHealth(s.engine))
	s.app.Get("/stats", GetStats(s.engine))
	s.app.Get("/schedule", GetSchedule(s.engine))

	s.app.Get("/query/join", GetQueryJoin(s.idx))
	s.app.Get("/query/any", GetQueryAny(s.idx))
	s.app.Get("/query/exactly", GetQueryExactly(s.idx))
	s.app.Get("/query/without", GetQueryWithout(s.idx))
	s.app.Get("/query/kind/:kind", GetQueryByKind(s.idx))

	s.app.Get("/components/:type", GetComponentEntities(s.reg))
	s.app.Get("/components/:type/:entity", GetComponent(s.reg))

	if s.devMode {
		s.app.Post("/debug/tick", PostDebugTick(s.engine))
	}
}
