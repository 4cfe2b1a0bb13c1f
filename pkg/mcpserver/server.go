// Package mcpserver exposes the browser tool surface over the Model
// Context Protocol, on stdio or HTTP.
package mcpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/replay"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/testgen"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/tools"
)

const serverName = "concurrent-browser-mcp"

// Server serves the tool registry over MCP.
type Server struct {
	registry *tools.Registry
	mcp      *server.MCPServer
	logger   *slog.Logger
}

// New builds the MCP server: browser tools are expected to already be on
// the registry; the session, replay, and test-generation tools are
// registered here. replayDefaults seed replay_session's options.
func New(version string, registry *tools.Registry, store *session.Store, replayer *replay.Engine, generator *testgen.Generator, replayDefaults replay.Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	registerSessionTools(registry, store, replayer, generator, replayDefaults)

	mcpServer := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, def := range registry.List() {
		tool, handler := adaptDefinition(registry, def)
		mcpServer.AddTool(tool, handler)
	}

	return &Server{
		registry: registry,
		mcp:      mcpServer,
		logger:   logger,
	}
}

// ServeStdio serves MCP over stdin/stdout until the stream closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio", "tools", len(s.registry.List()))
	return server.ServeStdio(s.mcp, server.WithStdioContextFunc(func(context.Context) context.Context {
		return ctx
	}))
}

// ServeHTTP serves MCP over streamable HTTP at /mcp, with liveness and
// metrics endpoints alongside. Blocks until ctx is canceled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	streamable := server.NewStreamableHTTPServer(s.mcp)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/mcp", streamable)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving MCP on http", "addr", addr, "tools", len(s.registry.List()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
