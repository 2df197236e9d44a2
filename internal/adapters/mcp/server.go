// Package mcpadapter exposes search, answering, conflict detection and
// schedule extraction as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

const (
	serverName = "project-brain"
	Version    = "0.1.0"
)

var ErrMissingSearchService = errors.New("mcp: search service is required")

// Ports are the inbound services the tools call. Only Search is required;
// tools whose service is nil are not registered.
type Ports struct {
	Search    ports.SearchService
	Query     ports.QueryService
	Conflicts ports.ConflictService
	Extract   ports.ExtractionService
	// DefaultK is used when a tool call omits k.
	DefaultK int
}

type Server struct {
	ports Ports
	mcp   *server.MCPServer
}

func NewServer(p Ports) (*Server, error) {
	if p.Search == nil {
		return nil, ErrMissingSearchService
	}
	if p.DefaultK <= 0 {
		p.DefaultK = domain.DefaultTopK
	}
	s := &Server{
		ports: p,
		mcp:   server.NewMCPServer(serverName, Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s, nil
}

// Run serves JSON-RPC over the given streams until ctx is done.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.NewStreamableHTTPServer(s.mcp),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp http server: %w", err)
	}
	return nil
}
