// Package mcp assembles the MCP server and runs it over stdio or SSE.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/kayz/kakaomap-mcp/internal/config"
	"github.com/kayz/kakaomap-mcp/internal/logger"
	"github.com/kayz/kakaomap-mcp/internal/metrics"
	"github.com/kayz/kakaomap-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName    = "mcp-server-kakao-map-go"
	ServerVersion = "0.1.0"
)

// NewServer registers the place recommender on a fresh MCP server.
func NewServer(cfg *config.Config, opts ...tools.Option) *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	recommender := tools.NewPlaceRecommender(cfg.Kakao, opts...)
	s.AddTool(recommender.Tool(), recommender.Handle)
	return s
}

// Serve runs s on the configured transport until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, s *server.MCPServer) error {
	switch cfg.Transport {
	case config.TransportStdio:
		return serveStdio(ctx, s, os.Stdin, os.Stdout)
	case config.TransportSSE:
		return serveSSE(ctx, cfg, s)
	}
	return fmt.Errorf("unknown transport %q", cfg.Transport)
}

func serveStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	logger.Info("[MCP] %s %s serving on stdio", ServerName, ServerVersion)

	delivery := tools.NewDelivery(tools.DefaultDeliveryTimeout)
	stdio := server.NewStdioServer(s)
	stdio.SetContextFunc(func(ctx context.Context) context.Context {
		return tools.WithDelivery(ctx, delivery)
	})

	err := stdio.Listen(ctx, in, delivery.Writer(out))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// sseHandler mounts the SSE transport and, when enabled, the metrics
// endpoint on one mux.
func sseHandler(cfg *config.Config, s *server.MCPServer) (http.Handler, *server.SSEServer) {
	deliveries := &sseDeliveries{timeout: tools.DefaultDeliveryTimeout}
	sse := server.NewSSEServer(s, server.WithHTTPContextFunc(deliveries.contextFunc))

	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}
	mux.Handle(sse.CompleteSsePath(), deliveries.wrap(sse.SSEHandler()))
	mux.Handle("/", sse)
	return mux, sse
}

func serveSSE(ctx context.Context, cfg *config.Config, s *server.MCPServer) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	handler, sse := sseHandler(cfg, s)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[MCP] %s %s with SSE is running on http://localhost%s", ServerName, ServerVersion, addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("[MCP] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sse.Shutdown(shutdownCtx); err != nil {
		logger.Warn("[MCP] SSE shutdown failed: %v", err)
	}
	return httpServer.Shutdown(shutdownCtx)
}
