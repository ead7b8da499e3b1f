// go_youtube: YouTube library MCP server.
//
// Exposes search, lookup, browse, images, translate_uri and tracklist_changed
// tools over a lazily resolved, prefetching YouTube metadata engine.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_youtube/internal/app"
	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/anatolykoptev/go_youtube/internal/ytserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8892")
)

func main() {
	cfg := app.ConfigFromEnv()
	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		if errors.Is(err, engine.ErrConfig) {
			slog.Error("invalid configuration", slog.Any("error", err))
		} else {
			slog.Error("startup failed", slog.Any("error", err))
		}
		os.Exit(1)
	}
	defer a.Close()

	slog.Info("starting go_youtube",
		slog.String("port", mcpPort),
		slog.String("backend", a.Engine.Backend().Name()),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_youtube",
		Version: version,
	}, nil)

	ytserver.RegisterTools(server, a.Library)
	slog.Info("tools registered", slog.Int("count", len(ytserver.Tools)))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_youtube",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}
