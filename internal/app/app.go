// Package app assembles the engine, its backend and the library from configuration.
// Both the MCP server and ytctl start through Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/anatolykoptev/go_youtube/internal/engine/sources"
	"github.com/anatolykoptev/go_youtube/internal/library"
)

// ConfigFromEnv reads the engine configuration from the environment.
func ConfigFromEnv() engine.Config {
	return engine.Config{
		APIKey:                env.Str("YOUTUBE_API_KEY", ""),
		ChannelID:             env.Str("YOUTUBE_CHANNEL_ID", ""),
		SearchResults:         env.Int("YOUTUBE_SEARCH_RESULTS", engine.DefaultSearchResults),
		PlaylistMaxVideos:     env.Int("YOUTUBE_PLAYLIST_MAX_VIDEOS", engine.DefaultPlaylistMaxVideos),
		AllowCache:            envBool("YOUTUBE_ALLOW_CACHE", false),
		CacheDir:              env.Str("YOUTUBE_CACHE_DIR", ""),
		CacheBackend:          env.Str("YOUTUBE_CACHE_BACKEND", "files"),
		MusicAPIEnabled:       envBool("YOUTUBE_MUSICAPI_ENABLED", false),
		MusicAPICookie:        env.Str("YOUTUBE_MUSICAPI_COOKIE", ""),
		MusicAPICookieFile:    env.Str("YOUTUBE_MUSICAPI_COOKIEFILE", ""),
		YoutubeDLPackage:      env.Str("YOUTUBE_DL_PACKAGE", engine.DefaultYoutubeDLPackage),
		ProxyURL:              env.Str("HTTP_PROXY_URL", ""),
		UserAgent:             env.Str("USER_AGENT", ""),
		BrowseCacheTTL:        env.Duration("BROWSE_CACHE_TTL", engine.DefaultBrowseCacheTTL),
		BrowseCacheMaxEntries: env.Int("BROWSE_CACHE_MAX_ENTRIES", engine.DefaultBrowseCacheMax),
		RedisURL:              env.Str("REDIS_URL", ""),
		RateLimit:             env.Float("BACKEND_RATE_LIMIT", 10),
		RateBurst:             env.Int("BACKEND_RATE_BURST", 5),
		PrefetchWorkers:       env.Int("PREFETCH_WORKERS", engine.DefaultPrefetchWorkers),
		ImageURIPrefix:        env.Str("IMAGE_URI_PREFIX", engine.DefaultImageURIPrefix),
	}
}

// envBool reads a boolean variable; unparsable values fall back to def.
func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(env.Str(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

// App is a fully wired YouTube library.
type App struct {
	Engine  *engine.Engine
	Library *library.Library
	Browse  *engine.BrowseCache

	closers []io.Closer
}

// Build validates cfg, selects a backend and wires the engine and library.
// Configuration errors wrap engine.ErrConfig and happen before any network access.
func Build(ctx context.Context, cfg engine.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.HTTPClient == nil {
		hc, err := engine.NewHTTPClient(cfg.ProxyURL, cfg.UserAgent)
		if err != nil {
			return nil, err
		}
		cfg.HTTPClient = hc
	}
	a := &App{}

	var opts []engine.Option
	opts = append(opts, engine.WithStreamResolver(sources.NewYTDLP(cfg)))
	if cfg.AllowCache {
		tracks, images, err := a.openStores(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, engine.WithDiskCache(tracks, images))
	}

	backend, err := engine.Select(ctx, cfg, sources.Factories())
	if err != nil {
		a.Close()
		return nil, err
	}
	backend = engine.Instrument(backend, cfg.RateLimit, cfg.RateBurst)
	slog.Info("backend selected", slog.String("backend", backend.Name()))

	a.Engine = engine.New(cfg, backend, opts...)
	eff := a.Engine.Config()
	rdb := engine.ConnectRedis(eff.RedisURL)
	if rdb != nil {
		a.closers = append(a.closers, rdb)
	}
	a.Browse = engine.NewBrowseCache(eff.BrowseCacheTTL, eff.BrowseCacheMaxEntries, rdb)
	a.Library = library.New(a.Engine, a.Browse)
	return a, nil
}

func (a *App) openStores(cfg engine.Config) (engine.TrackStore, engine.ImageStore, error) {
	images, err := engine.NewImageDir(cfg.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("image cache: %w", err)
	}
	if cfg.CacheBackend == "sqlite" {
		db, err := engine.OpenSqliteStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("track cache: %w", err)
		}
		a.closers = append(a.closers, db)
		slog.Info("disk cache: sqlite", slog.String("dir", cfg.CacheDir))
		return db, images, nil
	}
	files, err := engine.NewFileStore(cfg.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("track cache: %w", err)
	}
	slog.Info("disk cache: files", slog.String("dir", cfg.CacheDir))
	return files, images, nil
}

// Close waits for background work and releases stores and connections.
func (a *App) Close() error {
	if a.Engine != nil {
		a.Engine.WaitPrefetch()
		a.Engine.Flush()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
