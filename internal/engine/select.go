package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// Factories construct the candidate backends. A nil factory means that backend
// is not available in this build.
type Factories struct {
	API     func(cfg Config) (Backend, error)
	Scraper func(cfg Config) (Backend, error)
	Music   func(cfg Config, cookie string) (Backend, error)
}

// Select picks the backend once at startup. Configuration is validated before
// any network call. A keyed API is verified with a canary search and replaced by
// the scraper when that fails; an enabled music backend supersedes both.
func Select(ctx context.Context, cfg Config, f Factories) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var chosen Backend
	if cfg.APIKey != "" && f.API != nil {
		chosen = verifyAPI(ctx, cfg, f.API)
	}
	if chosen == nil && f.Scraper != nil {
		b, err := f.Scraper(cfg)
		if err != nil {
			slog.Warn("select: scraper unavailable", slog.Any("error", err))
		} else {
			slog.Info("select: using scraper backend")
			chosen = b
		}
	}

	if cfg.MusicAPIEnabled && f.Music != nil {
		cookie := cfg.MusicAPICookie
		if cfg.MusicAPICookieFile != "" {
			slog.Info("select: reading cookies", slog.String("file", cfg.MusicAPICookieFile))
			c, err := ReadCookieFile(cfg.MusicAPICookieFile)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrConfig, err)
			}
			cookie = c
		}
		b, err := f.Music(cfg, cookie)
		if err != nil {
			return nil, fmt.Errorf("music backend: %w", err)
		}
		slog.Info("select: using music backend")
		chosen = b
	}

	if chosen == nil {
		return nil, ErrNoBackend
	}
	return chosen, nil
}

func verifyAPI(ctx context.Context, cfg Config, mk func(Config) (Backend, error)) Backend {
	b, err := mk(cfg)
	if err != nil {
		slog.Error("select: api backend unavailable, disabling API", slog.Any("error", err))
		return nil
	}
	if _, err := b.Search(ctx, "test", 1); err != nil {
		slog.Error("select: failed to verify API key, disabling API", slog.Any("error", err))
		return nil
	}
	slog.Info("select: API key verified")
	return b
}
