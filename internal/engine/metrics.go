package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	BackendSearch           atomic.Int64
	BackendGet              atomic.Int64
	BackendLoadInfo         atomic.Int64
	BackendPlaylistItems    atomic.Int64
	BackendChannelPlaylists atomic.Int64
	BackendErrors           atomic.Int64
	StreamResolves          atomic.Int64
	ResolveFailures         atomic.Int64
	DiskHits                atomic.Int64
	DiskMisses              atomic.Int64
	DiskWriteErrors         atomic.Int64
	PrefetchBatches         atomic.Int64
}

// GetMetrics returns a snapshot of all metrics including browse cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"backend_search":            metrics.BackendSearch.Load(),
		"backend_get":               metrics.BackendGet.Load(),
		"backend_load_info":         metrics.BackendLoadInfo.Load(),
		"backend_playlist_items":    metrics.BackendPlaylistItems.Load(),
		"backend_channel_playlists": metrics.BackendChannelPlaylists.Load(),
		"backend_errors":            metrics.BackendErrors.Load(),
		"stream_resolves":           metrics.StreamResolves.Load(),
		"resolve_failures":          metrics.ResolveFailures.Load(),
		"disk_hits":                 metrics.DiskHits.Load(),
		"disk_misses":               metrics.DiskMisses.Load(),
		"disk_write_errors":         metrics.DiskWriteErrors.Load(),
		"prefetch_batches":          metrics.PrefetchBatches.Load(),
		"browse_cache_hits":         hits,
		"browse_cache_misses":       misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"backend_search", "backend_get", "backend_load_info",
		"backend_playlist_items", "backend_channel_playlists", "backend_errors",
		"stream_resolves", "resolve_failures",
		"disk_hits", "disk_misses", "disk_write_errors",
		"prefetch_batches",
		"browse_cache_hits", "browse_cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
