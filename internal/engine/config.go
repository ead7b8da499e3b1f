package engine

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds all engine configuration, built once in main and passed to every component.
type Config struct {
	APIKey            string
	ChannelID         string
	SearchResults     int
	PlaylistMaxVideos int

	AllowCache   bool
	CacheDir     string
	CacheBackend string // "files" or "sqlite"

	MusicAPIEnabled    bool
	MusicAPICookie     string
	MusicAPICookieFile string

	YoutubeDLPackage string
	ProxyURL         string
	UserAgent        string

	BrowseCacheTTL        time.Duration
	BrowseCacheMaxEntries int
	RedisURL              string // empty disables the browse cache L2

	RateLimit       float64 // backend requests per second, 0 = unlimited
	RateBurst       int
	PrefetchWorkers int
	ImageURIPrefix  string

	// HTTPClient is shared by the backends and thumbnail downloads. When nil,
	// one is built with NewHTTPClient from ProxyURL and UserAgent.
	HTTPClient *http.Client
}

// Defaults used when the corresponding Config field is zero.
const (
	DefaultSearchResults     = 15
	DefaultPlaylistMaxVideos = 20
	DefaultBrowseCacheTTL    = 6 * time.Hour
	DefaultBrowseCacheMax    = 4000
	DefaultPrefetchWorkers   = 4
	DefaultImageURIPrefix    = "/youtube/"
	DefaultYoutubeDLPackage  = "yt-dlp"
)

// Validate rejects contradictory settings. It never touches the network.
func (c Config) Validate() error {
	if c.MusicAPIEnabled && c.MusicAPICookie != "" && c.MusicAPICookieFile != "" {
		return fmt.Errorf("%w: only one of musicapi cookie or musicapi cookiefile can be used at once", ErrConfig)
	}
	if c.AllowCache && c.CacheDir == "" {
		return fmt.Errorf("%w: cache enabled without a cache directory", ErrConfig)
	}
	if c.HTTPClient == nil {
		if _, err := NewHTTPClient(c.ProxyURL, c.UserAgent); err != nil {
			return err
		}
	}
	switch c.CacheBackend {
	case "", "files", "sqlite":
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrConfig, c.CacheBackend)
	}
	return nil
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.SearchResults <= 0 {
		c.SearchResults = DefaultSearchResults
	}
	if c.PlaylistMaxVideos <= 0 {
		c.PlaylistMaxVideos = DefaultPlaylistMaxVideos
	}
	if c.BrowseCacheTTL <= 0 {
		c.BrowseCacheTTL = DefaultBrowseCacheTTL
	}
	if c.BrowseCacheMaxEntries <= 0 {
		c.BrowseCacheMaxEntries = DefaultBrowseCacheMax
	}
	if c.PrefetchWorkers <= 0 {
		c.PrefetchWorkers = DefaultPrefetchWorkers
	}
	if c.ImageURIPrefix == "" {
		c.ImageURIPrefix = DefaultImageURIPrefix
	}
	if c.YoutubeDLPackage == "" {
		c.YoutubeDLPackage = DefaultYoutubeDLPackage
	}
	if c.CacheBackend == "" {
		c.CacheBackend = "files"
	}
	if c.HTTPClient == nil {
		hc, err := NewHTTPClient(c.ProxyURL, c.UserAgent)
		if err != nil {
			hc = http.DefaultClient
		}
		c.HTTPClient = hc
	}
	return c
}
