package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_youtube/internal/engine"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// Keyless backend: scrapes the search page and uses the web Innertube API for the rest.

const (
	ytInitialDataMarker = "var ytInitialData = "
	scraperParallel     = 4
)

// defaultHeaders skip the consent interstitial and pin the page language.
var defaultHeaders = map[string]string{
	"Cookie":          "PREF=hl=en; CONSENT=YES+20210329;",
	"Accept-Language": "en;q=0.8",
}

// --- ytInitialData / Innertube renderer types ---

type videoRenderer struct {
	VideoID         string   `json:"videoId"`
	Title           ytText   `json:"title"`
	LengthText      *ytText  `json:"lengthText"`
	LengthSeconds   string   `json:"lengthSeconds"`
	OwnerText       ytText   `json:"ownerText"`
	ShortBylineText ytText   `json:"shortBylineText"`
	Thumbnail       ytThumbs `json:"thumbnail"`
}

func (r videoRenderer) entry() engine.Entry {
	e := engine.Entry{Kind: engine.KindVideo, ID: r.VideoID}
	if t := r.Title.String(); t != "" {
		e.Title = t
		e.Has |= engine.FieldTitle
	}
	if l, ok := parseSeconds(r.LengthSeconds); ok {
		e.Length = l
		e.Has |= engine.FieldLength
	} else if r.LengthText != nil {
		if l, ok := parseClock(r.LengthText.String()); ok {
			e.Length = l
			e.Has |= engine.FieldLength
		}
	}
	owner := r.OwnerText
	if len(owner.Runs) == 0 {
		owner = r.ShortBylineText
	}
	if ch, ok := owner.channel(); ok {
		e.Channel = ch
		e.Has |= engine.FieldChannel
	}
	if imgs := r.Thumbnail.images(); len(imgs) > 0 {
		e.Thumbnails = imgs
		e.Has |= engine.FieldThumbnails
	}
	return e
}

type playlistRenderer struct {
	PlaylistID     string     `json:"playlistId"`
	Title          ytText     `json:"title"`
	VideoCount     string     `json:"videoCount"`
	VideoCountText ytText     `json:"videoCountText"`
	Thumbnails     []ytThumbs `json:"thumbnails"`
	Thumbnail      ytThumbs   `json:"thumbnail"`
}

func (r playlistRenderer) entry() engine.Entry {
	e := engine.Entry{Kind: engine.KindPlaylist, ID: r.PlaylistID}
	if t := r.Title.String(); t != "" {
		e.Title = t
		e.Has |= engine.FieldTitle
	}
	count := r.VideoCount
	if count == "" {
		count = r.VideoCountText.String()
	}
	if n, ok := parseCount(count); ok {
		e.VideoCount = n
		e.Has |= engine.FieldVideoCount
	}
	thumbs := r.Thumbnail
	if len(r.Thumbnails) > 0 {
		thumbs = r.Thumbnails[0]
	}
	if imgs := thumbs.images(); len(imgs) > 0 {
		e.Thumbnails = imgs
		e.Has |= engine.FieldThumbnails
	}
	return e
}

type lockupViewModel struct {
	ContentID   string `json:"contentId"`
	ContentType string `json:"contentType"`
	Metadata    struct {
		LockupMetadataViewModel struct {
			Title struct {
				Content string `json:"content"`
			} `json:"title"`
		} `json:"lockupMetadataViewModel"`
	} `json:"metadata"`
}

// collectEntries walks Innertube JSON for video and playlist renderers, in page order.
// limit <= 0 means no limit.
func collectEntries(data []byte, limit int) []engine.Entry {
	var out []engine.Entry
	seen := make(map[string]bool)
	add := func(e engine.Entry) {
		if e.ID == "" || seen[e.ID] || (limit > 0 && len(out) >= limit) {
			return
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	walkRenderers(data, func(key string, raw json.RawMessage) bool {
		switch key {
		case "videoRenderer", "playlistVideoRenderer", "compactVideoRenderer":
			var r videoRenderer
			if json.Unmarshal(raw, &r) == nil && r.VideoID != "" {
				add(r.entry())
				return true
			}
		case "playlistRenderer", "gridPlaylistRenderer", "compactPlaylistRenderer":
			var r playlistRenderer
			if json.Unmarshal(raw, &r) == nil && r.PlaylistID != "" {
				add(r.entry())
				return true
			}
		case "lockupViewModel":
			var r lockupViewModel
			if json.Unmarshal(raw, &r) == nil && r.ContentType == "LOCKUP_CONTENT_TYPE_PLAYLIST" && r.ContentID != "" {
				e := engine.Entry{Kind: engine.KindPlaylist, ID: r.ContentID}
				if t := r.Metadata.LockupMetadataViewModel.Title.Content; t != "" {
					e.Title = t
					e.Has |= engine.FieldTitle
				}
				add(e)
				return true
			}
		}
		return false
	})
	return out
}

// Scraper is the keyless backend.
type Scraper struct {
	c   *client
	web string
	it  *innertube
}

// NewScraper creates the keyless backend. base may be empty for www.youtube.com.
func NewScraper(cfg engine.Config, base string) (*Scraper, error) {
	if base == "" {
		base = ytWebBase
	}
	c := newClient(cfg, defaultHeaders)
	return &Scraper{
		c:   c,
		web: strings.TrimRight(base, "/"),
		it:  newInnertube(c, base, "WEB", ytWebVersion, "1", ytWebBase),
	}, nil
}

func (s *Scraper) Name() string { return "youtube-scraper" }

func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]engine.Entry, error) {
	searchURL := s.web + "/results?search_query=" + url.QueryEscape(query)
	body, err := s.c.do(ctx, http.MethodGet, searchURL, nil, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return nil, fmt.Errorf("youtube search page: %w", err)
	}
	data, err := initialData(body)
	if err != nil {
		return nil, fmt.Errorf("youtube search page: %w", err)
	}
	return collectEntries(data, limit), nil
}

// initialData pulls the ytInitialData object out of a YouTube HTML page.
func initialData(page []byte) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	var data []byte
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		idx := strings.Index(text, ytInitialDataMarker)
		if idx < 0 {
			return true
		}
		data = extractJSON([]byte(text[idx+len(ytInitialDataMarker):]))
		return data == nil
	})
	if data == nil {
		return nil, fmt.Errorf("ytInitialData not found")
	}
	return data, nil
}

func (s *Scraper) Get(ctx context.Context, kind engine.Kind, id string) (engine.Entry, error) {
	switch kind {
	case engine.KindVideo:
		return s.it.player(ctx, id)
	case engine.KindPlaylist:
		data, err := s.it.browse(ctx, "VL"+id, "")
		if err != nil {
			return engine.Entry{}, err
		}
		return playlistHeader(data, id)
	case engine.KindChannel:
		data, err := s.it.browse(ctx, id, "")
		if err != nil {
			return engine.Entry{}, err
		}
		return channelHeader(data, id)
	}
	return engine.Entry{}, fmt.Errorf("scraper get: unsupported kind %s", kind)
}

// LoadInfo has no batch endpoint to call, so it fetches each ref concurrently and
// returns what succeeded.
func (s *Scraper) LoadInfo(ctx context.Context, refs []engine.Ref, _ engine.FieldSet) ([]engine.Entry, error) {
	return loadEach(ctx, refs, s.Get)
}

func loadEach(ctx context.Context, refs []engine.Ref, get func(context.Context, engine.Kind, string) (engine.Entry, error)) ([]engine.Entry, error) {
	var (
		mu  sync.Mutex
		out = make([]engine.Entry, 0, len(refs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scraperParallel)
	for _, r := range refs {
		g.Go(func() error {
			e, err := get(gctx, r.Kind, r.ID)
			if err != nil {
				slog.Debug("load info: item failed", slog.String("kind", r.Kind.String()), slog.String("id", r.ID), slog.Any("error", err))
				return nil
			}
			mu.Lock()
			out = append(out, e)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Scraper) PlaylistItems(ctx context.Context, playlistID string, max int) ([]engine.Entry, error) {
	data, err := s.it.browse(ctx, "VL"+playlistID, "")
	if err != nil {
		return nil, fmt.Errorf("playlist items %s: %w", playlistID, err)
	}
	return videosOnly(collectEntries(data, max)), nil
}

func (s *Scraper) ChannelPlaylists(ctx context.Context, channelID string) ([]engine.Entry, error) {
	data, err := s.it.browse(ctx, channelID, ytChannelPlaylist)
	if err != nil {
		return nil, fmt.Errorf("channel playlists %s: %w", channelID, err)
	}
	var out []engine.Entry
	for _, e := range collectEntries(data, 0) {
		if e.Kind == engine.KindPlaylist {
			out = append(out, e)
		}
	}
	return out, nil
}

func videosOnly(entries []engine.Entry) []engine.Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Kind == engine.KindVideo {
			out = append(out, e)
		}
	}
	return out
}

// playlistHeader reads a playlist's own metadata from its browse page.
func playlistHeader(data []byte, id string) (engine.Entry, error) {
	e := engine.Entry{Kind: engine.KindPlaylist, ID: id}
	items := 0
	walkRenderers(data, func(key string, raw json.RawMessage) bool {
		switch key {
		case "playlistMetadataRenderer":
			var r struct {
				Title string `json:"title"`
			}
			if json.Unmarshal(raw, &r) == nil && r.Title != "" && !e.Has.Has(engine.FieldTitle) {
				e.Title = r.Title
				e.Has |= engine.FieldTitle
			}
			return true
		case "microformatDataRenderer":
			var r struct {
				Thumbnail ytThumbs `json:"thumbnail"`
			}
			if json.Unmarshal(raw, &r) == nil {
				if imgs := r.Thumbnail.images(); len(imgs) > 0 {
					e.Thumbnails = imgs
					e.Has |= engine.FieldThumbnails
				}
			}
			return true
		case "playlistHeaderRenderer":
			var r struct {
				Title         ytText `json:"title"`
				NumVideosText ytText `json:"numVideosText"`
			}
			if json.Unmarshal(raw, &r) == nil {
				if t := r.Title.String(); t != "" && !e.Has.Has(engine.FieldTitle) {
					e.Title = t
					e.Has |= engine.FieldTitle
				}
				if n, ok := parseCount(r.NumVideosText.String()); ok {
					e.VideoCount = n
					e.Has |= engine.FieldVideoCount
				}
			}
			return true
		case "playlistVideoRenderer":
			items++
			return true
		}
		return false
	})
	if e.Has == 0 && items == 0 {
		return engine.Entry{}, fmt.Errorf("playlist %s: %w", id, engine.ErrNotFound)
	}
	if !e.Has.Has(engine.FieldVideoCount) {
		e.VideoCount = items
		e.Has |= engine.FieldVideoCount
	}
	return e, nil
}

func channelHeader(data []byte, id string) (engine.Entry, error) {
	e := engine.Entry{Kind: engine.KindChannel, ID: id}
	walkRenderers(data, func(key string, raw json.RawMessage) bool {
		if key != "channelMetadataRenderer" {
			return false
		}
		var r struct {
			Title  string   `json:"title"`
			Avatar ytThumbs `json:"avatar"`
		}
		if json.Unmarshal(raw, &r) == nil {
			e.Title = r.Title
			e.Has |= engine.FieldTitle
			if imgs := r.Avatar.images(); len(imgs) > 0 {
				e.Thumbnails = imgs
				e.Has |= engine.FieldThumbnails
			}
		}
		return true
	})
	if e.Title == "" {
		return engine.Entry{}, fmt.Errorf("channel %s: %w", id, engine.ErrNotFound)
	}
	return e, nil
}
