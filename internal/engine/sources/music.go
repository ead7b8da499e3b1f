package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// YouTube Music backend over the WEB_REMIX Innertube client. An optional cookie
// authenticates the session so the user's own library is visible.

type musicRenderer struct {
	PlaylistItemData *struct {
		VideoID string `json:"videoId"`
	} `json:"playlistItemData"`
	FlexColumns []struct {
		Column struct {
			Text ytText `json:"text"`
		} `json:"musicResponsiveListItemFlexColumnRenderer"`
	} `json:"flexColumns"`
	FixedColumns []struct {
		Column struct {
			Text ytText `json:"text"`
		} `json:"musicResponsiveListItemFixedColumnRenderer"`
	} `json:"fixedColumns"`
	Thumbnail struct {
		Renderer struct {
			Thumbnail ytThumbs `json:"thumbnail"`
		} `json:"musicThumbnailRenderer"`
	} `json:"thumbnail"`
	NavigationEndpoint *struct {
		BrowseEndpoint *struct {
			BrowseID string `json:"browseId"`
		} `json:"browseEndpoint"`
	} `json:"navigationEndpoint"`
}

func (r musicRenderer) column(i int) ytText {
	if i < len(r.FlexColumns) {
		return r.FlexColumns[i].Column.Text
	}
	return ytText{}
}

func (r musicRenderer) entry() (engine.Entry, bool) {
	var e engine.Entry
	switch {
	case r.PlaylistItemData != nil && r.PlaylistItemData.VideoID != "":
		e = engine.Entry{Kind: engine.KindVideo, ID: r.PlaylistItemData.VideoID}
	case r.NavigationEndpoint != nil && r.NavigationEndpoint.BrowseEndpoint != nil &&
		strings.HasPrefix(r.NavigationEndpoint.BrowseEndpoint.BrowseID, "VL"):
		e = engine.Entry{Kind: engine.KindPlaylist, ID: strings.TrimPrefix(r.NavigationEndpoint.BrowseEndpoint.BrowseID, "VL")}
	default:
		return engine.Entry{}, false
	}
	if t := r.column(0).String(); t != "" {
		e.Title = t
		e.Has |= engine.FieldTitle
	}
	if imgs := r.Thumbnail.Renderer.Thumbnail.images(); len(imgs) > 0 {
		e.Thumbnails = imgs
		e.Has |= engine.FieldThumbnails
	}
	if e.Kind != engine.KindVideo {
		return e, true
	}
	meta := r.column(1)
	for _, run := range meta.Runs {
		if id := run.browseID(); strings.HasPrefix(id, "UC") && !e.Has.Has(engine.FieldChannel) {
			e.Channel = engine.ChannelRef{ID: id, Name: run.Text}
			e.Has |= engine.FieldChannel
		}
		if l, ok := parseClock(run.Text); ok {
			e.Length = l
			e.Has |= engine.FieldLength
		}
	}
	if !e.Has.Has(engine.FieldLength) && len(r.FixedColumns) > 0 {
		if l, ok := parseClock(r.FixedColumns[0].Column.Text.String()); ok {
			e.Length = l
			e.Has |= engine.FieldLength
		}
	}
	return e, true
}

type musicTwoRowRenderer struct {
	Title              ytText `json:"title"`
	NavigationEndpoint struct {
		BrowseEndpoint *struct {
			BrowseID string `json:"browseId"`
		} `json:"browseEndpoint"`
	} `json:"navigationEndpoint"`
	ThumbnailRenderer struct {
		Renderer struct {
			Thumbnail ytThumbs `json:"thumbnail"`
		} `json:"musicThumbnailRenderer"`
	} `json:"thumbnailRenderer"`
}

func collectMusic(data []byte, limit int) []engine.Entry {
	var out []engine.Entry
	seen := make(map[string]bool)
	walkRenderers(data, func(key string, raw json.RawMessage) bool {
		if limit > 0 && len(out) >= limit {
			return true
		}
		switch key {
		case "musicResponsiveListItemRenderer":
			var r musicRenderer
			if json.Unmarshal(raw, &r) != nil {
				return true
			}
			if e, ok := r.entry(); ok && !seen[e.ID] {
				seen[e.ID] = true
				out = append(out, e)
			}
			return true
		case "musicTwoRowItemRenderer":
			var r musicTwoRowRenderer
			if json.Unmarshal(raw, &r) != nil || r.NavigationEndpoint.BrowseEndpoint == nil {
				return true
			}
			id := r.NavigationEndpoint.BrowseEndpoint.BrowseID
			if !strings.HasPrefix(id, "VL") {
				return true
			}
			e := engine.Entry{Kind: engine.KindPlaylist, ID: strings.TrimPrefix(id, "VL")}
			if t := r.Title.String(); t != "" {
				e.Title = t
				e.Has |= engine.FieldTitle
			}
			if imgs := r.ThumbnailRenderer.Renderer.Thumbnail.images(); len(imgs) > 0 {
				e.Thumbnails = imgs
				e.Has |= engine.FieldThumbnails
			}
			if !seen[e.ID] {
				seen[e.ID] = true
				out = append(out, e)
			}
			return true
		}
		return false
	})
	return out
}

// Music is the YouTube Music backend.
type Music struct {
	it *innertube
}

// NewMusic creates the music backend. cookie may be empty for anonymous access;
// base may be empty for music.youtube.com.
func NewMusic(cfg engine.Config, cookie, base string) (*Music, error) {
	if base == "" {
		base = ytMusicBase
	}
	headers := map[string]string{
		"Accept":          "*/*",
		"Accept-Language": "en;q=0.8",
		"Content-Type":    "application/json",
		"Cookie":          defaultHeaders["Cookie"],
	}
	if cookie != "" {
		headers["Cookie"] = cookie
	}
	c := newClient(cfg, headers)
	return &Music{it: newInnertube(c, base, "WEB_REMIX", ytMusicVersion, "67", ytMusicBase)}, nil
}

func (m *Music) Name() string { return "youtube-music" }

func (m *Music) Search(ctx context.Context, query string, limit int) ([]engine.Entry, error) {
	data, err := m.it.search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("music search: %w", err)
	}
	return collectMusic(data, limit), nil
}

func (m *Music) Get(ctx context.Context, kind engine.Kind, id string) (engine.Entry, error) {
	switch kind {
	case engine.KindVideo:
		return m.it.player(ctx, id)
	case engine.KindPlaylist:
		data, err := m.it.browse(ctx, "VL"+id, "")
		if err != nil {
			return engine.Entry{}, err
		}
		return musicPlaylistHeader(data, id)
	}
	return engine.Entry{}, fmt.Errorf("music get: unsupported kind %s", kind)
}

func (m *Music) LoadInfo(ctx context.Context, refs []engine.Ref, _ engine.FieldSet) ([]engine.Entry, error) {
	return loadEach(ctx, refs, m.Get)
}

func (m *Music) PlaylistItems(ctx context.Context, playlistID string, max int) ([]engine.Entry, error) {
	data, err := m.it.browse(ctx, "VL"+playlistID, "")
	if err != nil {
		return nil, fmt.Errorf("music playlist items %s: %w", playlistID, err)
	}
	return videosOnly(collectMusic(data, max)), nil
}

func (m *Music) ChannelPlaylists(ctx context.Context, channelID string) ([]engine.Entry, error) {
	data, err := m.it.browse(ctx, channelID, "")
	if err != nil {
		return nil, fmt.Errorf("music channel playlists %s: %w", channelID, err)
	}
	var out []engine.Entry
	for _, e := range collectMusic(data, 0) {
		if e.Kind == engine.KindPlaylist {
			out = append(out, e)
		}
	}
	return out, nil
}

func musicPlaylistHeader(data []byte, id string) (engine.Entry, error) {
	e := engine.Entry{Kind: engine.KindPlaylist, ID: id}
	items := 0
	walkRenderers(data, func(key string, raw json.RawMessage) bool {
		switch key {
		case "musicDetailHeaderRenderer", "musicResponsiveHeaderRenderer":
			var r struct {
				Title      ytText `json:"title"`
				SecondText ytText `json:"secondSubtitle"`
				Thumbnail  struct {
					Renderer struct {
						Thumbnail ytThumbs `json:"thumbnail"`
					} `json:"musicThumbnailRenderer"`
				} `json:"thumbnail"`
			}
			if json.Unmarshal(raw, &r) == nil {
				if t := r.Title.String(); t != "" {
					e.Title = t
					e.Has |= engine.FieldTitle
				}
				if imgs := r.Thumbnail.Renderer.Thumbnail.images(); len(imgs) > 0 {
					e.Thumbnails = imgs
					e.Has |= engine.FieldThumbnails
				}
				if n, ok := parseCount(r.SecondText.String()); ok {
					e.VideoCount = n
					e.Has |= engine.FieldVideoCount
				}
			}
			return true
		case "musicResponsiveListItemRenderer":
			items++
			return true
		}
		return false
	})
	if e.Has == 0 && items == 0 {
		return engine.Entry{}, fmt.Errorf("music playlist %s: %w", id, engine.ErrNotFound)
	}
	if !e.Has.Has(engine.FieldVideoCount) {
		e.VideoCount = items
		e.Has |= engine.FieldVideoCount
	}
	return e, nil
}
