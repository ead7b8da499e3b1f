package sources

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"golang.org/x/net/html"
)

// YouTube Data API v3 backend. Requires an API key.

const (
	ytDataAPIBase   = "https://www.googleapis.com/youtube/v3"
	dataAPIMaxBatch = 50
)

// --- YouTube Data API v3 types ---

type ytDataThumb struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ytDataSnippet struct {
	Title                  string                 `json:"title"`
	ChannelID              string                 `json:"channelId"`
	ChannelTitle           string                 `json:"channelTitle"`
	VideoOwnerChannelID    string                 `json:"videoOwnerChannelId"`
	VideoOwnerChannelTitle string                 `json:"videoOwnerChannelTitle"`
	Thumbnails             map[string]ytDataThumb `json:"thumbnails"`
	ResourceID             struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

type ytDataItem struct {
	ID             string        `json:"id"`
	Snippet        ytDataSnippet `json:"snippet"`
	ContentDetails struct {
		Duration  string `json:"duration"`
		ItemCount *int   `json:"itemCount"`
	} `json:"contentDetails"`
}

type ytDataListResp struct {
	Items         []ytDataItem `json:"items"`
	NextPageToken string       `json:"nextPageToken"`
}

type ytDataSearchResp struct {
	Items []struct {
		ID struct {
			Kind       string `json:"kind"`
			VideoID    string `json:"videoId"`
			PlaylistID string `json:"playlistId"`
		} `json:"id"`
		Snippet ytDataSnippet `json:"snippet"`
	} `json:"items"`
}

// DataAPI talks to the keyed YouTube Data API.
type DataAPI struct {
	c    *client
	base string
	key  string
}

// NewDataAPI creates the Data API backend. base may be empty for the public endpoint.
func NewDataAPI(cfg engine.Config, base string) (*DataAPI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: data API needs an API key", engine.ErrConfig)
	}
	if base == "" {
		base = ytDataAPIBase
	}
	return &DataAPI{c: newClient(cfg, defaultHeaders), base: strings.TrimRight(base, "/"), key: cfg.APIKey}, nil
}

func (d *DataAPI) Name() string { return "youtube-data-api" }

func (d *DataAPI) endpoint(path string, params url.Values) string {
	params.Set("key", d.key)
	return d.base + "/" + path + "?" + params.Encode()
}

func (d *DataAPI) Search(ctx context.Context, query string, limit int) ([]engine.Entry, error) {
	params := url.Values{}
	params.Set("part", "id,snippet")
	params.Set("q", query)
	params.Set("type", "video,playlist")
	params.Set("maxResults", strconv.Itoa(limit))

	var resp ytDataSearchResp
	if err := d.c.getJSON(ctx, d.endpoint("search", params), &resp); err != nil {
		return nil, fmt.Errorf("data api search: %w", err)
	}
	out := make([]engine.Entry, 0, len(resp.Items))
	for _, it := range resp.Items {
		var e engine.Entry
		switch {
		case it.ID.VideoID != "":
			e = engine.Entry{Kind: engine.KindVideo, ID: it.ID.VideoID}
		case it.ID.PlaylistID != "":
			e = engine.Entry{Kind: engine.KindPlaylist, ID: it.ID.PlaylistID}
		default:
			continue
		}
		applySnippet(&e, it.Snippet)
		out = append(out, e)
	}
	return out, nil
}

func (d *DataAPI) Get(ctx context.Context, kind engine.Kind, id string) (engine.Entry, error) {
	var entries []engine.Entry
	var err error
	switch kind {
	case engine.KindVideo:
		entries, err = d.videos(ctx, []string{id})
	case engine.KindPlaylist:
		entries, err = d.playlists(ctx, url.Values{"id": {id}}, 1)
	case engine.KindChannel:
		entries, err = d.channels(ctx, id)
	default:
		return engine.Entry{}, fmt.Errorf("data api get: unsupported kind %s", kind)
	}
	if err != nil {
		return engine.Entry{}, err
	}
	if len(entries) == 0 {
		return engine.Entry{}, fmt.Errorf("data api get %s %s: %w", kind, id, engine.ErrNotFound)
	}
	return entries[0], nil
}

func (d *DataAPI) LoadInfo(ctx context.Context, refs []engine.Ref, _ engine.FieldSet) ([]engine.Entry, error) {
	var vids, pls []string
	for _, r := range refs {
		switch r.Kind {
		case engine.KindVideo:
			vids = append(vids, r.ID)
		case engine.KindPlaylist:
			pls = append(pls, r.ID)
		}
	}
	var out []engine.Entry
	for chunk := range slices.Chunk(vids, dataAPIMaxBatch) {
		entries, err := d.videos(ctx, chunk)
		if err != nil {
			return out, err
		}
		out = append(out, entries...)
	}
	for chunk := range slices.Chunk(pls, dataAPIMaxBatch) {
		entries, err := d.playlists(ctx, url.Values{"id": {strings.Join(chunk, ",")}}, len(chunk))
		if err != nil {
			return out, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

func (d *DataAPI) PlaylistItems(ctx context.Context, playlistID string, max int) ([]engine.Entry, error) {
	var out []engine.Entry
	page := ""
	for len(out) < max {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("playlistId", playlistID)
		params.Set("maxResults", strconv.Itoa(min(dataAPIMaxBatch, max-len(out))))
		if page != "" {
			params.Set("pageToken", page)
		}
		var resp ytDataListResp
		if err := d.c.getJSON(ctx, d.endpoint("playlistItems", params), &resp); err != nil {
			return nil, fmt.Errorf("data api playlist items %s: %w", playlistID, err)
		}
		for _, it := range resp.Items {
			id := it.Snippet.ResourceID.VideoID
			if id == "" {
				continue
			}
			e := engine.Entry{Kind: engine.KindVideo, ID: id}
			sn := it.Snippet
			sn.ChannelID, sn.ChannelTitle = sn.VideoOwnerChannelID, sn.VideoOwnerChannelTitle
			applySnippet(&e, sn)
			out = append(out, e)
		}
		if resp.NextPageToken == "" {
			break
		}
		page = resp.NextPageToken
	}
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func (d *DataAPI) ChannelPlaylists(ctx context.Context, channelID string) ([]engine.Entry, error) {
	return d.playlists(ctx, url.Values{"channelId": {channelID}}, 0)
}

func (d *DataAPI) videos(ctx context.Context, ids []string) ([]engine.Entry, error) {
	params := url.Values{}
	params.Set("part", "id,snippet,contentDetails")
	params.Set("id", strings.Join(ids, ","))
	params.Set("maxResults", strconv.Itoa(dataAPIMaxBatch))
	var resp ytDataListResp
	if err := d.c.getJSON(ctx, d.endpoint("videos", params), &resp); err != nil {
		return nil, fmt.Errorf("data api videos: %w", err)
	}
	out := make([]engine.Entry, 0, len(resp.Items))
	for _, it := range resp.Items {
		e := engine.Entry{Kind: engine.KindVideo, ID: it.ID}
		applySnippet(&e, it.Snippet)
		if l, ok := parseISODuration(it.ContentDetails.Duration); ok {
			e.Length = l
			e.Has |= engine.FieldLength
		}
		out = append(out, e)
	}
	return out, nil
}

// playlists pages through the playlists endpoint. limit 0 means all pages.
func (d *DataAPI) playlists(ctx context.Context, filter url.Values, limit int) ([]engine.Entry, error) {
	var out []engine.Entry
	page := ""
	for {
		params := url.Values{}
		for k, v := range filter {
			params[k] = v
		}
		params.Set("part", "id,snippet,contentDetails")
		params.Set("maxResults", strconv.Itoa(dataAPIMaxBatch))
		if page != "" {
			params.Set("pageToken", page)
		}
		var resp ytDataListResp
		if err := d.c.getJSON(ctx, d.endpoint("playlists", params), &resp); err != nil {
			return nil, fmt.Errorf("data api playlists: %w", err)
		}
		for _, it := range resp.Items {
			e := engine.Entry{Kind: engine.KindPlaylist, ID: it.ID}
			applySnippet(&e, it.Snippet)
			e.Has &^= engine.FieldChannel
			if it.ContentDetails.ItemCount != nil {
				e.VideoCount = *it.ContentDetails.ItemCount
				e.Has |= engine.FieldVideoCount
			}
			out = append(out, e)
		}
		if resp.NextPageToken == "" || (limit > 0 && len(out) >= limit) {
			return out, nil
		}
		page = resp.NextPageToken
	}
}

func (d *DataAPI) channels(ctx context.Context, id string) ([]engine.Entry, error) {
	params := url.Values{}
	params.Set("part", "id,snippet")
	params.Set("id", id)
	var resp ytDataListResp
	if err := d.c.getJSON(ctx, d.endpoint("channels", params), &resp); err != nil {
		return nil, fmt.Errorf("data api channels: %w", err)
	}
	out := make([]engine.Entry, 0, len(resp.Items))
	for _, it := range resp.Items {
		e := engine.Entry{Kind: engine.KindChannel, ID: it.ID}
		applySnippet(&e, it.Snippet)
		e.Has &^= engine.FieldChannel
		out = append(out, e)
	}
	return out, nil
}

// applySnippet copies title, thumbnails and channel from a Data API snippet.
// Titles arrive HTML-escaped.
func applySnippet(e *engine.Entry, sn ytDataSnippet) {
	if sn.Title != "" {
		e.Title = html.UnescapeString(sn.Title)
		e.Has |= engine.FieldTitle
	}
	if len(sn.Thumbnails) > 0 {
		thumbs := make([]engine.Image, 0, len(sn.Thumbnails))
		for _, th := range sn.Thumbnails {
			thumbs = append(thumbs, engine.Image{URI: th.URL, Width: th.Width, Height: th.Height})
		}
		slices.SortFunc(thumbs, func(a, b engine.Image) int { return a.Width - b.Width })
		e.Thumbnails = thumbs
		e.Has |= engine.FieldThumbnails
	}
	if sn.ChannelTitle != "" {
		e.Channel = engine.ChannelRef{ID: sn.ChannelID, Name: html.UnescapeString(sn.ChannelTitle)}
		e.Has |= engine.FieldChannel
	}
}
