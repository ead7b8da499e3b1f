// Package ytserver exposes the YouTube library as MCP tools.
package ytserver

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_youtube/internal/library"
	"github.com/anatolykoptev/go_youtube/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tools lists the names RegisterTools adds, in registration order.
var Tools = []string{
	"youtube_search",
	"youtube_lookup",
	"youtube_browse",
	"youtube_images",
	"youtube_translate_uri",
	"youtube_tracklist_changed",
}

// RegisterTools registers all YouTube library tools on the given MCP server.
func RegisterTools(server *mcp.Server, lib *library.Library) {
	registerSearch(server, lib)
	registerLookup(server, lib)
	registerBrowse(server, lib)
	registerImages(server, lib)
	registerTranslateURI(server, lib)
	registerTracklistChanged(server, lib)
}

func registerSearch(server *mcp.Server, lib *library.Library) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_search",
		Description: "Search YouTube for videos (returned as tracks) and playlists (returned as albums). Pass uri instead of query to look up a known video, playlist or channel.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
		q := library.Query{
			Any: toolutil.SplitTerms(input.Query),
			URI: toolutil.CleanList(input.URI),
		}
		if len(q.Any) == 0 && len(q.URI) == 0 {
			_, err := toolutil.RequireString("query", input.Query)
			return nil, SearchOutput{}, err
		}
		res := lib.Search(ctx, q)
		return nil, SearchOutput{Found: res != nil, Result: res}, nil
	})
}

func registerLookup(server *mcp.Server, lib *library.Library) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_lookup",
		Description: "Expand a YouTube URI into tracks: one for a video, every available video for a playlist or channel. Accepts youtube:/yt: URIs, youtube.com and youtu.be URLs, and preload URIs.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input URIInput) (*mcp.CallToolResult, LookupOutput, error) {
		uri, err := toolutil.RequireString("uri", input.URI)
		if err != nil {
			return nil, LookupOutput{}, err
		}
		tracks := lib.Lookup(ctx, uri)
		found := len(tracks) > 0 && !tracks[0].IsPlaceholder()
		return nil, LookupOutput{URI: uri, Tracks: tracks, Found: found}, nil
	})
}

func registerBrowse(server *mcp.Server, lib *library.Library) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_browse",
		Description: "List a YouTube browse directory: youtube:browse (root), youtube:channel:root (own playlists), youtube:channel:artists, a channel URI or a playlist URI.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input URIInput) (*mcp.CallToolResult, BrowseOutput, error) {
		uri, err := toolutil.RequireString("uri", input.URI)
		if err != nil {
			return nil, BrowseOutput{}, err
		}
		refs := lib.Browse(ctx, uri)
		if refs == nil {
			refs = []library.Ref{}
		}
		return nil, BrowseOutput{URI: uri, Refs: refs}, nil
	})
}

func registerImages(server *mcp.Server, lib *library.Library) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_images",
		Description: "Return thumbnail images for video and playlist URIs. Cached images are served from the local image directory when available.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input URIsInput) (*mcp.CallToolResult, ImagesOutput, error) {
		uris := toolutil.CleanList(input.URIs)
		return nil, ImagesOutput{Images: lib.Images(ctx, uris)}, nil
	})
}

func registerTranslateURI(server *mcp.Server, lib *library.Library) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_translate_uri",
		Description: "Resolve a video URI to a directly playable audio stream URL.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input URIInput) (*mcp.CallToolResult, TranslateOutput, error) {
		uri, err := toolutil.RequireString("uri", input.URI)
		if err != nil {
			return nil, TranslateOutput{}, err
		}
		playable, ok := lib.TranslateURI(ctx, uri)
		return nil, TranslateOutput{URI: uri, Playable: playable, Found: ok}, nil
	})
}

func registerTracklistChanged(server *mcp.Server, lib *library.Library) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_tracklist_changed",
		Description: "Notify that the play queue changed. Audio URLs for the queued videos are resolved in the background so playback starts without waiting.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input URIsInput) (*mcp.CallToolResult, TracklistOutput, error) {
		uris := toolutil.CleanList(input.URIs)
		n := lib.TracklistChanged(uris)
		slog.Debug("tracklist changed", slog.Int("uris", len(uris)), slog.Int("scheduled", n))
		return nil, TracklistOutput{Scheduled: n}, nil
	})
}
