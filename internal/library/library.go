// Package library maps host URIs onto the engine: search, lookup, browse,
// images and playback URI translation. Network failures never reach the caller;
// they surface as empty results or the placeholder track.
package library

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// Library answers host requests.
type Library struct {
	eng    *engine.Engine
	browse *engine.BrowseCache
}

// New creates a library over eng. browse may be nil to disable browse caching.
func New(eng *engine.Engine, browse *engine.BrowseCache) *Library {
	return &Library{eng: eng, browse: browse}
}

// Search answers "any" queries with videos as tracks and playlists as albums,
// and "uri" queries by lookup. It returns nil when the query is not answerable.
func (l *Library) Search(ctx context.Context, q Query) *SearchResult {
	if len(q.URI) > 0 {
		tracks := l.Lookup(ctx, q.URI[0])
		if len(tracks) == 0 || tracks[0].IsPlaceholder() {
			return nil
		}
		return &SearchResult{URI: "youtube:search", Tracks: tracks}
	}
	if len(q.Any) == 0 {
		return nil
	}
	query := strings.Join(q.Any, " ")
	slog.Debug("library: search", slog.String("query", query))

	var videos []*engine.Video
	var playlists []*engine.Playlist
	err := engine.TrackOperation(ctx, "search", func(ctx context.Context) error {
		var err error
		videos, playlists, err = l.eng.Search(ctx, query)
		return err
	})
	if err != nil {
		slog.Error("library: search failed", slog.String("query", query), slog.Any("error", err))
		return nil
	}

	res := &SearchResult{
		URI:    "youtube:search",
		Tracks: make([]Track, 0, len(videos)),
		Albums: make([]Album, 0, len(playlists)),
	}
	for _, v := range videos {
		res.Tracks = append(res.Tracks, convertVideo(v, nil))
	}
	for _, p := range playlists {
		res.Albums = append(res.Albums, convertPlaylist(p))
	}
	return res
}

// Lookup expands uri into tracks: one for a video, all available videos for a
// playlist or channel. An unresolvable uri yields a single placeholder Track.
func (l *Library) Lookup(ctx context.Context, uri string) []Track {
	slog.Debug("library: lookup", slog.String("uri", uri))

	if p, ok := extractPreload(uri); ok {
		for _, t := range p.Tracks {
			l.eng.Video(t.VideoID).Extend(t)
		}
		uri = p.VideoURI
	}

	if id := extractPlaylistID(uri); id != "" {
		if tracks := l.lookupPlaylist(id); len(tracks) > 0 {
			return tracks
		}
	}
	if id := extractVideoID(uri); id != "" {
		return []Track{convertVideo(l.eng.Video(id), nil)}
	}
	if id := extractChannelID(uri); id != "" {
		if tracks := l.lookupChannel(ctx, id); len(tracks) > 0 {
			return tracks
		}
	}

	slog.Error("library: cannot load", slog.String("uri", uri))
	return []Track{{}}
}

// lookupPlaylist skips videos whose length could not be resolved (removed, private).
func (l *Library) lookupPlaylist(id string) []Track {
	p := l.eng.Playlist(id)
	videos, ok := p.Videos().Wait()
	if !ok || len(videos) == 0 {
		return nil
	}
	title, _ := p.Title().Wait()
	album := &albumInfo{id: id, name: title}

	tracks := make([]Track, 0, len(videos))
	for _, v := range videos {
		if _, ok := v.Length().Wait(); !ok {
			continue
		}
		tracks = append(tracks, convertVideo(v, album))
	}
	return tracks
}

func (l *Library) lookupChannel(ctx context.Context, id string) []Track {
	playlists, err := l.eng.ChannelPlaylists(ctx, id)
	if err != nil {
		slog.Warn("library: channel playlists failed", slog.String("channel", id), slog.Any("error", err))
		return nil
	}
	for _, p := range playlists {
		p.Videos()
	}
	var tracks []Track
	for _, p := range playlists {
		videos, _ := p.Videos().Wait()
		for _, v := range videos {
			tracks = append(tracks, convertVideo(v, nil))
		}
	}
	return tracks
}

// Browse lists a directory. Results are cached for the browse cache TTL.
func (l *Library) Browse(ctx context.Context, uri string) []Ref {
	refs, err := engine.BrowseLoad(ctx, l.browse, engine.CacheKey("browse", uri), func(ctx context.Context) ([]Ref, error) {
		return l.browseUncached(ctx, uri)
	})
	if err != nil {
		slog.Warn("library: browse failed", slog.String("uri", uri), slog.Any("error", err))
		return nil
	}
	return refs
}

func (l *Library) browseUncached(ctx context.Context, uri string) ([]Ref, error) {
	switch uri {
	case browseRootURI:
		return []Ref{
			{Type: RefDirectory, URI: channelRootURI, Name: "My Youtube playlists"},
			{Type: RefDirectory, URI: channelArtistURI, Name: "My Youtube artists"},
		}, nil
	case channelArtistURI:
		return l.browseArtists(ctx)
	}

	if id := extractPlaylistID(uri); id != "" {
		var refs []Ref
		for _, t := range l.Lookup(ctx, uri) {
			if t.IsPlaceholder() {
				continue
			}
			refs = append(refs, Ref{Type: RefTrack, URI: t.URI, Name: t.Name})
		}
		return refs, nil
	}

	if id := extractChannelID(uri); id != "" {
		slog.Debug("library: browse channel", slog.String("uri", uri))
		playlists, err := l.eng.ChannelPlaylists(ctx, id)
		if err != nil {
			return nil, err
		}
		targets := make([]engine.Target, 0, len(playlists))
		for _, p := range playlists {
			targets = append(targets, engine.PlaylistVideos(p))
		}
		l.eng.Prefetch(targets...)

		refs := make([]Ref, 0, len(playlists))
		for _, p := range playlists {
			album := convertPlaylist(p)
			refs = append(refs, Ref{Type: RefPlaylist, URI: album.URI, Name: album.Name})
		}
		sortByName(refs)
		return refs, nil
	}
	return nil, nil
}

// browseArtists lists the unique channels of every video in the own channel's playlists.
func (l *Library) browseArtists(ctx context.Context) ([]Ref, error) {
	playlists, err := l.eng.ChannelPlaylists(ctx, "root")
	if err != nil {
		return nil, err
	}
	seen := make(map[Ref]bool)
	var refs []Ref
	for _, p := range playlists {
		for _, t := range l.Lookup(ctx, playlistURI(p.ID)) {
			for _, a := range t.Artists {
				if a.URI == "" {
					continue
				}
				r := Ref{Type: RefArtist, URI: a.URI, Name: a.Name}
				if !seen[r] {
					seen[r] = true
					refs = append(refs, r)
				}
			}
		}
	}
	sortByName(refs)
	return refs, nil
}

func sortByName(refs []Ref) {
	slices.SortStableFunc(refs, func(a, b Ref) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

// Images returns pictures for video and playlist uris. Videos are served from the
// on-disk image cache when present; everything else comes from resolved thumbnails.
func (l *Library) Images(_ context.Context, uris []string) map[string][]Image {
	images := make(map[string][]Image, len(uris))
	prefix := l.eng.Config().ImageURIPrefix

	pending := make(map[string]*engine.Video)
	for _, uri := range uris {
		id := extractVideoID(uri)
		if id == "" {
			continue
		}
		if store := l.eng.Images(); store != nil {
			if name, ok := store.Lookup(id); ok {
				images[uri] = []Image{{URI: prefix + name}}
				continue
			}
		}
		v := l.eng.Video(id)
		v.Thumbnails()
		pending[uri] = v
	}
	for uri, v := range pending {
		thumbs, _ := v.Thumbnails().Wait()
		images[uri] = convertImages(thumbs)
	}

	for _, uri := range uris {
		id := extractPlaylistID(uri)
		if id == "" {
			continue
		}
		thumbs, _ := l.eng.Playlist(id).Thumbnails().Wait()
		images[uri] = convertImages(thumbs)
	}
	return images
}

// TranslateURI returns the playable audio location of a video uri.
func (l *Library) TranslateURI(_ context.Context, uri string) (string, bool) {
	id := extractVideoID(uri)
	if id == "" {
		slog.Error("library: translate_uri: not a video", slog.String("uri", uri))
		return "", false
	}
	u, ok := l.eng.Video(id).AudioURL().Wait()
	if !ok {
		slog.Error("library: translate_uri: no audio", slog.String("uri", uri))
	}
	return u, ok
}

// TracklistChanged starts resolving audio for every queued video so playback
// can start without waiting. It returns the number of videos scheduled.
func (l *Library) TracklistChanged(uris []string) int {
	var targets []engine.Target
	for _, uri := range uris {
		if id := extractVideoID(uri); id != "" {
			targets = append(targets, engine.Audio(l.eng.Video(id)))
		}
	}
	l.eng.Prefetch(targets...)
	return len(targets)
}
