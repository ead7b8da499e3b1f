package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

// Engine owns the canonical entities and resolves their fields.
// Every field is fetched at most once per entity; concurrent requesters share
// the in-flight result, and failures resolve to absent without retry.
type Engine struct {
	cfg       Config
	backend   Backend
	streams   StreamResolver
	tracks    TrackStore // nil when file caching is disabled
	images    ImageStore // nil when file caching is disabled
	videos    *arena[Video]
	playlists *arena[Playlist]
	prefetch  *Prefetcher
	writes    sync.WaitGroup
}

// Option customizes an Engine.
type Option func(*Engine)

// WithStreamResolver sets the resolver for audio locations.
func WithStreamResolver(r StreamResolver) Option {
	return func(e *Engine) { e.streams = r }
}

// WithDiskCache sets the on-disk track and image stores.
func WithDiskCache(tracks TrackStore, images ImageStore) Option {
	return func(e *Engine) {
		e.tracks = tracks
		e.images = images
	}
}

// New builds an engine over an already selected backend.
func New(cfg Config, backend Backend, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg.withDefaults(),
		backend: backend,
	}
	e.videos = newArena(func(id string) *Video { return &Video{ID: id, eng: e} })
	e.playlists = newArena(func(id string) *Playlist { return &Playlist{ID: id, eng: e} })
	for _, o := range opts {
		o(e)
	}
	e.prefetch = newPrefetcher(e, e.cfg.PrefetchWorkers)
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Backend returns the selected backend.
func (e *Engine) Backend() Backend { return e.backend }

// Images returns the on-disk image store, or nil when caching is disabled.
func (e *Engine) Images() ImageStore { return e.images }

// Video returns the canonical Video for id, creating it on first reference.
func (e *Engine) Video(id string) *Video { return e.videos.get(id) }

// Playlist returns the canonical Playlist for id, creating it on first reference.
func (e *Engine) Playlist(id string) *Playlist { return e.playlists.get(id) }

// Invalidate drops the canonical instance for id so the next reference starts
// from a fresh, unresolved entity. Holders of the old instance keep its values.
func (e *Engine) Invalidate(kind Kind, id string) {
	switch kind {
	case KindVideo:
		e.videos.drop(id)
	case KindPlaylist:
		e.playlists.drop(id)
	}
}

// Prefetch schedules background resolution of targets.
func (e *Engine) Prefetch(targets ...Target) { e.prefetch.Schedule(targets...) }

// WaitPrefetch blocks until every scheduled prefetch has finished.
func (e *Engine) WaitPrefetch() { e.prefetch.Wait() }

// Search runs a backend search and loads info for every result in one batch
// before returning. Playlist child lists are then prefetched in the background.
func (e *Engine) Search(ctx context.Context, query string) ([]*Video, []*Playlist, error) {
	entries, err := e.backend.Search(ctx, query, e.cfg.SearchResults)
	if err != nil {
		return nil, nil, fmt.Errorf("search %q: %w", query, err)
	}
	var videos []*Video
	var playlists []*Playlist
	for _, en := range entries {
		switch en.Kind {
		case KindVideo:
			v := e.Video(en.ID)
			v.fill(en)
			videos = append(videos, v)
		case KindPlaylist:
			p := e.Playlist(en.ID)
			p.fill(en)
			playlists = append(playlists, p)
		}
	}

	e.LoadInfo(ctx, videos, playlists, VideoInfoFields|PlaylistInfoFields)

	targets := make([]Target, 0, len(playlists))
	for _, p := range playlists {
		targets = append(targets, PlaylistVideos(p))
	}
	e.Prefetch(targets...)
	return videos, playlists, nil
}

// LoadInfo resolves the wanted fields for many entities with a single backend call.
// Entities whose wanted fields are already resolved or pending are skipped; any
// other field the backend returns is stored as well.
func (e *Engine) LoadInfo(ctx context.Context, videos []*Video, playlists []*Playlist, want FieldSet) {
	var refs []Ref
	vClaims := make(map[string]claimedVideo)
	pClaims := make(map[string]claimedPlaylist)
	for _, v := range videos {
		if c := v.claimInfo(want & VideoInfoFields); c != 0 {
			vClaims[v.ID] = claimedVideo{v, c}
			refs = append(refs, Ref{Kind: KindVideo, ID: v.ID})
		}
	}
	for _, p := range playlists {
		if c := p.claimInfo(want & PlaylistInfoFields); c != 0 {
			pClaims[p.ID] = claimedPlaylist{p, c}
			refs = append(refs, Ref{Kind: KindPlaylist, ID: p.ID})
		}
	}
	if len(refs) == 0 {
		return
	}
	defer func() {
		for _, c := range vClaims {
			c.v.settle(c.fields)
		}
		for _, c := range pClaims {
			c.p.settle(c.fields)
		}
	}()

	// Entries fetched before a failure are still applied; only the rest settle absent.
	entries, err := e.backend.LoadInfo(ctx, refs, want)
	if err != nil {
		e.fail("load_info", fmt.Sprintf("%d items, %d returned", len(refs), len(entries)), err)
	}
	for _, en := range entries {
		switch en.Kind {
		case KindVideo:
			if c, ok := vClaims[en.ID]; ok {
				e.persist(en)
				c.v.fill(en)
			}
		case KindPlaylist:
			if c, ok := pClaims[en.ID]; ok {
				c.p.fill(en)
			}
		}
	}
	for id, c := range vClaims {
		if !c.v.resolvedAll(c.fields) {
			slog.Debug("load_info: no data for video", slog.String("id", id))
		}
	}
}

type claimedVideo struct {
	v      *Video
	fields FieldSet
}

type claimedPlaylist struct {
	p      *Playlist
	fields FieldSet
}

// ChannelPlaylists lists a channel's playlists. The listing is always live.
// "root" names the configured own channel.
func (e *Engine) ChannelPlaylists(ctx context.Context, channelID string) ([]*Playlist, error) {
	if channelID == "root" {
		channelID = e.cfg.ChannelID
	}
	if channelID == "" {
		return nil, nil
	}
	entries, err := e.backend.ChannelPlaylists(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("channel playlists %s: %w", channelID, err)
	}
	out := make([]*Playlist, 0, len(entries))
	for _, en := range entries {
		if en.Kind != KindPlaylist {
			continue
		}
		p := e.Playlist(en.ID)
		p.fill(en)
		out = append(out, p)
	}
	return out, nil
}

type unresolvable interface{ unresolved() bool }

func (e *Engine) ensureVideoInfo(v *Video, c unresolvable) {
	if !c.unresolved() {
		return
	}
	if claimed := v.claimInfo(VideoInfoFields); claimed != 0 {
		go e.resolveVideo(context.Background(), v, claimed)
	}
}

// resolveVideo fills the claimed cells from the disk cache or a single backend fetch.
func (e *Engine) resolveVideo(ctx context.Context, v *Video, claimed FieldSet) {
	defer v.settle(claimed)
	if rec, ok := e.loadTrack(v.ID); ok {
		v.fill(rec.entry())
		return
	}
	en, err := e.backend.Get(ctx, KindVideo, v.ID)
	if err != nil {
		e.fail("video_info", v.ID, err)
		return
	}
	e.persist(en)
	v.fill(en)
}

func (e *Engine) ensurePlaylistInfo(p *Playlist, c unresolvable) {
	if !c.unresolved() {
		return
	}
	if claimed := p.claimInfo(PlaylistInfoFields); claimed != 0 {
		go e.resolvePlaylist(context.Background(), p, claimed)
	}
}

func (e *Engine) resolvePlaylist(ctx context.Context, p *Playlist, claimed FieldSet) {
	defer p.settle(claimed)
	en, err := e.backend.Get(ctx, KindPlaylist, p.ID)
	if err != nil {
		e.fail("playlist_info", p.ID, err)
		return
	}
	p.fill(en)
}

func (e *Engine) ensurePlaylistVideos(p *Playlist) {
	if p.videos.claim() {
		go e.resolvePlaylistVideos(context.Background(), p)
	}
}

// resolvePlaylistVideos lists the playlist and loads info for all children in one batch.
func (e *Engine) resolvePlaylistVideos(ctx context.Context, p *Playlist) {
	entries, err := e.backend.PlaylistItems(ctx, p.ID, e.cfg.PlaylistMaxVideos)
	if err != nil {
		e.fail("playlist_items", p.ID, err)
		p.videos.setAbsent()
		return
	}
	videos := make([]*Video, 0, len(entries))
	for _, en := range entries {
		if en.Kind != KindVideo {
			continue
		}
		v := e.Video(en.ID)
		v.fill(en)
		videos = append(videos, v)
	}
	e.LoadInfo(ctx, videos, nil, VideoInfoFields)
	p.videos.set(videos)
}

func (e *Engine) ensureAudio(v *Video) {
	if v.audioURL.claim() {
		go e.resolveAudio(context.Background(), v)
	}
}

func (e *Engine) resolveAudio(ctx context.Context, v *Video) {
	if e.streams == nil {
		v.audioURL.setAbsent()
		return
	}
	metrics.StreamResolves.Add(1)
	u, err := e.streams.Resolve(ctx, v.ID)
	if err != nil || u == "" {
		if err == nil {
			err = ErrNotFound
		}
		e.fail("audio_url", v.ID, err)
		v.audioURL.setAbsent()
		return
	}
	v.audioURL.set(u)
}

func (e *Engine) fail(op, id string, err error) {
	metrics.ResolveFailures.Add(1)
	slog.Warn("resolve failed", slog.String("op", op), slog.String("id", id), slog.Any("error", err))
}

func (v *Video) resolvedAll(f FieldSet) bool {
	if f.Has(FieldTitle) && !v.title.resolved() {
		return false
	}
	if f.Has(FieldLength) && !v.length.resolved() {
		return false
	}
	if f.Has(FieldThumbnails) && !v.thumbnails.resolved() {
		return false
	}
	if f.Has(FieldChannel) && !v.channel.resolved() {
		return false
	}
	return true
}

// httpClient returns the configured client for thumbnail downloads.
func (e *Engine) httpClient() *http.Client { return e.cfg.HTTPClient }
