package library

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// fakeBackend is an in-memory catalogue with call counters.
type fakeBackend struct {
	mu        sync.Mutex
	videos    map[string]engine.Entry
	playlists map[string]engine.Entry
	items     map[string][]string
	channels  map[string][]string
	results   []engine.Entry

	searchCalls  atomic.Int64
	channelCalls atomic.Int64
	getCalls     atomic.Int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		videos:    make(map[string]engine.Entry),
		playlists: make(map[string]engine.Entry),
		items:     make(map[string][]string),
		channels:  make(map[string][]string),
	}
}

func (f *fakeBackend) video(id, title, channelID, channel string, length time.Duration) {
	f.videos[id] = engine.Entry{
		Kind: engine.KindVideo, ID: id, Has: engine.VideoInfoFields,
		Title: title, Length: length,
		Channel:    engine.ChannelRef{ID: channelID, Name: channel},
		Thumbnails: []engine.Image{{URI: "https://i.ytimg.com/vi/" + id + "/hq.jpg", Width: 480, Height: 360}},
	}
}

func (f *fakeBackend) playlist(id, title string, videos ...string) {
	f.playlists[id] = engine.Entry{
		Kind: engine.KindPlaylist, ID: id, Has: engine.PlaylistInfoFields,
		Title: title, VideoCount: len(videos),
		Thumbnails: []engine.Image{{URI: "https://i.ytimg.com/pl/" + id + ".jpg"}},
	}
	f.items[id] = videos
}

func (f *fakeBackend) lookup(kind engine.Kind, id string) (engine.Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == engine.KindPlaylist {
		e, ok := f.playlists[id]
		return e, ok
	}
	e, ok := f.videos[id]
	return e, ok
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Search(_ context.Context, _ string, _ int) ([]engine.Entry, error) {
	f.searchCalls.Add(1)
	return f.results, nil
}

func (f *fakeBackend) Get(_ context.Context, kind engine.Kind, id string) (engine.Entry, error) {
	f.getCalls.Add(1)
	e, ok := f.lookup(kind, id)
	if !ok {
		return engine.Entry{}, engine.ErrNotFound
	}
	return e, nil
}

func (f *fakeBackend) LoadInfo(_ context.Context, refs []engine.Ref, _ engine.FieldSet) ([]engine.Entry, error) {
	var out []engine.Entry
	for _, r := range refs {
		if e, ok := f.lookup(r.Kind, r.ID); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeBackend) PlaylistItems(_ context.Context, id string, max int) ([]engine.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.items[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	var out []engine.Entry
	for _, v := range ids {
		if len(out) == max {
			break
		}
		out = append(out, engine.Entry{Kind: engine.KindVideo, ID: v})
	}
	return out, nil
}

func (f *fakeBackend) ChannelPlaylists(_ context.Context, id string) ([]engine.Entry, error) {
	f.channelCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []engine.Entry
	for _, p := range f.channels[id] {
		e := f.playlists[p]
		out = append(out, engine.Entry{Kind: engine.KindPlaylist, ID: p, Has: engine.FieldTitle, Title: e.Title})
	}
	return out, nil
}

type fakeStreams struct{}

func (fakeStreams) Resolve(_ context.Context, id string) (string, error) {
	if id == "noaudio" {
		return "", engine.ErrNotFound
	}
	return "https://audio.example/" + id, nil
}
