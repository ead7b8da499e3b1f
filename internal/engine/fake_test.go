package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var errFake = errors.New("fake backend failure")

// fakeBackend serves entries from maps and counts every call.
type fakeBackend struct {
	mu        sync.Mutex
	videos    map[string]Entry
	playlists map[string]Entry
	items     map[string][]string
	channels  map[string][]string
	search    []Entry

	delay   time.Duration
	failGet bool
	failAll bool
	// partialErr makes LoadInfo return what it found together with this error.
	partialErr error

	searchCalls   atomic.Int64
	getCalls      atomic.Int64
	loadInfoCalls atomic.Int64
	itemsCalls    atomic.Int64
	channelCalls  atomic.Int64
	loadInfoRefs  [][]Ref
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		videos:    make(map[string]Entry),
		playlists: make(map[string]Entry),
		items:     make(map[string][]string),
		channels:  make(map[string][]string),
	}
}

func fakeVideo(id, title string, length time.Duration) Entry {
	return Entry{
		Kind: KindVideo, ID: id, Has: VideoInfoFields,
		Title: title, Length: length,
		Channel:    ChannelRef{ID: "UC" + id, Name: "channel " + id},
		Thumbnails: []Image{{URI: "https://i.ytimg.com/vi/" + id + "/hq.jpg", Width: 480, Height: 360}},
	}
}

func fakePlaylist(id, title string, count int) Entry {
	return Entry{Kind: KindPlaylist, ID: id, Has: PlaylistInfoFields, Title: title, VideoCount: count}
}

func (f *fakeBackend) addVideo(e Entry) {
	f.mu.Lock()
	f.videos[e.ID] = e
	f.mu.Unlock()
}

func (f *fakeBackend) sleep(ctx context.Context) {
	if f.delay <= 0 {
		return
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
	}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	f.searchCalls.Add(1)
	f.sleep(ctx)
	if f.failAll {
		return nil, errFake
	}
	out := make([]Entry, 0, len(f.search))
	for _, e := range f.search {
		out = append(out, Entry{Kind: e.Kind, ID: e.ID, Has: FieldTitle, Title: e.Title})
	}
	return out, nil
}

func (f *fakeBackend) Get(ctx context.Context, kind Kind, id string) (Entry, error) {
	f.getCalls.Add(1)
	f.sleep(ctx)
	if f.failGet || f.failAll {
		return Entry{}, errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	src := f.videos
	if kind == KindPlaylist {
		src = f.playlists
	}
	e, ok := src[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeBackend) LoadInfo(ctx context.Context, refs []Ref, want FieldSet) ([]Entry, error) {
	f.loadInfoCalls.Add(1)
	f.mu.Lock()
	f.loadInfoRefs = append(f.loadInfoRefs, append([]Ref(nil), refs...))
	f.mu.Unlock()
	f.sleep(ctx)
	if f.failAll {
		return nil, errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Entry
	for _, r := range refs {
		src := f.videos
		if r.Kind == KindPlaylist {
			src = f.playlists
		}
		if e, ok := src[r.ID]; ok {
			out = append(out, e)
		}
	}
	return out, f.partialErr
}

func (f *fakeBackend) PlaylistItems(ctx context.Context, playlistID string, max int) ([]Entry, error) {
	f.itemsCalls.Add(1)
	f.sleep(ctx)
	if f.failAll {
		return nil, errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids, ok := f.items[playlistID]
	if !ok {
		return nil, ErrNotFound
	}
	var out []Entry
	for _, id := range ids {
		if len(out) == max {
			break
		}
		out = append(out, Entry{Kind: KindVideo, ID: id})
	}
	return out, nil
}

func (f *fakeBackend) ChannelPlaylists(ctx context.Context, channelID string) ([]Entry, error) {
	f.channelCalls.Add(1)
	if f.failAll {
		return nil, errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Entry
	for _, id := range f.channels[channelID] {
		out = append(out, Entry{Kind: KindPlaylist, ID: id})
	}
	return out, nil
}

func (f *fakeBackend) loadInfoBatches() [][]Ref {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]Ref(nil), f.loadInfoRefs...)
}

// fakeStreams resolves every id to a fixed URL, or fails.
type fakeStreams struct {
	calls atomic.Int64
	fail  bool
}

func (s *fakeStreams) Resolve(ctx context.Context, videoID string) (string, error) {
	s.calls.Add(1)
	if s.fail {
		return "", errFake
	}
	return "https://audio.example/" + videoID, nil
}
