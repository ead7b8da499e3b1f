package library

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(t *testing.T, fb *fakeBackend, cfg engine.Config, opts ...engine.Option) (*Library, *engine.Engine) {
	t.Helper()
	opts = append(opts, engine.WithStreamResolver(fakeStreams{}))
	eng := engine.New(cfg, fb, opts...)
	t.Cleanup(func() {
		eng.WaitPrefetch()
		eng.Flush()
	})
	return New(eng, engine.NewBrowseCache(time.Hour, 100, nil)), eng
}

func catalogue() *fakeBackend {
	fb := newFakeBackend()
	fb.video("v1", "First", "UCa", "Alpha", 3*time.Minute)
	fb.video("v2", "Second", "UCb", "beta", 4*time.Minute)
	fb.video("v3", "Third", "UCa", "Alpha", 5*time.Minute)
	fb.playlist("PL1", "Zebra list", "v1", "v2", "gone")
	fb.playlist("PL2", "apple list", "v3")
	fb.channels["UCme"] = []string{"PL1", "PL2"}
	fb.results = []engine.Entry{
		{Kind: engine.KindVideo, ID: "v1", Has: engine.FieldTitle, Title: "First"},
		{Kind: engine.KindPlaylist, ID: "PL2", Has: engine.FieldTitle, Title: "apple list"},
	}
	return fb
}

func TestLibrary_Search(t *testing.T) {
	fb := catalogue()
	lib, _ := newTestLibrary(t, fb, engine.Config{})

	res := lib.Search(context.Background(), Query{Any: []string{"first", "song"}})
	require.NotNil(t, res)
	assert.Equal(t, "youtube:search", res.URI)
	require.Len(t, res.Tracks, 1)
	require.Len(t, res.Albums, 1)

	tr := res.Tracks[0]
	assert.Equal(t, "youtube:video:v1", tr.URI)
	assert.Equal(t, "First", tr.Name)
	assert.EqualValues(t, 180000, tr.LengthMS)
	assert.Equal(t, []Artist{{URI: "youtube:channel:UCa", Name: "Alpha"}}, tr.Artists)
	assert.Equal(t, "YouTube Video", tr.Album.Name)
	assert.Equal(t, "v1", tr.Comment)

	al := res.Albums[0]
	assert.Equal(t, "youtube:playlist:PL2", al.URI)
	assert.Equal(t, 1, al.NumTracks)
	assert.EqualValues(t, 1, fb.searchCalls.Load())
}

func TestLibrary_SearchByURI(t *testing.T) {
	lib, _ := newTestLibrary(t, catalogue(), engine.Config{})

	res := lib.Search(context.Background(), Query{URI: []string{"youtube:video:v2"}})
	require.NotNil(t, res)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, "Second", res.Tracks[0].Name)

	assert.Nil(t, lib.Search(context.Background(), Query{URI: []string{"spotify:track:1"}}))
	assert.Nil(t, lib.Search(context.Background(), Query{}))
}

func TestLibrary_LookupPlaylist(t *testing.T) {
	lib, _ := newTestLibrary(t, catalogue(), engine.Config{})

	tracks := lib.Lookup(context.Background(), "youtube:playlist:PL1")
	require.Len(t, tracks, 2, "unavailable video filtered out")
	assert.Equal(t, "youtube:video:v1", tracks[0].URI)
	assert.Equal(t, "youtube:video:v2", tracks[1].URI)
	assert.Equal(t, &Album{URI: "youtube:playlist:PL1", Name: "Zebra list"}, tracks[0].Album)
}

func TestLibrary_LookupVideoAndPlaceholder(t *testing.T) {
	fb := catalogue()
	lib, _ := newTestLibrary(t, fb, engine.Config{})

	tracks := lib.Lookup(context.Background(), "yt:video:v3")
	require.Len(t, tracks, 1)
	assert.False(t, tracks[0].IsPlaceholder())

	tracks = lib.Lookup(context.Background(), "youtube:video/Third.v3")
	require.Len(t, tracks, 1)
	assert.Equal(t, "Third", tracks[0].Name)
	assert.EqualValues(t, 1, fb.getCalls.Load(), "canonical video fetched once")

	tracks = lib.Lookup(context.Background(), "not a youtube uri")
	require.Len(t, tracks, 1)
	assert.True(t, tracks[0].IsPlaceholder())
}

func TestLibrary_LookupChannel(t *testing.T) {
	lib, _ := newTestLibrary(t, catalogue(), engine.Config{})
	tracks := lib.Lookup(context.Background(), "youtube:channel:UCme")
	require.Len(t, tracks, 4, "every listed video, including unavailable ones")
	assert.Equal(t, "youtube:video:v3", tracks[3].URI)
}

func TestLibrary_LookupPreload(t *testing.T) {
	fb := catalogue()
	lib, eng := newTestLibrary(t, fb, engine.Config{})

	raw := `{"videoUri":"youtube:video:pre","preloadTracks":[{"videoId":"pre","title":"Preloaded","length":"2:00","channel":"Artist","album":"LP"}]}`
	tracks := lib.Lookup(context.Background(), "youtube:preload:"+url.PathEscape(raw))
	require.Len(t, tracks, 1)
	assert.Equal(t, "Preloaded", tracks[0].Name)
	assert.EqualValues(t, 120000, tracks[0].LengthMS)
	assert.Zero(t, fb.getCalls.Load(), "preloaded fields need no fetch")
	assert.Equal(t, "LP", eng.Video("pre").Extra()["album"])
}

func TestLibrary_Browse(t *testing.T) {
	fb := catalogue()
	lib, _ := newTestLibrary(t, fb, engine.Config{ChannelID: "UCme"})
	ctx := context.Background()

	root := lib.Browse(ctx, "youtube:browse")
	require.Len(t, root, 2)
	assert.Equal(t, Ref{Type: RefDirectory, URI: "youtube:channel:root", Name: "My Youtube playlists"}, root[0])
	assert.Equal(t, "youtube:channel:artists", root[1].URI)

	pls := lib.Browse(ctx, "youtube:channel:root")
	require.Len(t, pls, 2)
	assert.Equal(t, "apple list", pls[0].Name, "sorted case-insensitively")
	assert.Equal(t, RefPlaylist, pls[0].Type)
	assert.Equal(t, "Zebra list", pls[1].Name)

	again := lib.Browse(ctx, "youtube:channel:root")
	assert.Equal(t, pls, again)
	assert.EqualValues(t, 1, fb.channelCalls.Load(), "second browse served from cache")

	tracks := lib.Browse(ctx, "youtube:playlist:PL1")
	require.Len(t, tracks, 2)
	assert.Equal(t, Ref{Type: RefTrack, URI: "youtube:video:v1", Name: "First"}, tracks[0])

	artists := lib.Browse(ctx, "youtube:channel:artists")
	require.Len(t, artists, 2)
	assert.Equal(t, Ref{Type: RefArtist, URI: "youtube:channel:UCa", Name: "Alpha"}, artists[0])
	assert.Equal(t, "beta", artists[1].Name)

	assert.Empty(t, lib.Browse(ctx, "youtube:unknown"))
}

func TestLibrary_Images(t *testing.T) {
	dir := t.TempDir()
	images, err := engine.NewImageDir(dir)
	require.NoError(t, err)
	tracks, err := engine.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1.webp"), []byte("img"), 0o644))

	offline := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("offline")
	})}
	lib, _ := newTestLibrary(t, catalogue(), engine.Config{HTTPClient: offline}, engine.WithDiskCache(tracks, images))

	got := lib.Images(context.Background(), []string{"youtube:video:v1", "youtube:video:v2", "youtube:playlist:PL2", "other:x"})
	assert.Equal(t, []Image{{URI: "/youtube/v1.webp"}}, got["youtube:video:v1"])
	assert.Equal(t, []Image{{URI: "https://i.ytimg.com/vi/v2/hq.jpg", Width: 480, Height: 360}}, got["youtube:video:v2"])
	assert.Equal(t, []Image{{URI: "https://i.ytimg.com/pl/PL2.jpg"}}, got["youtube:playlist:PL2"])
	assert.NotContains(t, got, "other:x")
}

func TestLibrary_EscapingIDsStayInsideCacheDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.json"), []byte(`{"id":"secret","title":"outside","length_ms":1000}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.webp"), []byte("img"), 0o644))
	dir := filepath.Join(root, "cache")
	tracks, err := engine.NewFileStore(dir)
	require.NoError(t, err)
	images, err := engine.NewImageDir(dir)
	require.NoError(t, err)

	fb := catalogue()
	lib, _ := newTestLibrary(t, fb, engine.Config{}, engine.WithDiskCache(tracks, images))
	ctx := context.Background()

	got := lib.Lookup(ctx, "youtube:video:../secret")
	require.Len(t, got, 1)
	assert.True(t, got[0].IsPlaceholder())
	assert.Empty(t, lib.Images(ctx, []string{"youtube:video:../secret"}))
	assert.Zero(t, fb.getCalls.Load())
}

func TestLibrary_TranslateURI(t *testing.T) {
	lib, _ := newTestLibrary(t, catalogue(), engine.Config{})

	u, ok := lib.TranslateURI(context.Background(), "youtube:video:v1")
	assert.True(t, ok)
	assert.Equal(t, "https://audio.example/v1", u)

	_, ok = lib.TranslateURI(context.Background(), "youtube:video:noaudio")
	assert.False(t, ok)
	_, ok = lib.TranslateURI(context.Background(), "youtube:playlist:PL1")
	assert.False(t, ok)
}

func TestLibrary_TracklistChanged(t *testing.T) {
	lib, eng := newTestLibrary(t, catalogue(), engine.Config{})

	n := lib.TracklistChanged([]string{"youtube:video:v1", "youtube:playlist:PL1", "youtube:video:v2"})
	assert.Equal(t, 2, n)
	eng.WaitPrefetch()

	u, ok := eng.Video("v2").AudioURL().Peek()
	assert.True(t, ok)
	assert.Equal(t, "https://audio.example/v2", u)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
