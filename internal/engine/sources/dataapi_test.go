package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_youtube/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDataAPI(t *testing.T, h http.HandlerFunc) *DataAPI {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	d, err := NewDataAPI(engine.Config{APIKey: "secret-key", UserAgent: "test-agent"}, srv.URL)
	require.NoError(t, err)
	d.c.initialWait = time.Millisecond
	d.c.maxWait = 5 * time.Millisecond
	return d
}

func TestNewDataAPI_RequiresKey(t *testing.T) {
	_, err := NewDataAPI(engine.Config{}, "")
	assert.ErrorIs(t, err, engine.ErrConfig)
}

func TestDataAPI_Search(t *testing.T) {
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "secret-key", r.URL.Query().Get("key"))
		assert.Equal(t, "video,playlist", r.URL.Query().Get("type"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"items":[
			{"id":{"kind":"youtube#video","videoId":"vid1"},"snippet":{"title":"Rock &amp; Roll","channelId":"UC1","channelTitle":"Chan","thumbnails":{"high":{"url":"h","width":480,"height":360},"default":{"url":"d","width":120,"height":90}}}},
			{"id":{"kind":"youtube#playlist","playlistId":"PL1"},"snippet":{"title":"List"}},
			{"id":{"kind":"youtube#channel"},"snippet":{"title":"skip"}}
		]}`))
	})

	entries, err := d.Search(context.Background(), "rock", 15)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	v := entries[0]
	assert.Equal(t, engine.KindVideo, v.Kind)
	assert.Equal(t, "Rock & Roll", v.Title)
	assert.Equal(t, engine.ChannelRef{ID: "UC1", Name: "Chan"}, v.Channel)
	require.Len(t, v.Thumbnails, 2)
	assert.Equal(t, "d", v.Thumbnails[0].URI, "thumbnails sorted by width")
	assert.True(t, v.Has.Has(engine.FieldTitle|engine.FieldChannel|engine.FieldThumbnails))
	assert.False(t, v.Has.Has(engine.FieldLength))

	assert.Equal(t, engine.KindPlaylist, entries[1].Kind)
	assert.Equal(t, "PL1", entries[1].ID)
}

func TestDataAPI_LoadInfoMixed(t *testing.T) {
	var calls atomic.Int64
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/videos":
			assert.Equal(t, "a,b", r.URL.Query().Get("id"))
			w.Write([]byte(`{"items":[{"id":"a","snippet":{"title":"A","channelTitle":"C"},"contentDetails":{"duration":"PT3M"}}]}`))
		case "/playlists":
			w.Write([]byte(`{"items":[{"id":"PL","snippet":{"title":"P","channelTitle":"C"},"contentDetails":{"itemCount":7}}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	entries, err := d.LoadInfo(context.Background(), []engine.Ref{
		{Kind: engine.KindVideo, ID: "a"},
		{Kind: engine.KindVideo, ID: "b"},
		{Kind: engine.KindPlaylist, ID: "PL"},
	}, engine.VideoInfoFields|engine.PlaylistInfoFields)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.EqualValues(t, 2, calls.Load())

	assert.Equal(t, 3*time.Minute, entries[0].Length)
	assert.True(t, entries[0].Has.Has(engine.FieldLength))
	assert.Equal(t, 7, entries[1].VideoCount)
	assert.False(t, entries[1].Has.Has(engine.FieldChannel), "playlists carry no channel field")
}

func TestDataAPI_PlaylistItemsPaging(t *testing.T) {
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			w.Write([]byte(`{"nextPageToken":"p2","items":[
				{"snippet":{"title":"One","resourceId":{"videoId":"v1"},"videoOwnerChannelId":"UC9","videoOwnerChannelTitle":"Owner"}},
				{"snippet":{"title":"Deleted video","resourceId":{}}}
			]}`))
			return
		}
		w.Write([]byte(`{"items":[{"snippet":{"title":"Two","resourceId":{"videoId":"v2"}}},{"snippet":{"title":"Three","resourceId":{"videoId":"v3"}}}]}`))
	})

	entries, err := d.PlaylistItems(context.Background(), "PL", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "v1", entries[0].ID)
	assert.Equal(t, "Owner", entries[0].Channel.Name)
	assert.Equal(t, "v2", entries[1].ID)
}

func TestDataAPI_GetNotFound(t *testing.T) {
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	})
	_, err := d.Get(context.Background(), engine.KindVideo, "nope")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int64
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"items":[{"id":"x","snippet":{"title":"X"}}]}`))
	})
	e, err := d.Get(context.Background(), engine.KindVideo, "x")
	require.NoError(t, err)
	assert.Equal(t, "X", e.Title)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_RetriesDroppedConnection(t *testing.T) {
	var calls atomic.Int64
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				conn.Close()
			}
			return
		}
		w.Write([]byte(`{"items":[{"id":"x","snippet":{"title":"X"}}]}`))
	})
	e, err := d.Get(context.Background(), engine.KindVideo, "x")
	require.NoError(t, err)
	assert.Equal(t, "X", e.Title)
	assert.GreaterOrEqual(t, calls.Load(), int64(2))
}

func TestClient_CanceledContextNotRetried(t *testing.T) {
	var calls atomic.Int64
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Search(ctx, "q", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestClient_ErrorsRedactKey(t *testing.T) {
	var calls atomic.Int64
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`bad request`))
	})
	_, err := d.Search(context.Background(), "q", 1)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.EqualValues(t, 1, calls.Load(), "400 is not retried")

	d.base = "http://127.0.0.1:1"
	_, err = d.Search(context.Background(), "q", 1)
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "secret-key"), err.Error())
	assert.False(t, errors.Is(err, engine.ErrNotFound))
}

func TestClient_NotFound(t *testing.T) {
	d := newTestDataAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := d.Search(context.Background(), "q", 1)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}
