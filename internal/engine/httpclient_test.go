package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProxy answers every proxied request itself and remembers what it saw.
type recordingProxy struct {
	mu     sync.Mutex
	hosts  []string
	agents []string
}

func (p *recordingProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.hosts = append(p.hosts, r.URL.Host)
	p.agents = append(p.agents, r.Header.Get("User-Agent"))
	p.mu.Unlock()
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write([]byte("jpg"))
}

func (p *recordingProxy) seen() ([]string, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.hosts...), append([]string(nil), p.agents...)
}

func TestNewHTTPClient_ProxyAndUserAgent(t *testing.T) {
	proxy := &recordingProxy{}
	srv := httptest.NewServer(proxy)
	defer srv.Close()

	hc, err := NewHTTPClient(srv.URL, "yt-test/1")
	require.NoError(t, err)
	resp, err := hc.Get("http://thumbs.invalid/vi/a/hq.jpg")
	require.NoError(t, err)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, "http://thumbs.invalid/vi/b/hq.jpg", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "explicit")
	resp, err = hc.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	hosts, agents := proxy.seen()
	assert.Equal(t, []string{"thumbs.invalid", "thumbs.invalid"}, hosts)
	assert.Equal(t, []string{"yt-test/1", "explicit"}, agents)
}

func TestNewHTTPClient_InvalidProxy(t *testing.T) {
	_, err := NewHTTPClient("://nope", "")
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, Config{ProxyURL: "://nope"}.Validate(), ErrConfig)
}

func TestEngine_ThumbnailThroughProxy(t *testing.T) {
	proxy := &recordingProxy{}
	srv := httptest.NewServer(proxy)
	defer srv.Close()

	dir := t.TempDir()
	tracks, err := NewFileStore(dir)
	require.NoError(t, err)
	images, err := NewImageDir(dir)
	require.NoError(t, err)

	fb := newFakeBackend()
	v := fakeVideo("p", "Proxied", time.Minute)
	v.Thumbnails = []Image{{URI: "http://thumbs.invalid/vi/p/hq.jpg", Width: 480, Height: 360}}
	fb.addVideo(v)

	e := New(Config{ProxyURL: srv.URL, UserAgent: "yt-test/1"}, fb, WithDiskCache(tracks, images))
	_, ok := e.Video("p").Title().Wait()
	require.True(t, ok)
	e.Flush()

	name, ok := images.Lookup("p")
	require.True(t, ok)
	assert.Equal(t, "p.jpg", name)
	hosts, agents := proxy.seen()
	assert.Equal(t, []string{"thumbs.invalid"}, hosts)
	assert.Equal(t, []string{"yt-test/1"}, agents)

	_, err = tracks.LoadTrack(context.Background(), "p")
	assert.NoError(t, err)
}
