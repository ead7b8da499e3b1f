package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// namedBackend is a fakeBackend with a fixed name.
type namedBackend struct {
	*fakeBackend
	name string
}

func (n namedBackend) Name() string { return n.name }

type factoryCalls struct {
	api, scraper, music int
	cookie              string
}

func testFactories(apiFails bool, calls *factoryCalls) Factories {
	return Factories{
		API: func(Config) (Backend, error) {
			calls.api++
			fb := newFakeBackend()
			fb.failAll = apiFails
			return namedBackend{fb, "api"}, nil
		},
		Scraper: func(Config) (Backend, error) {
			calls.scraper++
			return namedBackend{newFakeBackend(), "scraper"}, nil
		},
		Music: func(_ Config, cookie string) (Backend, error) {
			calls.music++
			calls.cookie = cookie
			return namedBackend{newFakeBackend(), "music"}, nil
		},
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		apiFails bool
		want     string
	}{
		{"no key uses scraper", Config{}, false, "scraper"},
		{"verified key uses api", Config{APIKey: "k"}, false, "api"},
		{"failed canary falls back", Config{APIKey: "bad"}, true, "scraper"},
		{"music supersedes api", Config{APIKey: "k", MusicAPIEnabled: true}, false, "music"},
		{"music supersedes scraper", Config{MusicAPIEnabled: true, MusicAPICookie: "SID=1"}, false, "music"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls factoryCalls
			b, err := Select(context.Background(), tt.cfg, testFactories(tt.apiFails, &calls))
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Name())
		})
	}
}

func TestSelect_CookieConflictBeforeNetwork(t *testing.T) {
	var calls factoryCalls
	cfg := Config{
		APIKey:             "k",
		MusicAPIEnabled:    true,
		MusicAPICookie:     "SID=1",
		MusicAPICookieFile: "/tmp/cookies.txt",
	}
	_, err := Select(context.Background(), cfg, testFactories(false, &calls))
	assert.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, factoryCalls{}, calls, "no backend constructed")
}

func TestSelect_CookieFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	jar := "# Netscape HTTP Cookie File\n" +
		".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc\n" +
		"#HttpOnly_.youtube.com\tTRUE\t/\tTRUE\t0\tHSID\t\"xyz\"\n" +
		".google.com\tTRUE\t/\tTRUE\t0\tNID\tnope\n"
	require.NoError(t, os.WriteFile(path, []byte(jar), 0o600))

	var calls factoryCalls
	b, err := Select(context.Background(), Config{MusicAPIEnabled: true, MusicAPICookieFile: path}, testFactories(false, &calls))
	require.NoError(t, err)
	assert.Equal(t, "music", b.Name())
	assert.Equal(t, "SID=abc; HSID=xyz", calls.cookie)

	_, err = Select(context.Background(), Config{MusicAPIEnabled: true, MusicAPICookieFile: path + ".missing"}, testFactories(false, &calls))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestSelect_NoBackend(t *testing.T) {
	_, err := Select(context.Background(), Config{}, Factories{
		Scraper: func(Config) (Backend, error) { return nil, errors.New("down") },
	})
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero", Config{}, false},
		{"cache without dir", Config{AllowCache: true}, true},
		{"unknown cache backend", Config{CacheBackend: "bolt"}, true},
		{"sqlite", Config{AllowCache: true, CacheDir: "/tmp/x", CacheBackend: "sqlite"}, false},
		{"both cookies", Config{MusicAPIEnabled: true, MusicAPICookie: "a", MusicAPICookieFile: "b"}, true},
		{"both cookies, music off", Config{MusicAPICookie: "a", MusicAPICookieFile: "b"}, false},
		{"invalid proxy", Config{ProxyURL: "://nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
