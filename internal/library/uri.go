package library

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// URI forms accepted everywhere, with scheme yt: or youtube:
//
//	video:<id>            playlist:<id>            channel:<id>
//	video/<title>.<id>    playlist/<title>.<id>    channel/<title>.<id>
//	<youtube.com, youtu.be or music.youtube.com URL>
//	preload:<url-escaped JSON {"videoUri": ..., "preloadTracks": [...]}>

var (
	videoURLRE    = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	playlistURLRE = regexp.MustCompile(`youtube\.com/.*[?&]list=([a-zA-Z0-9_-]+)`)
	channelURLRE  = regexp.MustCompile(`youtube\.com/channel/([a-zA-Z0-9_-]+)`)
)

const (
	browseRootURI    = "youtube:browse"
	channelRootURI   = "youtube:channel:root"
	channelArtistURI = "youtube:channel:artists"
)

// Parsed is the classification of a URI.
type Parsed struct {
	Kind    engine.Kind
	ID      string
	Preload *Preload
}

// ParseURI classifies uri by the same precedence Lookup uses:
// preload, playlist, video, channel. Kind is zero when nothing matches.
func ParseURI(uri string) Parsed {
	if p, ok := extractPreload(uri); ok {
		inner := ParseURI(p.VideoURI)
		inner.Preload = p
		return inner
	}
	if id := extractPlaylistID(uri); id != "" {
		return Parsed{Kind: engine.KindPlaylist, ID: id}
	}
	if id := extractVideoID(uri); id != "" {
		return Parsed{Kind: engine.KindVideo, ID: id}
	}
	if id := extractChannelID(uri); id != "" {
		return Parsed{Kind: engine.KindChannel, ID: id}
	}
	return Parsed{}
}

// stripScheme removes yt: or youtube: and reports whether one was present.
func stripScheme(uri string) (string, bool) {
	for _, s := range []string{"youtube:", "yt:"} {
		if rest, ok := strings.CutPrefix(uri, s); ok {
			return rest, true
		}
	}
	return uri, false
}

// extractTyped handles "<kind>:<id>" and "<kind>/<title>.<id>".
// Ids outside the YouTube id alphabet yield "".
func extractTyped(uri, kind string) string {
	rest, _ := stripScheme(uri)
	var id string
	if v, ok := strings.CutPrefix(rest, kind+":"); ok {
		id = v
	} else if named, ok := strings.CutPrefix(rest, kind+"/"); ok {
		if i := strings.LastIndex(named, "."); i >= 0 {
			id = named[i+1:]
		}
	}
	if !engine.ValidID(id) {
		return ""
	}
	return id
}

func extractVideoID(uri string) string {
	if id := extractTyped(uri, "video"); id != "" {
		return id
	}
	if m := videoURLRE.FindStringSubmatch(uri); m != nil {
		return m[1]
	}
	return ""
}

func extractPlaylistID(uri string) string {
	if id := extractTyped(uri, "playlist"); id != "" {
		return id
	}
	if m := playlistURLRE.FindStringSubmatch(uri); m != nil {
		return m[1]
	}
	return ""
}

func extractChannelID(uri string) string {
	if id := extractTyped(uri, "channel"); id != "" {
		return id
	}
	if m := channelURLRE.FindStringSubmatch(uri); m != nil {
		return m[1]
	}
	return ""
}

func videoURI(id string) string    { return "youtube:video:" + id }
func playlistURI(id string) string { return "youtube:playlist:" + id }
func channelURI(id string) string  { return "youtube:channel:" + id }

// Preload is a set of tracks whose metadata the host already knows,
// plus the URI to look up once they are applied.
type Preload struct {
	VideoURI string
	Tracks   []engine.PreloadTrack
}

type preloadJSON struct {
	VideoURI      string                       `json:"videoUri"`
	PreloadTracks []map[string]json.RawMessage `json:"preloadTracks"`
}

// extractPreload decodes "preload:<url-escaped JSON>".
func extractPreload(uri string) (*Preload, bool) {
	rest, _ := stripScheme(uri)
	raw, ok := strings.CutPrefix(rest, "preload:")
	if !ok {
		return nil, false
	}
	p, err := parsePreload(raw)
	if err != nil {
		return nil, false
	}
	return p, true
}

func parsePreload(raw string) (*Preload, error) {
	text, err := url.PathUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("preload: unescape: %w", err)
	}
	var pj preloadJSON
	if err := json.Unmarshal([]byte(text), &pj); err != nil {
		return nil, fmt.Errorf("preload: decode: %w", err)
	}
	p := &Preload{VideoURI: pj.VideoURI}
	for _, fields := range pj.PreloadTracks {
		t, ok := decodePreloadTrack(fields)
		if ok {
			p.Tracks = append(p.Tracks, t)
		}
	}
	return p, nil
}

var preloadKnownKeys = map[string]bool{
	"id": true, "videoId": true, "title": true, "length": true,
	"channel": true, "thumbnails": true,
}

// decodePreloadTrack maps one music-page track object. Known fields are typed;
// everything else is carried in Extra.
func decodePreloadTrack(fields map[string]json.RawMessage) (engine.PreloadTrack, bool) {
	var t engine.PreloadTrack
	var id struct {
		VideoID string `json:"videoId"`
	}
	if raw, ok := fields["id"]; ok && json.Unmarshal(raw, &id) == nil {
		t.VideoID = id.VideoID
	}
	if t.VideoID == "" {
		if raw, ok := fields["videoId"]; ok {
			_ = json.Unmarshal(raw, &t.VideoID)
		}
	}
	if !engine.ValidID(t.VideoID) {
		return t, false
	}
	if raw, ok := fields["title"]; ok {
		_ = json.Unmarshal(raw, &t.Title)
	}
	if raw, ok := fields["length"]; ok {
		t.Length = decodeLength(raw)
	}
	if raw, ok := fields["channel"]; ok {
		t.Channel = decodeChannel(raw)
	}
	if raw, ok := fields["thumbnails"]; ok {
		var imgs []struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		}
		if json.Unmarshal(raw, &imgs) == nil {
			for _, im := range imgs {
				t.Thumbnails = append(t.Thumbnails, engine.Image{URI: im.URL, Width: im.Width, Height: im.Height})
			}
		}
	}
	for k, raw := range fields {
		if preloadKnownKeys[k] {
			continue
		}
		var v any
		if json.Unmarshal(raw, &v) == nil {
			if t.Extra == nil {
				t.Extra = make(map[string]any)
			}
			t.Extra[k] = v
		}
	}
	return t, true
}

// decodeLength accepts seconds as a number or numeric string, or "m:ss" text.
func decodeLength(raw json.RawMessage) time.Duration {
	var n float64
	if json.Unmarshal(raw, &n) == nil && n > 0 {
		return time.Duration(n * float64(time.Second))
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return 0
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	var total int
	for _, part := range strings.Split(s, ":") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + v
	}
	return time.Duration(total) * time.Second
}

// decodeChannel accepts a plain name or an object with id and name.
func decodeChannel(raw json.RawMessage) engine.ChannelRef {
	var name string
	if json.Unmarshal(raw, &name) == nil {
		return engine.ChannelRef{Name: name}
	}
	var ch engine.ChannelRef
	_ = json.Unmarshal(raw, &ch)
	return ch
}
