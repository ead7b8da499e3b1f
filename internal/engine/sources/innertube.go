package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// YouTube Innertube API: the JSON endpoints behind the web and music front ends.

const (
	ytWebBase         = "https://www.youtube.com"
	ytMusicBase       = "https://music.youtube.com"
	ytWebVersion      = "2.20250222.10.00"
	ytMusicVersion    = "1.20250219.01.00"
	ytChannelPlaylist = "EglwbGF5bGlzdHM=" // channel "Playlists" tab
)

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	VisitorData   string `json:"visitorData,omitempty"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

// innertube posts WEB or WEB_REMIX payloads to one host.
type innertube struct {
	c        *client
	base     string
	client   innertubeClient
	clientID string // X-Youtube-Client-Name
	origin   string
}

func newInnertube(c *client, base, name, version, clientID, origin string) *innertube {
	return &innertube{
		c:    c,
		base: strings.TrimRight(base, "/"),
		client: innertubeClient{
			ClientName:    name,
			ClientVersion: version,
			VisitorData:   generateVisitorData(),
			Hl:            "en",
			Gl:            "US",
		},
		clientID: clientID,
		origin:   origin,
	}
}

// generateVisitorData creates a random 11-char visitor ID for Innertube requests.
func generateVisitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

func (it *innertube) call(ctx context.Context, endpoint string, payload map[string]any) ([]byte, error) {
	payload["context"] = map[string]any{
		"client":  it.client,
		"user":    map[string]any{"enableSafetyMode": false},
		"request": map[string]any{"useSsl": true},
	}
	data, err := it.c.postJSON(ctx, it.base+"/youtubei/v1/"+endpoint+"?prettyPrint=false", payload, map[string]string{
		"Accept":                   "*/*",
		"X-Youtube-Client-Name":    it.clientID,
		"X-Youtube-Client-Version": it.client.ClientVersion,
		"X-Goog-Visitor-Id":        it.client.VisitorData,
		"Origin":                   it.origin,
		"Referer":                  it.origin + "/",
	})
	if err != nil {
		return nil, fmt.Errorf("innertube %s [%s]: %w", it.client.ClientName, endpoint, err)
	}
	return data, nil
}

type playerResp struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails *struct {
		VideoID       string   `json:"videoId"`
		Title         string   `json:"title"`
		LengthSeconds string   `json:"lengthSeconds"`
		ChannelID     string   `json:"channelId"`
		Author        string   `json:"author"`
		Thumbnail     ytThumbs `json:"thumbnail"`
	} `json:"videoDetails"`
}

// player fetches a video's details from the /player endpoint.
func (it *innertube) player(ctx context.Context, id string) (engine.Entry, error) {
	data, err := it.call(ctx, "player", map[string]any{
		"videoId":        id,
		"racyCheckOk":    true,
		"contentCheckOk": true,
	})
	if err != nil {
		return engine.Entry{}, err
	}
	var resp playerResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return engine.Entry{}, fmt.Errorf("decode player %s: %w", id, err)
	}
	vd := resp.VideoDetails
	if vd == nil || vd.VideoID == "" {
		reason := ""
		if resp.PlayabilityStatus != nil {
			reason = resp.PlayabilityStatus.Status + " " + resp.PlayabilityStatus.Reason
		}
		return engine.Entry{}, fmt.Errorf("player %s: %w %s", id, engine.ErrNotFound, strings.TrimSpace(reason))
	}
	e := engine.Entry{Kind: engine.KindVideo, ID: vd.VideoID}
	if vd.Title != "" {
		e.Title = vd.Title
		e.Has |= engine.FieldTitle
	}
	if l, ok := parseSeconds(vd.LengthSeconds); ok {
		e.Length = l
		e.Has |= engine.FieldLength
	}
	if imgs := vd.Thumbnail.images(); len(imgs) > 0 {
		e.Thumbnails = imgs
		e.Has |= engine.FieldThumbnails
	}
	if vd.Author != "" {
		e.Channel = engine.ChannelRef{ID: vd.ChannelID, Name: vd.Author}
		e.Has |= engine.FieldChannel
	}
	return e, nil
}

func (it *innertube) browse(ctx context.Context, browseID, params string) ([]byte, error) {
	payload := map[string]any{"browseId": browseID}
	if params != "" {
		payload["params"] = params
	}
	return it.call(ctx, "browse", payload)
}

func (it *innertube) search(ctx context.Context, query string) ([]byte, error) {
	return it.call(ctx, "search", map[string]any{"query": query})
}
