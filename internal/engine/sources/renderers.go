package sources

import (
	"encoding/json"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// ytText is YouTube's formatted string: either simpleText or a list of runs.
type ytText struct {
	SimpleText string  `json:"simpleText"`
	Runs       []ytRun `json:"runs"`
}

type ytRun struct {
	Text               string `json:"text"`
	NavigationEndpoint *struct {
		BrowseEndpoint *struct {
			BrowseID string `json:"browseId"`
		} `json:"browseEndpoint"`
	} `json:"navigationEndpoint"`
}

func (r ytRun) browseID() string {
	if r.NavigationEndpoint == nil || r.NavigationEndpoint.BrowseEndpoint == nil {
		return ""
	}
	return r.NavigationEndpoint.BrowseEndpoint.BrowseID
}

func (t ytText) String() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	var sb strings.Builder
	for _, r := range t.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// channel returns the first run that links to a channel.
func (t ytText) channel() (engine.ChannelRef, bool) {
	for _, r := range t.Runs {
		if id := r.browseID(); strings.HasPrefix(id, "UC") {
			return engine.ChannelRef{ID: id, Name: r.Text}, true
		}
	}
	if len(t.Runs) > 0 {
		return engine.ChannelRef{Name: t.Runs[0].Text}, true
	}
	return engine.ChannelRef{}, false
}

type ytThumbs struct {
	Thumbnails []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"thumbnails"`
}

func (t ytThumbs) images() []engine.Image {
	out := make([]engine.Image, 0, len(t.Thumbnails))
	for _, th := range t.Thumbnails {
		u := th.URL
		if strings.HasPrefix(u, "//") {
			u = "https:" + u
		}
		out = append(out, engine.Image{URI: u, Width: th.Width, Height: th.Height})
	}
	return out
}

// walkRenderers visits every object key in data depth-first in a stable order.
// When visit returns true the value is consumed and not descended into.
func walkRenderers(data []byte, visit func(key string, raw json.RawMessage) bool) {
	var walk func(v json.RawMessage)
	walk = func(v json.RawMessage) {
		v = json.RawMessage(strings.TrimSpace(string(v)))
		if len(v) == 0 {
			return
		}
		switch v[0] {
		case '{':
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(v, &obj); err != nil {
				return
			}
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				if visit(k, obj[k]) {
					continue
				}
				walk(obj[k])
			}
		case '[':
			var arr []json.RawMessage
			if err := json.Unmarshal(v, &arr); err != nil {
				return
			}
			for _, item := range arr {
				walk(item)
			}
		}
	}
	walk(data)
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// parseClock parses "3:45" or "1:02:03".
func parseClock(s string) (time.Duration, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, true
}

func parseSeconds(s string) (time.Duration, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration parses the Data API's ISO 8601 durations such as "PT4M13S".
func parseISODuration(s string) (time.Duration, bool) {
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		d += time.Duration(n) * u
	}
	return d, true
}

var digitsRE = regexp.MustCompile(`\d[\d,.]*`)

// parseCount pulls the first number out of texts like "25 videos" or "1,204".
func parseCount(s string) (int, bool) {
	m := digitsRE.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(m))
	if err != nil {
		return 0, false
	}
	return n, true
}
