package ytserver

import "github.com/anatolykoptev/go_youtube/internal/library"

// SearchInput is the input for youtube_search.
type SearchInput struct {
	Query string   `json:"query,omitempty" jsonschema:"Free-text search terms"`
	URI   []string `json:"uri,omitempty" jsonschema:"Look up these URIs instead of searching (first one is used)"`
}

// SearchOutput is the output of youtube_search.
type SearchOutput struct {
	Found  bool                  `json:"found"`
	Result *library.SearchResult `json:"result,omitempty"`
}

// URIInput carries a single youtube: URI.
type URIInput struct {
	URI string `json:"uri" jsonschema:"youtube:/yt: URI or youtube.com URL"`
}

// LookupOutput is the output of youtube_lookup.
type LookupOutput struct {
	URI    string          `json:"uri"`
	Tracks []library.Track `json:"tracks"`
	Found  bool            `json:"found"`
}

// BrowseOutput is the output of youtube_browse.
type BrowseOutput struct {
	URI  string        `json:"uri"`
	Refs []library.Ref `json:"refs"`
}

// URIsInput carries a list of URIs.
type URIsInput struct {
	URIs []string `json:"uris" jsonschema:"URIs to process"`
}

// ImagesOutput is the output of youtube_images.
type ImagesOutput struct {
	Images map[string][]library.Image `json:"images"`
}

// TranslateOutput is the output of youtube_translate_uri.
type TranslateOutput struct {
	URI      string `json:"uri"`
	Playable string `json:"playable,omitempty"`
	Found    bool   `json:"found"`
}

// TracklistOutput is the output of youtube_tracklist_changed.
type TracklistOutput struct {
	Scheduled int `json:"scheduled"`
}
