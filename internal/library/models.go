package library

// RefType classifies a browse reference.
type RefType string

const (
	RefDirectory RefType = "directory"
	RefTrack     RefType = "track"
	RefAlbum     RefType = "album"
	RefArtist    RefType = "artist"
	RefPlaylist  RefType = "playlist"
)

// Ref is a lightweight pointer returned by Browse.
type Ref struct {
	Type RefType `json:"type"`
	URI  string  `json:"uri"`
	Name string  `json:"name"`
}

// Image is a picture reference exposed to the host.
type Image struct {
	URI    string `json:"uri"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Artist maps to a YouTube channel.
type Artist struct {
	URI  string `json:"uri,omitempty"`
	Name string `json:"name"`
}

// Album maps to a YouTube playlist.
type Album struct {
	URI       string   `json:"uri"`
	Name      string   `json:"name"`
	Artists   []Artist `json:"artists,omitempty"`
	NumTracks int      `json:"num_tracks,omitempty"`
}

// Track maps to a YouTube video. The zero Track is the "not found" placeholder.
type Track struct {
	URI      string   `json:"uri,omitempty"`
	Name     string   `json:"name,omitempty"`
	Artists  []Artist `json:"artists,omitempty"`
	Album    *Album   `json:"album,omitempty"`
	LengthMS int64    `json:"length_ms,omitempty"`
	Comment  string   `json:"comment,omitempty"`
}

// IsPlaceholder reports whether t is the "not found" record.
func (t Track) IsPlaceholder() bool { return t.URI == "" }

// Query is a library search. Only the Any and URI fields are answered.
type Query struct {
	Any []string `json:"any,omitempty"`
	URI []string `json:"uri,omitempty"`
}

// SearchResult is returned by Search.
type SearchResult struct {
	URI    string  `json:"uri"`
	Tracks []Track `json:"tracks"`
	Albums []Album `json:"albums"`
}
