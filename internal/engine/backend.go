package engine

import (
	"context"
	"errors"
	"time"
)

// Kind identifies the type of a catalogue item.
type Kind int

const (
	KindVideo Kind = iota + 1
	KindPlaylist
	KindChannel
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindPlaylist:
		return "playlist"
	case KindChannel:
		return "channel"
	}
	return "unknown"
}

// FieldSet is a bitmask of entity fields.
type FieldSet uint16

const (
	FieldTitle FieldSet = 1 << iota
	FieldLength
	FieldThumbnails
	FieldChannel
	FieldVideoCount
)

// VideoInfoFields are the fields one info call resolves for a video.
const VideoInfoFields = FieldTitle | FieldLength | FieldThumbnails | FieldChannel

// PlaylistInfoFields are the fields one info call resolves for a playlist.
const PlaylistInfoFields = FieldTitle | FieldThumbnails | FieldVideoCount

// Has reports whether all fields in f are set in s.
func (s FieldSet) Has(f FieldSet) bool { return s&f == f }

var (
	// ErrConfig marks configuration errors. They are fatal at startup.
	ErrConfig = errors.New("configuration error")
	// ErrNotFound is returned by backends when an id yields nothing.
	ErrNotFound = errors.New("not found")
	// ErrNoBackend is returned when no backend could be constructed.
	ErrNoBackend = errors.New("no backend available")
)

// Image is a thumbnail reference.
type Image struct {
	URI    string `json:"uri"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ChannelRef names the channel a video belongs to.
type ChannelRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref addresses a catalogue item without any resolved data.
type Ref struct {
	Kind Kind
	ID   string
}

// Entry is what backends return: an id plus whatever fields the call produced.
// Has records which of the optional fields are populated.
type Entry struct {
	Kind       Kind
	ID         string
	Has        FieldSet
	Title      string
	Length     time.Duration
	Thumbnails []Image
	Channel    ChannelRef
	VideoCount int
}

// IsVideo reports whether the entry is a video.
func (e Entry) IsVideo() bool { return e.Kind == KindVideo }

// Backend is the capability surface every catalogue adapter implements.
// Calls may populate more fields than requested.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Entry, error)
	Get(ctx context.Context, kind Kind, id string) (Entry, error)
	LoadInfo(ctx context.Context, refs []Ref, want FieldSet) ([]Entry, error)
	PlaylistItems(ctx context.Context, playlistID string, max int) ([]Entry, error)
	ChannelPlaylists(ctx context.Context, channelID string) ([]Entry, error)
}

// StreamResolver turns a video id into a playable audio location.
type StreamResolver interface {
	Resolve(ctx context.Context, videoID string) (string, error)
}
