package library

import "github.com/anatolykoptev/go_youtube/internal/engine"

const (
	videoAlbumName = "YouTube Video"
	playlistArtist = "YouTube Playlist"
	unknownChannel = "Unknown channel"
)

// albumInfo names the playlist a converted track was listed in.
type albumInfo struct {
	id   string
	name string
}

// convertVideo waits for the video's title, length and channel and builds a Track.
// Absent fields are left empty.
func convertVideo(v *engine.Video, album *albumInfo) Track {
	title, _ := v.Title().Wait()
	length, _ := v.Length().Wait()
	channel, ok := v.Channel().Wait()
	if !ok || channel.Name == "" {
		channel.Name = unknownChannel
	}
	artist := Artist{Name: channel.Name}
	if channel.ID != "" {
		artist.URI = channelURI(channel.ID)
	}

	t := Track{
		URI:      videoURI(v.ID),
		Name:     title,
		Artists:  []Artist{artist},
		LengthMS: length.Milliseconds(),
		Comment:  v.ID,
	}
	if album != nil {
		t.Album = &Album{URI: playlistURI(album.id), Name: album.name}
	} else {
		t.Album = &Album{URI: videoURI(v.ID), Name: videoAlbumName}
	}
	return t
}

// convertPlaylist waits for the playlist's title and video count and builds an Album.
func convertPlaylist(p *engine.Playlist) Album {
	title, _ := p.Title().Wait()
	count, _ := p.VideoCount().Wait()
	return Album{
		URI:       playlistURI(p.ID),
		Name:      title,
		Artists:   []Artist{{Name: playlistArtist}},
		NumTracks: count,
	}
}

func convertImages(imgs []engine.Image) []Image {
	out := make([]Image, 0, len(imgs))
	for _, im := range imgs {
		out = append(out, Image{URI: im.URI, Width: im.Width, Height: im.Height})
	}
	return out
}
