package engine

import (
	"maps"
	"sync"
	"time"
)

// arena maps ids to their canonical instance. get is an atomic get-or-create.
type arena[T any] struct {
	mu    sync.Mutex
	items map[string]*T
	newFn func(id string) *T
}

func newArena[T any](mk func(id string) *T) *arena[T] {
	return &arena[T]{items: make(map[string]*T), newFn: mk}
}

func (a *arena[T]) get(id string) *T {
	a.mu.Lock()
	defer a.mu.Unlock()
	if it, ok := a.items[id]; ok {
		return it
	}
	it := a.newFn(id)
	a.items[id] = it
	return it
}

func (a *arena[T]) drop(id string) {
	a.mu.Lock()
	delete(a.items, id)
	a.mu.Unlock()
}

func (a *arena[T]) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Video is the canonical in-memory representation of one video.
// Field accessors start resolution on first use and return a Future.
type Video struct {
	ID  string
	eng *Engine

	title      Cell[string]
	length     Cell[time.Duration]
	thumbnails Cell[[]Image]
	channel    Cell[ChannelRef]
	audioURL   Cell[string]

	extraMu sync.Mutex
	extra   map[string]any
}

func (v *Video) Title() Future[string] {
	v.eng.ensureVideoInfo(v, &v.title)
	return Future[string]{&v.title}
}

func (v *Video) Length() Future[time.Duration] {
	v.eng.ensureVideoInfo(v, &v.length)
	return Future[time.Duration]{&v.length}
}

func (v *Video) Thumbnails() Future[[]Image] {
	v.eng.ensureVideoInfo(v, &v.thumbnails)
	return Future[[]Image]{&v.thumbnails}
}

func (v *Video) Channel() Future[ChannelRef] {
	v.eng.ensureVideoInfo(v, &v.channel)
	return Future[ChannelRef]{&v.channel}
}

// AudioURL resolves the streaming location of the video's audio.
func (v *Video) AudioURL() Future[string] {
	v.eng.ensureAudio(v)
	return Future[string]{&v.audioURL}
}

// Extra returns a copy of the extended metadata merged from preload data.
func (v *Video) Extra() map[string]any {
	v.extraMu.Lock()
	defer v.extraMu.Unlock()
	return maps.Clone(v.extra)
}

// PreloadTrack is track data supplied by the caller ahead of any resolution,
// typically from a YouTube Music page.
type PreloadTrack struct {
	VideoID    string
	Title      string
	Length     time.Duration
	Channel    ChannelRef
	Thumbnails []Image
	Extra      map[string]any
}

// preloadMinimumFields must all be present for preload data to be applied to cells.
const preloadMinimumFields = FieldTitle | FieldLength | FieldChannel

// Extend merges preload data. Core fields are applied only when the minimum set
// (title, length, channel) is present; extra fields are always merged.
func (v *Video) Extend(p PreloadTrack) {
	v.extraMu.Lock()
	if v.extra == nil {
		v.extra = make(map[string]any, len(p.Extra))
	}
	maps.Copy(v.extra, p.Extra)
	v.extraMu.Unlock()

	e := Entry{Kind: KindVideo, ID: v.ID, Title: p.Title, Length: p.Length, Channel: p.Channel, Thumbnails: p.Thumbnails}
	if p.Title != "" {
		e.Has |= FieldTitle
	}
	if p.Length > 0 {
		e.Has |= FieldLength
	}
	if p.Channel.Name != "" {
		e.Has |= FieldChannel
	}
	if len(p.Thumbnails) > 0 {
		e.Has |= FieldThumbnails
	}
	if !e.Has.Has(preloadMinimumFields) {
		return
	}
	v.fill(e)
}

// fill resolves every cell the entry carries data for.
func (v *Video) fill(e Entry) {
	if e.Has.Has(FieldTitle) {
		v.title.set(e.Title)
	}
	if e.Has.Has(FieldLength) {
		v.length.set(e.Length)
	}
	if e.Has.Has(FieldThumbnails) {
		v.thumbnails.set(e.Thumbnails)
	}
	if e.Has.Has(FieldChannel) {
		v.channel.set(e.Channel)
	}
}

// claimInfo claims every unresolved cell among want and returns what was claimed.
func (v *Video) claimInfo(want FieldSet) FieldSet {
	var got FieldSet
	if want.Has(FieldTitle) && v.title.claim() {
		got |= FieldTitle
	}
	if want.Has(FieldLength) && v.length.claim() {
		got |= FieldLength
	}
	if want.Has(FieldThumbnails) && v.thumbnails.claim() {
		got |= FieldThumbnails
	}
	if want.Has(FieldChannel) && v.channel.claim() {
		got |= FieldChannel
	}
	return got
}

// settle marks every claimed cell that is still unresolved as absent.
func (v *Video) settle(claimed FieldSet) {
	if claimed.Has(FieldTitle) {
		v.title.setAbsent()
	}
	if claimed.Has(FieldLength) {
		v.length.setAbsent()
	}
	if claimed.Has(FieldThumbnails) {
		v.thumbnails.setAbsent()
	}
	if claimed.Has(FieldChannel) {
		v.channel.setAbsent()
	}
}

// Playlist is the canonical in-memory representation of one playlist.
type Playlist struct {
	ID  string
	eng *Engine

	title      Cell[string]
	thumbnails Cell[[]Image]
	videoCount Cell[int]
	videos     Cell[[]*Video]
}

func (p *Playlist) Title() Future[string] {
	p.eng.ensurePlaylistInfo(p, &p.title)
	return Future[string]{&p.title}
}

func (p *Playlist) Thumbnails() Future[[]Image] {
	p.eng.ensurePlaylistInfo(p, &p.thumbnails)
	return Future[[]Image]{&p.thumbnails}
}

func (p *Playlist) VideoCount() Future[int] {
	p.eng.ensurePlaylistInfo(p, &p.videoCount)
	return Future[int]{&p.videoCount}
}

// Videos resolves the ordered child videos of the playlist.
func (p *Playlist) Videos() Future[[]*Video] {
	p.eng.ensurePlaylistVideos(p)
	return Future[[]*Video]{&p.videos}
}

func (p *Playlist) fill(e Entry) {
	if e.Has.Has(FieldTitle) {
		p.title.set(e.Title)
	}
	if e.Has.Has(FieldThumbnails) {
		p.thumbnails.set(e.Thumbnails)
	}
	if e.Has.Has(FieldVideoCount) {
		p.videoCount.set(e.VideoCount)
	}
}

func (p *Playlist) claimInfo(want FieldSet) FieldSet {
	var got FieldSet
	if want.Has(FieldTitle) && p.title.claim() {
		got |= FieldTitle
	}
	if want.Has(FieldThumbnails) && p.thumbnails.claim() {
		got |= FieldThumbnails
	}
	if want.Has(FieldVideoCount) && p.videoCount.claim() {
		got |= FieldVideoCount
	}
	return got
}

func (p *Playlist) settle(claimed FieldSet) {
	if claimed.Has(FieldTitle) {
		p.title.setAbsent()
	}
	if claimed.Has(FieldThumbnails) {
		p.thumbnails.setAbsent()
	}
	if claimed.Has(FieldVideoCount) {
		p.videoCount.setAbsent()
	}
}
