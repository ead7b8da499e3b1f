package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidID is returned by the disk stores for ids that are not plain YouTube ids.
var ErrInvalidID = errors.New("invalid id")

var idRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether id has the YouTube id alphabet. Only such ids are
// used as file names or database keys.
func ValidID(id string) bool { return idRE.MatchString(id) }

// TrackRecord is the serialized metadata of one video kept in the disk cache.
type TrackRecord struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	LengthMS   int64      `json:"length_ms"`
	Channel    ChannelRef `json:"channel"`
	Thumbnails []Image    `json:"thumbnails,omitempty"`
}

func (r TrackRecord) entry() Entry {
	return Entry{
		Kind:       KindVideo,
		ID:         r.ID,
		Has:        VideoInfoFields,
		Title:      r.Title,
		Length:     time.Duration(r.LengthMS) * time.Millisecond,
		Channel:    r.Channel,
		Thumbnails: r.Thumbnails,
	}
}

// TrackStore persists track records by video id.
type TrackStore interface {
	LoadTrack(ctx context.Context, id string) (TrackRecord, error)
	SaveTrack(ctx context.Context, rec TrackRecord) error
}

// ImageStore persists thumbnail bytes by video id.
type ImageStore interface {
	// Lookup returns the file name of the stored image, preferring webp over jpg.
	Lookup(id string) (string, bool)
	SaveImage(id, ext string, data []byte) error
}

// FileStore keeps one JSON file per track under dir.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) LoadTrack(_ context.Context, id string) (TrackRecord, error) {
	handleErr := func(err error) (TrackRecord, error) {
		return TrackRecord{}, fmt.Errorf("file store: load track %q: %w", id, err)
	}
	if !ValidID(id) {
		return handleErr(ErrInvalidID)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return handleErr(ErrNotFound)
	}
	if err != nil {
		return handleErr(err)
	}
	var rec TrackRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return handleErr(err)
	}
	return rec, nil
}

func (s *FileStore) SaveTrack(_ context.Context, rec TrackRecord) error {
	if !ValidID(rec.ID) {
		return fmt.Errorf("file store: save track %q: %w", rec.ID, ErrInvalidID)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("file store: save track %s: %w", rec.ID, err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, rec.ID+".json"), data); err != nil {
		return fmt.Errorf("file store: save track %s: %w", rec.ID, err)
	}
	return nil
}

// ImageDir stores thumbnails as <id>.webp or <id>.jpg.
type ImageDir struct {
	dir string
}

// NewImageDir creates dir if needed.
func NewImageDir(dir string) (*ImageDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("image store %s: %w", dir, err)
	}
	return &ImageDir{dir: dir}, nil
}

func (s *ImageDir) Lookup(id string) (string, bool) {
	if !ValidID(id) {
		return "", false
	}
	for _, ext := range []string{".webp", ".jpg"} {
		name := id + ext
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			return name, true
		}
	}
	return "", false
}

func (s *ImageDir) SaveImage(id, ext string, data []byte) error {
	if !ValidID(id) || (ext != ".webp" && ext != ".jpg") {
		return fmt.Errorf("image store: save %q%s: %w", id, ext, ErrInvalidID)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, id+ext), data); err != nil {
		return fmt.Errorf("image store: save %s: %w", id, err)
	}
	return nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// into place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// loadTrack consults the disk cache. Misses and read errors both fall through to the network.
func (e *Engine) loadTrack(id string) (TrackRecord, bool) {
	if e.tracks == nil {
		return TrackRecord{}, false
	}
	rec, err := e.tracks.LoadTrack(context.Background(), id)
	if err != nil {
		metrics.DiskMisses.Add(1)
		if !errors.Is(err, ErrNotFound) {
			slog.Debug("disk cache: load failed", slog.String("id", id), slog.Any("error", err))
		}
		return TrackRecord{}, false
	}
	metrics.DiskHits.Add(1)
	return rec, true
}

// persist writes a fetched video's record and best thumbnail in the background.
// It runs before the entry is applied to its cells, so Flush after a resolved
// Wait always covers the write. Only complete records are written; write
// failures are logged and dropped.
func (e *Engine) persist(en Entry) {
	if e.tracks == nil || !en.Has.Has(FieldTitle|FieldLength) {
		return
	}
	rec := TrackRecord{
		ID:         en.ID,
		Title:      en.Title,
		LengthMS:   en.Length.Milliseconds(),
		Channel:    en.Channel,
		Thumbnails: en.Thumbnails,
	}
	e.writes.Add(1)
	go func() {
		defer e.writes.Done()
		ctx := context.Background()
		if err := e.tracks.SaveTrack(ctx, rec); err != nil {
			metrics.DiskWriteErrors.Add(1)
			slog.Warn("disk cache: save track failed", slog.String("id", rec.ID), slog.Any("error", err))
		}
		if e.images == nil || len(rec.Thumbnails) == 0 {
			return
		}
		if _, ok := e.images.Lookup(rec.ID); ok {
			return
		}
		if err := e.saveThumbnail(ctx, rec.ID, bestImage(rec.Thumbnails)); err != nil {
			metrics.DiskWriteErrors.Add(1)
			slog.Warn("disk cache: save thumbnail failed", slog.String("id", rec.ID), slog.Any("error", err))
		}
	}()
}

// Flush waits for background disk writes to finish.
func (e *Engine) Flush() { e.writes.Wait() }

func (e *Engine) saveThumbnail(ctx context.Context, id string, img Image) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URI, nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("thumbnail %s: status %d", img.URI, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	return e.images.SaveImage(id, imageExt(img.URI, resp.Header.Get("Content-Type")), data)
}

// bestImage picks the largest thumbnail, falling back to the last listed.
func bestImage(imgs []Image) Image {
	best := imgs[len(imgs)-1]
	for _, im := range imgs {
		if im.Width*im.Height > best.Width*best.Height {
			best = im
		}
	}
	return best
}

func imageExt(uri, contentType string) string {
	if strings.Contains(contentType, "webp") {
		return ".webp"
	}
	if u, _, _ := strings.Cut(uri, "?"); strings.HasSuffix(u, ".webp") {
		return ".webp"
	}
	return ".jpg"
}
