package engine

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// limitedBackend counts and paces every call into the wrapped backend.
type limitedBackend struct {
	next    Backend
	limiter *rate.Limiter // nil = unlimited
}

// Instrument wraps b with call metrics and, when perSecond > 0, a token-bucket limit.
func Instrument(b Backend, perSecond float64, burst int) Backend {
	lb := &limitedBackend{next: b}
	if perSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		lb.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return lb
}

func (l *limitedBackend) wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", l.next.Name(), err)
	}
	return nil
}

func (l *limitedBackend) done(err error) error {
	if err != nil {
		metrics.BackendErrors.Add(1)
	}
	return err
}

func (l *limitedBackend) Name() string { return l.next.Name() }

func (l *limitedBackend) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	metrics.BackendSearch.Add(1)
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	out, err := l.next.Search(ctx, query, limit)
	return out, l.done(err)
}

func (l *limitedBackend) Get(ctx context.Context, kind Kind, id string) (Entry, error) {
	metrics.BackendGet.Add(1)
	if err := l.wait(ctx); err != nil {
		return Entry{}, err
	}
	out, err := l.next.Get(ctx, kind, id)
	return out, l.done(err)
}

func (l *limitedBackend) LoadInfo(ctx context.Context, refs []Ref, want FieldSet) ([]Entry, error) {
	metrics.BackendLoadInfo.Add(1)
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	out, err := l.next.LoadInfo(ctx, refs, want)
	return out, l.done(err)
}

func (l *limitedBackend) PlaylistItems(ctx context.Context, playlistID string, max int) ([]Entry, error) {
	metrics.BackendPlaylistItems.Add(1)
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	out, err := l.next.PlaylistItems(ctx, playlistID, max)
	return out, l.done(err)
}

func (l *limitedBackend) ChannelPlaylists(ctx context.Context, channelID string) ([]Entry, error) {
	metrics.BackendChannelPlaylists.Add(1)
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	out, err := l.next.ChannelPlaylists(ctx, channelID)
	return out, l.done(err)
}
