package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TargetKind selects which fields a prefetch target warms.
type TargetKind int

const (
	TargetVideoInfo TargetKind = iota
	TargetPlaylistVideos
	TargetAudio
)

// Target is one unit of background work.
type Target struct {
	Kind     TargetKind
	Video    *Video
	Playlist *Playlist
}

// VideoInfo warms a video's title, length, thumbnails and channel.
func VideoInfo(v *Video) Target { return Target{Kind: TargetVideoInfo, Video: v} }

// PlaylistVideos warms a playlist's child list and the children's info.
func PlaylistVideos(p *Playlist) Target { return Target{Kind: TargetPlaylistVideos, Playlist: p} }

// Audio warms a video's audio location.
func Audio(v *Video) Target { return Target{Kind: TargetAudio, Video: v} }

// Prefetcher runs resolution work in the background without blocking the caller.
// At most workers jobs run at once across all scheduled batches.
type Prefetcher struct {
	eng *Engine
	sem chan struct{}
	wg  sync.WaitGroup
}

func newPrefetcher(e *Engine, workers int) *Prefetcher {
	if workers <= 0 {
		workers = DefaultPrefetchWorkers
	}
	return &Prefetcher{eng: e, sem: make(chan struct{}, workers)}
}

// Schedule starts background resolution of targets and returns immediately.
// Video info targets are coalesced into one batch call.
func (p *Prefetcher) Schedule(targets ...Target) {
	if len(targets) == 0 {
		return
	}
	batch := uuid.NewString()
	metrics.PrefetchBatches.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(batch, targets)
	}()
}

// Wait blocks until every scheduled batch has finished.
func (p *Prefetcher) Wait() { p.wg.Wait() }

func (p *Prefetcher) run(batch string, targets []Target) {
	start := time.Now()
	ctx := context.Background()
	var g errgroup.Group

	var infos []*Video
	for _, t := range targets {
		switch t.Kind {
		case TargetVideoInfo:
			infos = append(infos, t.Video)
		case TargetPlaylistVideos:
			pl := t.Playlist
			p.do(&g, func() {
				if pl.videos.claim() {
					p.eng.resolvePlaylistVideos(ctx, pl)
				}
				pl.videos.wait()
			})
		case TargetAudio:
			v := t.Video
			p.do(&g, func() {
				if v.audioURL.claim() {
					p.eng.resolveAudio(ctx, v)
				}
				v.audioURL.wait()
			})
		}
	}
	if len(infos) > 0 {
		p.do(&g, func() { p.eng.LoadInfo(ctx, infos, nil, VideoInfoFields) })
	}
	_ = g.Wait()
	slog.Debug("prefetch: batch done",
		slog.String("batch", batch),
		slog.Int("targets", len(targets)),
		slog.Duration("elapsed", time.Since(start)))
}

func (p *Prefetcher) do(g *errgroup.Group, fn func()) {
	g.Go(func() error {
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		fn()
		return nil
	})
}
