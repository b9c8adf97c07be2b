package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FeedSource is the store access the feed needs.
type FeedSource interface {
	CurrentVersion(ctx context.Context) (Version, error)
	List(ctx context.Context) ([]Product, error)
}

// Feed turns the catalog table into subscription semantics: consumers get the
// current snapshot immediately and a fresh one whenever any product changes.
type Feed struct {
	Source   FeedSource
	Interval time.Duration
	Logger   *zerolog.Logger

	mu      sync.Mutex
	last    Version
	started bool
	subs    map[int]chan []Product
	nextID  int
	current []Product
}

// Subscribe registers a consumer. The returned cancel function must be called
// to release the subscription. The channel is closed when the feed stops.
func (f *Feed) Subscribe() (<-chan []Product, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[int]chan []Product)
	}
	id := f.nextID
	f.nextID++
	ch := make(chan []Product, 1)
	if f.current != nil {
		ch <- f.current
	}
	f.subs[id] = ch
	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Run polls the catalog version until ctx is cancelled, broadcasting a new
// snapshot on every observed change.
func (f *Feed) Run(ctx context.Context) {
	interval := f.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	f.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			f.closeAll()
			return
		case <-ticker.C:
			f.refresh(ctx)
		}
	}
}

func (f *Feed) refresh(ctx context.Context) {
	if f.Source == nil {
		return
	}
	version, err := f.Source.CurrentVersion(ctx)
	if err != nil {
		f.logErr(err, "catalog feed: read version")
		return
	}
	f.mu.Lock()
	unchanged := f.started && version == f.last
	f.mu.Unlock()
	if unchanged {
		return
	}
	snapshot, err := f.Source.List(ctx)
	if err != nil {
		f.logErr(err, "catalog feed: load snapshot")
		return
	}
	f.mu.Lock()
	f.started = true
	f.last = version
	f.current = snapshot
	for _, sub := range f.subs {
		select {
		case sub <- snapshot:
		default:
			// Drop the stale pending snapshot before queueing the new one.
			select {
			case <-sub:
			default:
			}
			sub <- snapshot
		}
	}
	f.mu.Unlock()
}

func (f *Feed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, sub := range f.subs {
		delete(f.subs, id)
		close(sub)
	}
}

func (f *Feed) logErr(err error, msg string) {
	if f.Logger == nil {
		return
	}
	f.Logger.Error().Err(err).Msg(msg)
}
