package assets

import (
	"context"
	"sync"
	"time"

	"github.com/captainspark/backend/internal/models"
	"go.uber.org/zap"
)

// Tracker counts the assets of the next slide against those finished loading.
// Each Track call starts a new generation; completions from older generations
// are ignored, and their loads run to the end. A tracker holds the URLs of its
// current generation in the shared cache until the next Track or Close.
type Tracker struct {
	cache   *Cache
	timeout time.Duration
	logger  *zap.Logger

	mu         sync.Mutex
	generation uint64
	toLoad     int
	loaded     int
	done       chan struct{}
	held       []string
}

// NewTracker creates a tracker that loads through cache
func NewTracker(cache *Cache, timeout time.Duration, logger *zap.Logger) *Tracker {
	done := make(chan struct{})
	close(done)
	return &Tracker{
		cache:   cache,
		timeout: timeout,
		logger:  logger,
		done:    done,
	}
}

// NextSlideURLs returns the asset URLs of the slide after current
func NextSlideURLs(slides []models.ResolvedSlide, current int) []string {
	next := current + 1
	if next < 0 || next >= len(slides) {
		return nil
	}
	return slides[next].AssetURLs()
}

// Track recomputes readiness for the slide after current
func (t *Tracker) Track(slides []models.ResolvedSlide, current int) {
	urls := NextSlideURLs(slides, current)

	// Hold the new URLs before letting go of the old ones so shared entries survive
	t.cache.Acquire(urls)

	pending := make([]string, 0, len(urls))
	for _, u := range urls {
		if !t.cache.Has(u) {
			pending = append(pending, u)
		}
	}

	t.mu.Lock()
	previous := t.held
	t.held = urls
	if t.loaded < t.toLoad {
		// Wake waiters of the replaced generation; Wait moves them to this one
		close(t.done)
	}
	t.generation++
	gen := t.generation
	t.toLoad = len(urls)
	t.loaded = len(urls) - len(pending)
	t.done = make(chan struct{})
	if t.loaded >= t.toLoad {
		close(t.done)
	}
	t.mu.Unlock()

	t.cache.Release(previous)

	for _, u := range pending {
		go t.load(gen, u)
	}
}

// Close releases the tracker's hold on cached assets
func (t *Tracker) Close() {
	t.mu.Lock()
	held := t.held
	t.held = nil
	t.mu.Unlock()

	t.cache.Release(held)
}

func (t *Tracker) load(gen uint64, url string) {
	ctx := context.Background()
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	if err := t.cache.Load(ctx, url); err != nil {
		t.logger.Debug("Asset preload failed", zap.String("url", url), zap.Error(err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return
	}
	t.loaded++
	if t.loaded == t.toLoad {
		close(t.done)
	}
}

// Ready reports whether every asset of the next slide has finished loading
func (t *Tracker) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded >= t.toLoad
}

// Progress returns loaded and toLoad for the current generation
func (t *Tracker) Progress() (loaded, toLoad int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded, t.toLoad
}

// Wait blocks until the next slide is ready or ctx is done. A Track call
// during the wait moves it to the new generation.
func (t *Tracker) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		done, gen := t.done, t.generation
		t.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		t.mu.Lock()
		current := t.generation
		t.mu.Unlock()
		if current == gen {
			return nil
		}
	}
}
