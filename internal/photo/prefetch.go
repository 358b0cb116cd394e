package photo

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"photo-catalog/internal/logging"
	"photo-catalog/internal/metrics"
)

// Decoder produces display proxies from a variant file. Implementations
// must be safe for concurrent use; the prefetch pool bounds concurrency.
type Decoder interface {
	// LowQuality returns a fast, small proxy for the file.
	LowQuality(path string, opts HostOptions) (image.Image, error)
	// HighQuality returns a full-quality decode, possibly constrained
	// by the decoder's memory limits.
	HighQuality(path string, opts HostOptions) (image.Image, error)
}

// Prefetcher is the shared decode pool for one library. It bounds the
// number of concurrent decode tasks and runs the default delivery
// dispatcher for hosts that do not declare their own queue.
type Prefetcher struct {
	decoder  Decoder
	sem      chan struct{}
	dispatch chan func()
	done     chan struct{}
	once     sync.Once
}

// NewPrefetcher creates a pool allowing the given number of concurrent
// decode tasks.
func NewPrefetcher(decoder Decoder, workers int) *Prefetcher {
	if workers < 1 {
		workers = 1
	}
	p := &Prefetcher{
		decoder:  decoder,
		sem:      make(chan struct{}, workers),
		dispatch: make(chan func(), 256),
		done:     make(chan struct{}),
	}
	go p.dispatchLoop()
	return p
}

func (p *Prefetcher) dispatchLoop() {
	for {
		select {
		case fn := <-p.dispatch:
			fn()
		case <-p.done:
			return
		}
	}
}

// Close stops the default delivery dispatcher. In-flight decode tasks
// run to their next cancellation checkpoint.
func (p *Prefetcher) Close() {
	p.once.Do(func() { close(p.done) })
}

// prefetchState tracks the per-Image task state machine:
// Idle -> Prefetching -> Idle, with cancellation folding back to Idle.
type prefetchState struct {
	mu      sync.Mutex
	running bool
	done    bool // a task completed since the last invalidation
	restart bool
	cancel  context.CancelFunc
}

// StartPrefetching schedules one asynchronous proxy-preparation task.
// It is a no-op while a task is already in flight; at most one task per
// Image runs at a time.
func (i *Image) StartPrefetching() {
	if i.pool == nil || i.ImagePath() == "" {
		return
	}

	i.prefetch.mu.Lock()
	if i.prefetch.running {
		i.prefetch.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	i.prefetch.running = true
	i.prefetch.done = false
	i.prefetch.cancel = cancel
	i.prefetch.mu.Unlock()

	go i.runPrefetch(ctx)
}

// StopPrefetching cancels the outstanding task, if any. Cancellation is
// cooperative: deliveries already dispatched are not retracted, but no
// further deliveries occur for the cancelled task.
func (i *Image) StopPrefetching() {
	i.prefetch.mu.Lock()
	if i.prefetch.running && i.prefetch.cancel != nil {
		i.prefetch.cancel()
	}
	i.prefetch.mu.Unlock()
}

// IsPrefetching reports whether a proxy-preparation task is in flight.
func (i *Image) IsPrefetching() bool {
	i.prefetch.mu.Lock()
	defer i.prefetch.mu.Unlock()
	return i.prefetch.running
}

// AddHost registers a display consumer and returns its stable handle.
// A host added while a task is in flight receives that task's remaining
// deliveries; a host added after the task completed triggers a fresh
// prefetch so the new host is still served.
func (i *Image) AddHost(h ImageHost) HostHandle {
	handle := i.hosts.add(h)

	i.prefetch.mu.Lock()
	needsRestart := i.prefetch.done && !i.prefetch.running
	i.prefetch.mu.Unlock()

	if needsRestart {
		i.StartPrefetching()
	}
	return handle
}

// RemoveHost deregisters a host handle. Unknown handles are ignored.
func (i *Image) RemoveHost(handle HostHandle) {
	i.hosts.remove(handle)
}

// UpdateHost signals that a host's delivery options changed. The
// outstanding task, if any, is cancelled and a fresh one scheduled so
// the new options take effect.
func (i *Image) UpdateHost(handle HostHandle) {
	if _, ok := i.hosts.get(handle); !ok {
		return
	}

	i.prefetch.mu.Lock()
	if i.prefetch.running {
		i.prefetch.restart = true
		if i.prefetch.cancel != nil {
			i.prefetch.cancel()
		}
		i.prefetch.mu.Unlock()
		return
	}
	i.prefetch.mu.Unlock()

	i.StartPrefetching()
}

func (i *Image) runPrefetch(ctx context.Context) {
	completed := false
	defer func() {
		i.prefetch.mu.Lock()
		i.prefetch.running = false
		i.prefetch.cancel = nil
		if completed {
			i.prefetch.done = true
		}
		restart := i.prefetch.restart
		i.prefetch.restart = false
		i.prefetch.mu.Unlock()

		if restart {
			i.StartPrefetching()
		}
	}()

	// Bounded concurrency: wait for a pool slot, observing cancellation.
	select {
	case i.pool.sem <- struct{}{}:
	case <-ctx.Done():
		metrics.PrefetchTasksTotal.WithLabelValues("cancelled").Inc()
		return
	case <-i.pool.done:
		return
	}
	defer func() { <-i.pool.sem }()

	metrics.PrefetchActiveTasks.Inc()
	defer metrics.PrefetchActiveTasks.Dec()

	path := i.ImageAbsPath()
	id := i.ImageID()
	opts := i.mergedHostOptions()

	delivered := false

	low := i.loadCachedProxy(id, "low.jpg")
	if low == nil {
		start := time.Now()
		img, err := i.pool.decoder.LowQuality(path, opts)
		metrics.PrefetchDecodeDuration.WithLabelValues("low").Observe(time.Since(start).Seconds())
		if err != nil {
			// Decode failures are not delivered and not propagated.
			logging.Debug("Low-quality decode failed for %s: %v", path, err)
		} else {
			low = img
			i.storeCachedProxy(id, "low.jpg", img)
		}
	}

	if ctx.Err() != nil {
		metrics.PrefetchTasksTotal.WithLabelValues("cancelled").Inc()
		return
	}

	if low != nil {
		i.deliver(Delivery{Quality: LowQuality, Image: low})
		delivered = true
	}

	if i.wantsHighQuality() {
		high := i.loadCachedProxy(id, "high.jpg")
		if high == nil {
			start := time.Now()
			img, err := i.pool.decoder.HighQuality(path, opts)
			metrics.PrefetchDecodeDuration.WithLabelValues("high").Observe(time.Since(start).Seconds())
			if err != nil {
				logging.Debug("High-quality decode failed for %s: %v", path, err)
			} else {
				high = img
				i.storeCachedProxy(id, "high.jpg", img)
			}
		}

		if ctx.Err() != nil {
			metrics.PrefetchTasksTotal.WithLabelValues("cancelled").Inc()
			return
		}

		if high != nil {
			i.deliver(Delivery{Quality: HighQuality, Image: high})
			delivered = true
		}
	}

	completed = true
	if delivered {
		metrics.PrefetchTasksTotal.WithLabelValues("completed").Inc()
	} else {
		metrics.PrefetchTasksTotal.WithLabelValues("error").Inc()
	}
}

// mergedHostOptions combines the registered hosts' requested sizes into
// the decode options: the largest requested size wins.
func (i *Image) mergedHostOptions() HostOptions {
	var merged HostOptions
	for _, h := range i.hosts.live() {
		opts := h.ImageHostOptions()
		if opts.Size.X > merged.Size.X {
			merged.Size.X = opts.Size.X
		}
		if opts.Size.Y > merged.Size.Y {
			merged.Size.Y = opts.Size.Y
		}
		if opts.ColorSpace != "" {
			merged.ColorSpace = opts.ColorSpace
		}
	}
	return merged
}

// wantsHighQuality reports whether any registered host wants more than
// a thumbnail. With no hosts registered the high tier is still prepared
// to warm the proxy cache.
func (i *Image) wantsHighQuality() bool {
	hosts := i.hosts.live()
	if len(hosts) == 0 {
		return true
	}
	for _, h := range hosts {
		if !h.ImageHostOptions().Thumbnail {
			return true
		}
	}
	return false
}

// deliver dispatches one progressive result to every currently
// registered host, on the host's queue when it declares one, otherwise
// on the pool's default dispatcher. Deliveries to a single host are
// ordered because they are sent to the same queue.
func (i *Image) deliver(d Delivery) {
	for _, h := range i.hosts.live() {
		h := h
		fn := func() { h.HandleImage(i, d) }
		if q, ok := h.(HostQueue); ok {
			q.ImageHostQueue() <- fn
		} else {
			select {
			case i.pool.dispatch <- fn:
			case <-i.pool.done:
				return
			}
		}
		metrics.PrefetchDeliveriesTotal.WithLabelValues(d.Quality.String()).Inc()
	}
}

// loadCachedProxy reads a cached proxy for a tier, if present.
func (i *Image) loadCachedProxy(id uint32, base string) image.Image {
	if id == 0 {
		return nil
	}
	path := i.backing.CacheFilePath(id, base)
	f, err := os.Open(path)
	if err != nil {
		metrics.PrefetchCacheHits.WithLabelValues("miss").Inc()
		return nil
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close proxy cache file %s: %v", path, err)
		}
	}()

	img, err := jpeg.Decode(f)
	if err != nil {
		metrics.PrefetchCacheHits.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.PrefetchCacheHits.WithLabelValues("hit").Inc()
	return img
}

// storeCachedProxy writes a decoded proxy to the cache directory named
// by stable file id. Cache write failures are non-fatal.
func (i *Image) storeCachedProxy(id uint32, base string, img image.Image) {
	if id == 0 || img == nil {
		return
	}
	path := i.backing.CacheFilePath(id, base)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logging.Warn("failed to create proxy cache directory: %v", err)
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		logging.Warn("failed to encode proxy for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		logging.Warn("failed to cache proxy %s: %v", path, err)
	}
}
