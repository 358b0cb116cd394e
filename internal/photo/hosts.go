package photo

import (
	"image"
	"sync"

	"photo-catalog/internal/metrics"
)

// Quality identifies the tier of a delivered proxy.
type Quality int

const (
	// LowQuality is the fast, small proxy delivered first.
	LowQuality Quality = iota
	// HighQuality is the full decode delivered second.
	HighQuality
)

// String returns the metric label for a quality tier.
func (q Quality) String() string {
	if q == HighQuality {
		return "high"
	}
	return "low"
}

// HostOptions describes what a host wants delivered.
type HostOptions struct {
	// Size is the desired proxy size in pixels. Zero means the engine
	// default.
	Size image.Point
	// Thumbnail requests the small thumbnail tier only.
	Thumbnail bool
	// ColorSpace is a hint only; the engine may ignore it.
	ColorSpace string
}

// Delivery is one progressive result: a low-quality proxy first, then a
// high-quality decode.
type Delivery struct {
	Quality Quality
	Image   image.Image
}

// ImageHost is a display consumer registered to receive decoded
// proxies for one Image.
type ImageHost interface {
	ImageHostOptions() HostOptions
	HandleImage(img *Image, d Delivery)
}

// HostQueue is optionally implemented by hosts that want deliveries
// dispatched on their own queue instead of the shared default
// dispatcher.
type HostQueue interface {
	ImageHostQueue() chan<- func()
}

// HostLiveness is optionally implemented by the host layer so the
// engine can detect hosts that disappeared without deregistering.
// Deliveries to dead hosts become no-ops and the handle is dropped.
type HostLiveness interface {
	ImageHostAlive() bool
}

// HostHandle is a stable identifier for a registered host.
type HostHandle int64

// hostRegistry tracks the hosts registered on one Image. Handles are
// stable integers; the registry never owns the host.
type hostRegistry struct {
	mu      sync.Mutex
	next    HostHandle
	entries map[HostHandle]ImageHost
}

func (r *hostRegistry) add(h ImageHost) HostHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[HostHandle]ImageHost)
	}
	r.next++
	r.entries[r.next] = h
	metrics.ImageHostsRegistered.Inc()
	return r.next
}

func (r *hostRegistry) remove(handle HostHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[handle]; !ok {
		return false
	}
	delete(r.entries, handle)
	metrics.ImageHostsRegistered.Dec()
	return true
}

func (r *hostRegistry) get(handle HostHandle) (ImageHost, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[handle]
	return h, ok
}

// live returns the currently-registered hosts, dropping any whose
// liveness check fails.
func (r *hostRegistry) live() []ImageHost {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ImageHost, 0, len(r.entries))
	for handle, h := range r.entries {
		if l, ok := h.(HostLiveness); ok && !l.ImageHostAlive() {
			delete(r.entries, handle)
			metrics.ImageHostsRegistered.Dec()
			continue
		}
		out = append(out, h)
	}
	return out
}

func (r *hostRegistry) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) == 0
}
