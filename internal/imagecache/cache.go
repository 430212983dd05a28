// Package imagecache implements the sliding-window image cache: hysteresis
// gating, step-size-scaled window radius, a single background decode
// loader, and cooperative cancellation of work that has drifted out of
// range by the time it completes.
package imagecache

import (
	"fmt"
	"image"

	"github.com/cespare/xxhash/v2"

	"github.com/elliotnunn/seqview/internal/pattern"
	"github.com/elliotnunn/seqview/internal/remoteworker"
	"github.com/elliotnunn/seqview/internal/seqsource"
)

const (
	defaultRadius          = 10
	defaultStep            = 1
	reloadThresholdDefault = 10
)

// Texture is an opaque handle to whatever the upload context turned pixels
// into (a GPU handle, a terminal-rendered glyph grid, or anything else).
// The cache never inspects it beyond holding and releasing it.
type Texture any

// Uploader turns decoded pixels into a Texture and releases one on
// eviction. Implementations with nothing to free may make Release a no-op.
type Uploader interface {
	Upload(idx uint64, pixels image.Image) Texture
	Release(tex Texture)
}

// Cache is the sliding-window image cache. Its maps are owned by a single
// caller goroutine (the UI thread): all exported methods except the ones
// explicitly documented as safe for concurrent use must be called from that
// one goroutine only.
type Cache struct {
	cached  map[uint64]Texture
	pending map[uint64]struct{}

	windowCenter *uint64
	radius       uint64
	step         uint64

	reloadThreshold uint64

	source   seqsource.Source
	template pattern.Template
	liveness *remoteworker.LivenessRange

	loadReq     chan loadRequest
	completions chan completion
	loaderDone  chan struct{}

	metrics *cacheMetrics
}

// Options configures a new Cache. Zero values take the documented policy
// defaults (radius 10, step 1, hysteresis threshold 10).
type Options struct {
	Radius          uint64
	Step            uint64
	ReloadThreshold uint64

	// Remote is required iff Source.IsRemote(); it is the single owner of
	// the remote transport, per the Remote Worker's contract.
	Remote RemoteFetcher

	// Liveness is published into on every window recomputation. If nil, a
	// Cache-private range is created (harmless for Local sources, which
	// never consult it).
	Liveness *remoteworker.LivenessRange
}

// New constructs a Cache for source, matching filenames against tmpl, and
// spawns the loader thread. Callers must eventually call Close.
func New(source seqsource.Source, tmpl pattern.Template, opts Options) *Cache {
	radius := opts.Radius
	if radius == 0 {
		radius = defaultRadius
	}
	step := opts.Step
	if step == 0 {
		step = defaultStep
	}
	threshold := opts.ReloadThreshold
	if threshold == 0 {
		threshold = reloadThresholdDefault
	}
	liveness := opts.Liveness
	if liveness == nil {
		liveness = remoteworker.NewLivenessRange()
	}

	c := &Cache{
		cached:          make(map[uint64]Texture),
		pending:         make(map[uint64]struct{}),
		radius:          radius,
		step:            step,
		reloadThreshold: threshold,
		source:          source,
		template:        tmpl,
		liveness:        liveness,
		loadReq:         make(chan loadRequest, 2*int(radius)+2),
		completions:     make(chan completion, 2*int(radius)+2),
		loaderDone:      make(chan struct{}),
		metrics:         newCacheMetrics(),
	}
	go runLoader(c.loadReq, c.completions, opts.Remote, c.loaderDone)
	return c
}

// Close stops accepting new load requests and waits for the loader to
// drain and exit.
func (c *Cache) Close() {
	close(c.loadReq)
	<-c.loaderDone
}

// Get returns the texture cached for idx, if any.
func (c *Cache) Get(idx uint64) (Texture, bool) {
	t, ok := c.cached[idx]
	return t, ok
}

// IsPending reports whether idx is currently enqueued for decode.
func (c *Cache) IsPending(idx uint64) bool {
	_, ok := c.pending[idx]
	return ok
}

// IsEmpty reports whether the cache holds neither cached nor pending
// entries.
func (c *Cache) IsEmpty() bool {
	return len(c.cached) == 0 && len(c.pending) == 0
}

// Info renders a short human-readable summary, stable enough to hash for a
// debug key.
func (c *Cache) Info() string {
	center := "none"
	if c.windowCenter != nil {
		center = fmt.Sprintf("%d", *c.windowCenter)
	}
	s := fmt.Sprintf("center=%s radius=%d step=%d cached=%d pending=%d",
		center, c.radius, c.step, len(c.cached), len(c.pending))
	return fmt.Sprintf("%s key=%016x", s, xxhash.Sum64String(s))
}

// SetStepSize records a new stride. It does not itself evict anything;
// callers typically follow it with ClearExceptCurrent to force a fresh
// window.
func (c *Cache) SetStepSize(step uint64) {
	if step == 0 {
		step = 1
	}
	c.step = step
}

// ClearExceptCurrent drops every cached texture except current (releasing
// each one through uploader) and clears the pending set. The window center
// is reset, so the next UpdateForIndex unconditionally recomputes.
func (c *Cache) ClearExceptCurrent(current uint64, uploader Uploader) {
	for idx, tex := range c.cached {
		if idx == current {
			continue
		}
		uploader.Release(tex)
		delete(c.cached, idx)
	}
	c.pending = make(map[uint64]struct{})
	c.windowCenter = nil
	c.metrics.cachedEntries.Set(float64(len(c.cached)))
	c.metrics.pendingLoads.Set(0)
}

// UpdateForIndex is the central operation: it drains completions, applies
// the hysteresis gate, and — if the window actually moves — recomputes the
// range, publishes it, evicts out-of-range entries, and enqueues the new
// target set. It returns the number of loads launched and entries evicted.
func (c *Cache) UpdateForIndex(newIdx uint64, uploader Uploader) (launched, evicted int) {
	c.drainCompletions(uploader)

	if c.windowCenter != nil {
		d := absDiff(newIdx, *c.windowCenter)
		if d <= c.reloadThreshold {
			return 0, 0
		}
	}

	c.windowCenter = new(uint64)
	*c.windowCenter = newIdx

	span := satMulU64(c.radius, c.step)
	minIdx := satSub(newIdx, span)
	maxIdx := satAdd(newIdx, span)

	c.liveness.Set(minIdx, maxIdx)

	evicted = c.evictOutsideRange(minIdx, maxIdx, uploader)
	launched = c.enqueueTargets(newIdx, minIdx, maxIdx)

	c.metrics.launched.Add(float64(launched))
	c.metrics.evicted.Add(float64(evicted))
	c.metrics.cachedEntries.Set(float64(len(c.cached)))
	c.metrics.pendingLoads.Set(float64(len(c.pending)))

	return launched, evicted
}

// Tick drains any ready completions and uploads them, without touching the
// window. Call this between UpdateForIndex calls to pick up background
// decode results promptly.
func (c *Cache) Tick(uploader Uploader) {
	c.drainCompletions(uploader)
	c.metrics.cachedEntries.Set(float64(len(c.cached)))
	c.metrics.pendingLoads.Set(float64(len(c.pending)))
}

func (c *Cache) drainCompletions(uploader Uploader) {
	for {
		select {
		case comp := <-c.completions:
			if _, ok := c.pending[comp.idx]; !ok {
				continue // cancelled out of range; discard
			}
			delete(c.pending, comp.idx)
			if comp.failed {
				c.metrics.decodeErrors.Add(1)
				continue
			}
			c.cached[comp.idx] = uploader.Upload(comp.idx, comp.pixels)
		default:
			return
		}
	}
}

func (c *Cache) evictOutsideRange(minIdx, maxIdx uint64, uploader Uploader) int {
	n := 0
	for idx, tex := range c.cached {
		if idx < minIdx || idx > maxIdx {
			uploader.Release(tex)
			delete(c.cached, idx)
			n++
		}
	}
	for idx := range c.pending {
		if idx < minIdx || idx > maxIdx {
			delete(c.pending, idx)
			n++
		}
	}
	return n
}

func (c *Cache) enqueueTargets(center, minIdx, maxIdx uint64) int {
	targets := make([]uint64, 0, 2*int(c.radius)+1)
	if center >= minIdx && center <= maxIdx {
		targets = append(targets, center)
	}
	loFloor, hiCeil := false, false
	for k := uint64(1); k <= c.radius && !(loFloor && hiCeil); k++ {
		if !loFloor {
			lo := satSub(center, k*c.step)
			if lo >= minIdx && lo < center {
				targets = append(targets, lo)
			}
			if lo == minIdx {
				loFloor = true
			}
		}
		if !hiCeil {
			hi := satAdd(center, k*c.step)
			if hi <= maxIdx && hi > center {
				targets = append(targets, hi)
			}
			if hi == maxIdx {
				hiCeil = true
			}
		}
	}

	n := 0
	for _, t := range targets {
		if c.shouldSkip(t) {
			continue
		}
		fileName := c.template.Format(t)
		if !c.source.IsRemote() && !c.source.LocalExists(fileName) {
			continue
		}
		c.pending[t] = struct{}{}
		c.loadReq <- loadRequest{idx: t, fileName: fileName, source: c.source}
		n++
	}
	return n
}

func (c *Cache) shouldSkip(idx uint64) bool {
	if _, ok := c.cached[idx]; ok {
		return true
	}
	_, ok := c.pending[idx]
	return ok
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func satAdd(a, b uint64) uint64 {
	s := a + b
	if s < a { // overflow
		return ^uint64(0)
	}
	return s
}

func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func satMulU64(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/a != b { // overflow
		return ^uint64(0)
	}
	return p
}
