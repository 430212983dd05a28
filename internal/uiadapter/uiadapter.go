// Package uiadapter bridges a sequence-aware image cache to any front end
// willing to implement Uploader. It introduces no GUI toolkit dependency:
// the cache must function without a UI, and this package's own tests prove
// it with a fake Uploader that just boxes the index.
package uiadapter

import (
	"fmt"

	"github.com/elliotnunn/seqview/internal/imagecache"
	"github.com/elliotnunn/seqview/internal/pattern"
	"github.com/elliotnunn/seqview/internal/seqsource"
)

// Adapter owns a Cache and the moving parts a front end needs to drive it:
// the current index, and a one-line status string.
type Adapter struct {
	cache    *imagecache.Cache
	template pattern.Template
	source   seqsource.Source
	current  uint64
	status   string
}

// New wraps cache (already constructed with imagecache.New) for driving by
// a front end.
func New(cache *imagecache.Cache, source seqsource.Source, tmpl pattern.Template) *Adapter {
	return &Adapter{cache: cache, template: tmpl, source: source}
}

// Current returns the index the adapter last moved to.
func (a *Adapter) Current() uint64 { return a.current }

// Status returns the last computed status line.
func (a *Adapter) Status() string { return a.status }

// MoveTo updates the cache's window for idx and refreshes the status line.
func (a *Adapter) MoveTo(idx uint64, uploader imagecache.Uploader) {
	a.current = idx
	launched, evicted := a.cache.UpdateForIndex(idx, uploader)
	a.refreshStatus(idx, launched, evicted)
}

// Tick drains ready completions without moving the window.
func (a *Adapter) Tick(uploader imagecache.Uploader) {
	a.cache.Tick(uploader)
	a.refreshStatus(a.current, 0, 0)
}

// Texture returns the texture resident for the current index, if any.
func (a *Adapter) Texture() (imagecache.Texture, bool) {
	return a.cache.Get(a.current)
}

// NeighborExists reports whether idx is known to exist before committing to
// it. For a Local source this is a cheap stat, letting a front end avoid
// moving onto a known-missing neighbor. For a Remote source it always
// reports true: existence there is ascertained by the remote worker, not
// up front, so the front end proceeds optimistically.
func (a *Adapter) NeighborExists(idx uint64) bool {
	if a.source.IsRemote() {
		return true
	}
	return a.source.LocalExists(a.template.Format(idx))
}

// SetStepSizeAndReset applies a new stride, clears the cache down to the
// current index (releasing everything else through uploader), and
// immediately recomputes the window, forcing a fresh window after every
// stride change.
func (a *Adapter) SetStepSizeAndReset(step uint64, uploader imagecache.Uploader) {
	a.cache.SetStepSize(step)
	a.cache.ClearExceptCurrent(a.current, uploader)
	a.MoveTo(a.current, uploader)
}

func (a *Adapter) refreshStatus(idx uint64, launched, evicted int) {
	name := a.template.Format(idx)
	state := "pending"
	if _, ok := a.cache.Get(idx); ok {
		state = "cached"
	} else if !a.cache.IsPending(idx) {
		state = "absent"
	}
	a.status = fmt.Sprintf("%s [%s] idx=%d launched=%d evicted=%d", a.source.RenderPath(name), state, idx, launched, evicted)
}
