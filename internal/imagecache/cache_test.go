package imagecache

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/elliotnunn/seqview/internal/pattern"
	"github.com/elliotnunn/seqview/internal/seqsource"
)

// fakeUploader counts Upload/Release calls without doing real GPU work.
type fakeUploader struct {
	uploaded int
	released []uint64
}

func (f *fakeUploader) Upload(idx uint64, _ image.Image) Texture {
	f.uploaded++
	return idx
}

func (f *fakeUploader) Release(tex Texture) {
	f.released = append(f.released, tex.(uint64))
}

// widePopulatedDir creates an empty (zero-byte) file for every index in
// [lo, hi] matching tmpl, so LocalExists reports true uniformly. The files
// are not valid images, so every load the loader attempts against them
// fails to decode — fine for tests that only assert on launched/evicted
// counts and window bookkeeping, not on successful completions.
func widePopulatedDir(t *testing.T, tmpl pattern.Template, lo, hi uint64) string {
	t.Helper()
	dir := t.TempDir()
	for i := lo; i <= hi; i++ {
		name := tmpl.Format(i)
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("seed file %s: %v", name, err)
		}
	}
	return dir
}

func mustCompile(t *testing.T, pat string) pattern.Template {
	t.Helper()
	tmpl, err := pattern.Compile(pat)
	if err != nil {
		t.Fatalf("Compile(%q): %v", pat, err)
	}
	return tmpl
}

func TestHysteresisSuppressesSmallMoves(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	dir := widePopulatedDir(t, tmpl, 0, 200)
	source := seqsource.Local(dir)

	c := New(source, tmpl, Options{Radius: 20, Step: 1, ReloadThreshold: 10})
	defer c.Close()
	up := &fakeUploader{}

	launched, evicted := c.UpdateForIndex(50, up)
	if launched != 41 || evicted != 0 {
		t.Fatalf("UpdateForIndex(50) = (%d, %d), want (41, 0)", launched, evicted)
	}
	if c.windowCenter == nil || *c.windowCenter != 50 {
		t.Fatalf("window center = %v, want 50", c.windowCenter)
	}

	launched, evicted = c.UpdateForIndex(55, up)
	if launched != 0 || evicted != 0 {
		t.Fatalf("UpdateForIndex(55) = (%d, %d), want (0, 0) [hysteresis]", launched, evicted)
	}
	if *c.windowCenter != 50 {
		t.Fatalf("window center after hysteresis-gated update = %d, want still 50", *c.windowCenter)
	}

	// Simulate the window's cached set as if all 41 loads from the first
	// update had completed.
	for idx := uint64(30); idx <= 70; idx++ {
		c.cached[idx] = idx
		delete(c.pending, idx)
	}

	launched, evicted = c.UpdateForIndex(61, up)
	if launched != 11 {
		t.Errorf("UpdateForIndex(61) launched = %d, want 11", launched)
	}
	if evicted != 11 {
		t.Errorf("UpdateForIndex(61) evicted = %d, want 11", evicted)
	}
	if *c.windowCenter != 61 {
		t.Fatalf("window center = %d, want 61", *c.windowCenter)
	}
	for idx := uint64(30); idx < 41; idx++ {
		if _, ok := c.cached[idx]; ok {
			t.Errorf("idx %d should have been evicted", idx)
		}
	}
	for idx := uint64(41); idx <= 81; idx++ {
		if _, cached := c.cached[idx]; !cached {
			if !c.IsPending(idx) {
				t.Errorf("idx %d should be cached or pending after recompute", idx)
			}
		}
	}
}

func TestStepSizeChangeRescalesWindow(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	dir := widePopulatedDir(t, tmpl, 0, 200)
	source := seqsource.Local(dir)

	c := New(source, tmpl, Options{Radius: 10, Step: 1})
	defer c.Close()
	up := &fakeUploader{}

	c.UpdateForIndex(100, up)
	c.cached[100] = uint64(100)

	c.SetStepSize(10)
	c.ClearExceptCurrent(100, up)
	if len(c.cached) != 1 || len(c.pending) != 0 {
		t.Fatalf("after ClearExceptCurrent: cached=%v pending=%v", c.cached, c.pending)
	}
	if c.windowCenter != nil {
		t.Fatal("ClearExceptCurrent must reset window center to nil")
	}

	launched, _ := c.UpdateForIndex(100, up)
	if launched != 20 {
		t.Fatalf("launched = %d, want 20 (100 itself was already cached)", launched)
	}
	for _, want := range []uint64{0, 200} {
		if !c.IsPending(want) {
			t.Errorf("expected idx %d to be enqueued (pending)", want)
		}
	}
}

func TestCompletionOutsideRangeIsDropped(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	dir := widePopulatedDir(t, tmpl, 0, 200)
	source := seqsource.Local(dir)

	c := New(source, tmpl, Options{Radius: 10, Step: 1})
	defer c.Close()
	up := &fakeUploader{}

	c.pending[5] = struct{}{}
	c.UpdateForIndex(100, up) // range now [90,110]; idx 5 is pruned from pending

	// The in-flight decode for idx=5 finally delivers, long after it was
	// pruned: the cache must discard it on arrival.
	c.completions <- completion{idx: 5, pixels: nil}
	c.drainCompletions(up)

	if _, ok := c.cached[5]; ok {
		t.Error("idx 5 must not appear in cached: its load was cancelled out of range")
	}
}

func TestInvariantCachedPendingDisjoint(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	dir := widePopulatedDir(t, tmpl, 0, 200)
	source := seqsource.Local(dir)

	c := New(source, tmpl, Options{Radius: 10, Step: 1})
	defer c.Close()
	up := &fakeUploader{}

	for _, idx := range []uint64{50, 61, 200, 5} {
		c.UpdateForIndex(idx, up)
		for k := range c.cached {
			if _, ok := c.pending[k]; ok {
				t.Fatalf("idx %d present in both cached and pending after UpdateForIndex(%d)", k, idx)
			}
		}
	}
}

func TestInvariantRangeContainment(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	dir := widePopulatedDir(t, tmpl, 0, 200)
	source := seqsource.Local(dir)

	c := New(source, tmpl, Options{Radius: 10, Step: 1})
	defer c.Close()
	up := &fakeUploader{}

	c.UpdateForIndex(100, up)
	minIdx, maxIdx := satSub(100, 10), satAdd(100, 10)
	for idx := range c.pending {
		if idx < minIdx || idx > maxIdx {
			t.Errorf("pending idx %d outside [%d,%d]", idx, minIdx, maxIdx)
		}
	}
}

func TestUpdateForIndexIdempotentWithoutCompletions(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	dir := widePopulatedDir(t, tmpl, 0, 200)
	source := seqsource.Local(dir)

	c := New(source, tmpl, Options{Radius: 10, Step: 1})
	defer c.Close()
	up := &fakeUploader{}

	c.UpdateForIndex(100, up)
	launched, evicted := c.UpdateForIndex(100, up)
	if launched != 0 || evicted != 0 {
		t.Errorf("second UpdateForIndex(100) = (%d, %d), want (0, 0)", launched, evicted)
	}
}

func TestDecodeFailureIncrementsMetric(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	dir := widePopulatedDir(t, tmpl, 0, 5) // zero-byte files: never valid images
	source := seqsource.Local(dir)

	c := New(source, tmpl, Options{Radius: 2, Step: 1})
	defer c.Close()
	up := &fakeUploader{}

	c.UpdateForIndex(2, up)

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(c.metrics.decodeErrors) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("decodeErrors never incremented for all-failing loads")
		}
		time.Sleep(time.Millisecond)
		c.Tick(up)
	}
	if len(c.cached) != 0 {
		t.Errorf("cached = %v, want empty: every load in this test fails to decode", c.cached)
	}
}

func TestRoundTripParseFormat(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	for _, n := range []uint64{0, 1, 42, 99999} {
		name := tmpl.Format(n)
		got, ok := tmpl.Parse(name)
		if !ok || got != n {
			t.Errorf("round trip for %d: Format=%q Parse=(%d,%v)", n, name, got, ok)
		}
	}
}

func TestInfoIsStable(t *testing.T) {
	tmpl := mustCompile(t, "f_#####.png")
	dir := widePopulatedDir(t, tmpl, 0, 10)
	c := New(seqsource.Local(dir), tmpl, Options{Radius: 2, Step: 1})
	defer c.Close()
	a := c.Info()
	b := c.Info()
	if a != b {
		t.Errorf("Info() is not stable across calls with no state change: %q vs %q", a, b)
	}
	if a == "" {
		t.Error("Info() returned empty string")
	}
}
