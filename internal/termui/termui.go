// Package termui is the repo's front end: there is no GUI toolkit anywhere
// in this stack, so a raw-mode terminal reader drives the same Adapter a
// real GUI would, rendering the decoded image as ANSI half-block
// characters. A/D (or Left/Right) step by the current stride, digits 0-9
// set the stride to a power of ten, F is a logged no-op (fullscreen has no
// meaning in a terminal), q/Esc quits.
package termui

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/elliotnunn/seqview/internal/imagecache"
	"github.com/elliotnunn/seqview/internal/uiadapter"
)

// TermUploader is the Uploader implementation for the terminal front end:
// it keeps each uploaded image, keyed by index, for on-demand rendering until
// Release discards it.
type TermUploader struct {
	images map[uint64]image.Image
}

// NewTermUploader constructs an empty uploader.
func NewTermUploader() *TermUploader {
	return &TermUploader{images: make(map[uint64]image.Image)}
}

func (u *TermUploader) Upload(idx uint64, pixels image.Image) imagecache.Texture {
	u.images[idx] = pixels
	return idx
}

func (u *TermUploader) Release(tex imagecache.Texture) {
	delete(u.images, tex.(uint64))
}

func (u *TermUploader) image(idx uint64) (image.Image, bool) {
	img, ok := u.images[idx]
	return img, ok
}

// Driver owns the raw terminal mode, the keymap, and the render loop.
type Driver struct {
	adapter  *uiadapter.Adapter
	uploader *TermUploader
	stepSize uint64
	in       *os.File
	out      io.Writer
	width    int
	height   int
	logger   *slog.Logger
	quit     bool
}

// NewDriver constructs a Driver. in is the terminal's stdin (used both for
// raw-mode toggling and for reading keystrokes); out receives status lines
// and thumbnails; width/height bound the rendered thumbnail in terminal
// cells.
func NewDriver(adapter *uiadapter.Adapter, in *os.File, out io.Writer, width, height int, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		adapter:  adapter,
		uploader: NewTermUploader(),
		stepSize: 1,
		in:       in,
		out:      out,
		width:    width,
		height:   height,
		logger:   logger,
	}
}

// Uploader returns the driver's Uploader, for priming the adapter's current
// index before Run.
func (d *Driver) Uploader() *TermUploader { return d.uploader }

// Run puts the input file descriptor into raw mode, renders once, then
// dispatches keystrokes until q/Esc or EOF. It restores the terminal mode
// before returning.
func (d *Driver) Run() error {
	fd := int(d.in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	d.render()
	buf := make([]byte, 8)
	for !d.quit {
		n, err := d.in.Read(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if n == 0 {
			continue
		}
		if n >= 3 && buf[0] == 0x1b && buf[1] == '[' {
			switch buf[2] {
			case 'C': // Right arrow: ESC [ C
				d.tryStep(1)
				d.render()
			case 'D': // Left arrow: ESC [ D
				d.tryStep(-1)
				d.render()
			}
			continue
		}
		for _, b := range buf[:n] {
			d.handleKey(b)
		}
	}
	return nil
}

func (d *Driver) handleKey(b byte) {
	switch {
	case b == 'q' || b == 0x1b: // Esc
		d.quit = true
	case b == 'd' || b == 'D':
		d.tryStep(1)
	case b == 'a' || b == 'A':
		d.tryStep(-1)
	case b == 'f' || b == 'F':
		d.logger.Debug("fullscreen toggle requested, no-op in terminal front end")
	case b >= '0' && b <= '9':
		d.setStepSize(powerOfTen(b - '0'))
	default:
		return
	}
	d.render()
}

func powerOfTen(digit byte) uint64 {
	step := uint64(1)
	for i := byte(0); i < digit; i++ {
		step *= 10
	}
	return step
}

// tryStep steps the current index by direction*stepSize. Local sources
// check existence first so a known-missing neighbor never launches a load.
func (d *Driver) tryStep(direction int64) {
	cur := int64(d.adapter.Current())
	next := cur + direction*int64(d.stepSize)
	if next < 0 {
		return
	}
	nextIdx := uint64(next)
	if !d.adapter.NeighborExists(nextIdx) {
		d.logger.Debug("no file at neighbor index, not moving", "idx", nextIdx)
		return
	}
	d.adapter.MoveTo(nextIdx, d.uploader)
}

// setStepSize updates the stride, clears the cache down to the current
// index, and forces a fresh window.
func (d *Driver) setStepSize(step uint64) {
	if step == d.stepSize {
		return
	}
	d.stepSize = step
	d.adapter.SetStepSizeAndReset(step, d.uploader)
}

func (d *Driver) render() {
	fmt.Fprintf(d.out, "\r\n%s | step: %d\r\n", d.adapter.Status(), d.stepSize)
	idx := d.adapter.Current()
	img, ok := d.uploader.image(idx)
	if !ok {
		return
	}
	renderHalfBlocks(d.out, img, d.width, d.height)
}
