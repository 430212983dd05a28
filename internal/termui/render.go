package termui

import (
	"fmt"
	"image"
	"io"
)

// renderHalfBlocks downsamples img by nearest-neighbor to width columns by
// 2*height rows (two vertical pixels per printed row, using the Unicode
// upper-half-block glyph with independent 24-bit foreground/background
// colors) and writes it to out.
func renderHalfBlocks(out io.Writer, img image.Image, width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return
	}

	rows := height * 2
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			topR, topG, topB := sampleRGB(img, bounds, col, row*2, width, rows, srcW, srcH)
			botR, botG, botB := sampleRGB(img, bounds, col, row*2+1, width, rows, srcW, srcH)
			fmt.Fprintf(out, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				topR, topG, topB, botR, botG, botB)
		}
		fmt.Fprint(out, "\x1b[0m\r\n")
	}
}

func sampleRGB(img image.Image, bounds image.Rectangle, col, row, dstW, dstH, srcW, srcH int) (r, g, b uint8) {
	sx := bounds.Min.X + col*srcW/dstW
	sy := bounds.Min.Y + row*srcH/dstH
	cr, cg, cb, _ := img.At(sx, sy).RGBA()
	return uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8)
}
