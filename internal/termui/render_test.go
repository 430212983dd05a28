package termui

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestRenderHalfBlocksProducesRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 60), uint8(y * 60), 0, 255})
		}
	}
	var buf bytes.Buffer
	renderHalfBlocks(&buf, img, 2, 2)

	out := buf.String()
	if strings.Count(out, "▀") != 4 {
		t.Errorf("expected 4 half-block glyphs (2x2), got output: %q", out)
	}
	if !strings.Contains(out, "\x1b[38;2;") {
		t.Error("expected 24-bit foreground escape sequences")
	}
}

func TestRenderHalfBlocksZeroSizeIsNoop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	var buf bytes.Buffer
	renderHalfBlocks(&buf, img, 0, 0)
	if buf.Len() != 0 {
		t.Errorf("expected no output for zero size, got %q", buf.String())
	}
}

func TestPowerOfTen(t *testing.T) {
	cases := []struct {
		digit byte
		want  uint64
	}{
		{'0', 1}, {'1', 10}, {'3', 1000}, {'9', 1000000000},
	}
	for _, c := range cases {
		if got := powerOfTen(c.digit - '0'); got != c.want {
			t.Errorf("powerOfTen(%c) = %d, want %d", c.digit, got, c.want)
		}
	}
}
