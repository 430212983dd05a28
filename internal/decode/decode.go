// Package decode turns raw bytes (read from a local file or fetched over
// the remote transport) into an image.Image. The cache never looks inside
// an image itself; it only asks this package to do the conversion on the
// loader thread.
package decode

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FromFile reads and decodes the image at path.
func FromFile(path string) (image.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return FromBytes(b, path)
}

// FromBytes decodes an already-fetched byte slice. source is used only to
// annotate errors (e.g. a remote path) and never interpreted.
func FromBytes(b []byte, source string) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", source)
	}
	return img, nil
}
