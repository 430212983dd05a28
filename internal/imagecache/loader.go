package imagecache

import (
	"image"
	"path"

	"github.com/elliotnunn/seqview/internal/decode"
	"github.com/elliotnunn/seqview/internal/seqsource"
)

// RemoteFetcher is the narrow surface the loader needs from a remote
// worker: block until the bytes at path arrive, or fail.
type RemoteFetcher interface {
	Fetch(idx uint64, path string) ([]byte, error)
}

// loadRequest is enqueued by UpdateForIndex and consumed FIFO by the single
// loader goroutine.
type loadRequest struct {
	idx      uint64
	fileName string
	source   seqsource.Source
}

// completion is posted by the loader for every request it dequeues: either
// a decoded image, or failed=true if the fetch/read/decode did not produce
// one. Either way the cache needs to hear about it to clear the index out
// of pending.
type completion struct {
	idx    uint64
	pixels image.Image
	failed bool
}

// runLoader serves requests FIFO until reqs is closed, which it observes as
// end-of-stream and uses to exit, closing done in turn.
func runLoader(reqs <-chan loadRequest, completions chan<- completion, remote RemoteFetcher, done chan<- struct{}) {
	defer close(done)
	for req := range reqs {
		pixels, ok := load(req, remote)
		if !ok {
			completions <- completion{idx: req.idx, failed: true}
			continue
		}
		completions <- completion{idx: req.idx, pixels: pixels}
	}
}

func load(req loadRequest, remote RemoteFetcher) (image.Image, bool) {
	if req.source.IsRemote() {
		full := seqsource.BuildRemotePath(req.source.Dir, req.fileName)
		b, err := remote.Fetch(req.idx, full)
		if err != nil {
			return nil, false
		}
		img, err := decode.FromBytes(b, full)
		if err != nil {
			return nil, false
		}
		return img, true
	}

	full := path.Join(req.source.Dir, req.fileName)
	img, err := decode.FromFile(full)
	if err != nil {
		return nil, false
	}
	return img, true
}
