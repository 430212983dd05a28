package main

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/elliotnunn/seqview/internal/config"
	"github.com/elliotnunn/seqview/internal/pattern"
	"github.com/elliotnunn/seqview/internal/seqsource"
)

// ErrNoPatternMatched is returned by pickSequence when no configured
// pattern's shape matches the input filename.
var ErrNoPatternMatched = errors.New("no configured pattern matched")

// resolvedSequence is what pickSequence hands back to main: the template
// that matched, the index it parsed out of the input filename, and the
// source the file lives in.
type resolvedSequence struct {
	pattern string
	tmpl    pattern.Template
	index   uint64
	source  seqsource.Source
}

// pickSequence tries every configured pattern against fileName in order and
// accepts the first shape match. A neighboring file is not required to
// already exist for a pattern to be accepted.
func pickSequence(cfg config.Config, fileName string, source seqsource.Source) (resolvedSequence, error) {
	if len(cfg.Patterns) == 0 {
		return resolvedSequence{}, errors.Wrap(ErrNoPatternMatched, "no patterns configured")
	}
	for _, pat := range cfg.Patterns {
		tmpl, err := pattern.Compile(pat)
		if err != nil {
			continue // a malformed saved pattern should not abort the whole search
		}
		idx, ok := tmpl.Parse(fileName)
		if !ok {
			continue
		}
		return resolvedSequence{pattern: pat, tmpl: tmpl, index: idx, source: source}, nil
	}
	return resolvedSequence{}, errors.Wrapf(ErrNoPatternMatched, "%q against %d configured pattern(s)", fileName, len(cfg.Patterns))
}

func splitDirAndFile(path string) (dir, file string) {
	return filepath.Dir(path), filepath.Base(path)
}
