// Package pattern compiles a filename template containing exactly one
// contiguous run of '#' placeholders into a (prefix, width, suffix) triple,
// and uses that triple to recognize sequence members and to format neighbor
// filenames.
package pattern

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrPatternShape is returned by Compile when the template does not contain
// exactly one contiguous run of '#' characters.
var ErrPatternShape = errors.New("pattern must contain exactly one contiguous run of '#'")

const placeholder = '#'

// Template is an immutable compiled pattern. The zero value is not valid;
// construct with Compile.
type Template struct {
	Raw    string
	Prefix string
	Width  int
	Suffix string
}

// Compile parses pat, which must contain exactly one contiguous run of '#'.
// Compilation is total and deterministic: the same pat always compiles to an
// identical Template, and Compile never mutates external state.
func Compile(pat string) (Template, error) {
	start, end, nRuns := findRun(pat)
	if nRuns != 1 {
		return Template{}, errors.Wrapf(ErrPatternShape, "got %d run(s) in %q", nRuns, pat)
	}
	return Template{
		Raw:    pat,
		Prefix: pat[:start],
		Width:  end - start,
		Suffix: pat[end:],
	}, nil
}

// findRun scans s for runs of the placeholder character, returning the
// start/end (half-open) of the first run and the total number of runs found.
func findRun(s string) (start, end, nRuns int) {
	i := 0
	for i < len(s) {
		if s[i] != placeholder {
			i++
			continue
		}
		runStart := i
		for i < len(s) && s[i] == placeholder {
			i++
		}
		if nRuns == 0 {
			start, end = runStart, i
		}
		nRuns++
	}
	return start, end, nRuns
}

// Parse returns the index encoded by name, and true, iff name has the exact
// literal Prefix and Suffix with exactly Width decimal digits between them.
// An index that overflows uint64 is rejected (ok=false), not wrapped.
func (t Template) Parse(name string) (idx uint64, ok bool) {
	if !strings.HasPrefix(name, t.Prefix) || !strings.HasSuffix(name, t.Suffix) {
		return 0, false
	}
	if len(name) < len(t.Prefix)+len(t.Suffix) {
		return 0, false
	}
	mid := name[len(t.Prefix) : len(name)-len(t.Suffix)]
	if len(mid) != t.Width {
		return 0, false
	}
	for i := 0; i < len(mid); i++ {
		if mid[i] < '0' || mid[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(mid, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Matches reports whether name belongs to the sequence described by t,
// without allocating the parsed index.
func (t Template) Matches(name string) bool {
	_, ok := t.Parse(name)
	return ok
}

// Format renders idx as a filename. Width is a minimum, not a maximum: if
// idx's decimal form has more than Width digits, the digit field is the full
// decimal form and nothing is truncated.
func (t Template) Format(idx uint64) string {
	digits := strconv.FormatUint(idx, 10)
	if pad := t.Width - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	var b strings.Builder
	b.Grow(len(t.Prefix) + len(digits) + len(t.Suffix))
	b.WriteString(t.Prefix)
	b.WriteString(digits)
	b.WriteString(t.Suffix)
	return b.String()
}
