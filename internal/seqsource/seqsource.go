// Package seqsource describes where a numbered sequence of files lives:
// either on the local filesystem, or on a remote host reached through the
// remote transport. It is a tagged sum type, not a polymorphic interface —
// the two arms need different, mostly-disjoint operations, and there is no
// third arm on the horizon.
package seqsource

import (
	"os"
	"path"
	"strings"
)

// Kind distinguishes the two arms of Source.
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
)

// Source is Local(Dir) | Remote(UserHost, Dir). The zero value is Local("").
type Source struct {
	Kind     Kind
	Dir      string // Local: directory path. Remote: remote directory path.
	UserHost string // Remote only: "user@host".
}

// Local constructs a Local source rooted at dir.
func Local(dir string) Source { return Source{Kind: KindLocal, Dir: dir} }

// Remote constructs a Remote source rooted at dir on userHost.
func Remote(userHost, dir string) Source { return Source{Kind: KindRemote, Dir: dir, UserHost: userHost} }

// IsRemote reports whether s is the Remote arm.
func (s Source) IsRemote() bool { return s.Kind == KindRemote }

// RenderPath produces a human-readable identifier for fileName within s.
// This is for status text only; nothing parses it back.
func (s Source) RenderPath(fileName string) string {
	switch s.Kind {
	case KindRemote:
		return s.UserHost + ":" + BuildRemotePath(s.Dir, fileName)
	default:
		return path.Join(s.Dir, fileName)
	}
}

// LocalExists is a synchronous filesystem stat. It is defined only for the
// Local arm; calling it on a Remote source always reports false, since
// remote existence is ascertained through the remote worker instead.
func (s Source) LocalExists(fileName string) bool {
	if s.Kind != KindLocal {
		return false
	}
	_, err := os.Stat(path.Join(s.Dir, fileName))
	return err == nil
}

// BuildRemotePath joins dir and fileName with exactly one '/' separator,
// regardless of whether dir already ends in one.
func BuildRemotePath(dir, fileName string) string {
	trimmed := strings.TrimRight(dir, "/")
	if trimmed == "" {
		return "/" + fileName
	}
	return trimmed + "/" + fileName
}

// ParseRemoteInput recognizes a "user@host:/absolute/path" input spec and
// splits it into userHost and the whole absolute path after the colon
// (returned as dir; a path to a file is not split further). ok is false if
// input is not in that shape.
func ParseRemoteInput(input string) (userHost, dir string, ok bool) {
	at := strings.IndexByte(input, '@')
	if at < 0 {
		return "", "", false
	}
	colon := strings.IndexByte(input[at:], ':')
	if colon < 0 {
		return "", "", false
	}
	colon += at
	rest := input[colon+1:]
	if !strings.HasPrefix(rest, "/") {
		return "", "", false
	}
	return input[:colon], rest, true
}
