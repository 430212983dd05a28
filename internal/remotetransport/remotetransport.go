// Package remotetransport owns one long-lived SSH session speaking a tiny
// line-oriented request/response protocol:
//
//	EXISTS <path>\n   ->  OK\n | NO\n
//	CAT <path>\n      ->  OK <n>\n<n raw bytes> | NO\n
//	QUIT\n            ->  (no response; remote process exits)
//
// The remote side runs a fixed shell loop (remoteLoopScript) pushed as the
// single command of the SSH session, so one handshake serves arbitrarily
// many requests. A Transport is not safe for concurrent use — exactly one
// caller at a time, enforced by its sole owner, the remote worker
// (internal/remoteworker).
package remotetransport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// maxHeaderLine bounds a single response header line.
const maxHeaderLine = 8192

// ErrNotFound is returned by Fetch when the remote side reports the path
// does not exist.
var ErrNotFound = errors.New("remote: not found")

// ErrTransport wraps any unexpected token, premature EOF, or malformed
// length in a response: the session is considered poisoned from then on.
var ErrTransport = errors.New("remote: transport error")

// Options configures how the Transport connects and authenticates.
type Options struct {
	Port           int                  // default 22
	ConnectTimeout string               // parsed with time.ParseDuration; default "5s"
	HostKeyCallback ssh.HostKeyCallback // default: ssh.InsecureIgnoreHostKey (overridden by callers who load known_hosts)
	Auth           []ssh.AuthMethod     // public-key only, by construction of the caller
}

// Transport is confined to a single owning goroutine (see package doc). The
// wire protocol itself lives in wireConn so it can be exercised in tests
// against an in-memory pipe instead of a live SSH session.
type Transport struct {
	client  *ssh.Client
	session *ssh.Session
	wireConn
}

// wireConn implements the EXISTS/CAT/QUIT protocol over any paired
// (io.Writer, io.Reader), independent of how that pipe was established.
type wireConn struct {
	stdin  io.Writer
	stdout *bufio.Reader
}

// Dial opens a new SSH session to userHost ("user@host") and starts the
// remote command loop. The connection is non-interactive: auth failures and
// connect timeouts both surface as errors rather than prompts.
func Dial(userHost string, opts Options) (*Transport, error) {
	user, host, err := splitUserHost(userHost)
	if err != nil {
		return nil, err
	}
	port := opts.Port
	if port == 0 {
		port = 22
	}
	hostKeyCB := opts.HostKeyCallback
	if hostKeyCB == nil {
		hostKeyCB = ssh.InsecureIgnoreHostKey()
	}
	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            opts.Auth,
		HostKeyCallback: hostKeyCB,
		Timeout:         connectTimeout(opts.ConnectTimeout),
	}

	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", host, port), cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", userHost)
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "open session")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "stdin pipe")
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "stdout pipe")
	}

	if err := session.Start(remoteLoopCommand); err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "start remote loop")
	}

	return &Transport{
		client:   client,
		session:  session,
		wireConn: wireConn{stdin: stdin, stdout: bufio.NewReader(stdout)},
	}, nil
}

// Close sends QUIT and tears down the session. It tolerates the remote
// already having gone away.
func (t *Transport) Close() error {
	_ = t.writeLine("QUIT")
	sessErr := t.session.Close()
	clientErr := t.client.Close()
	if sessErr != nil && sessErr != io.EOF {
		return sessErr
	}
	if clientErr != nil && clientErr != io.EOF {
		return clientErr
	}
	return nil
}

// Exists asks whether path exists on the remote host.
func (c *wireConn) Exists(path string) (bool, error) {
	if err := c.writeLine("EXISTS " + sanitize(path)); err != nil {
		return false, err
	}
	line, err := c.readLine()
	if err != nil {
		return false, err
	}
	switch line {
	case "OK":
		return true, nil
	case "NO":
		return false, nil
	default:
		return false, errors.Wrapf(ErrTransport, "unexpected EXISTS response %q", line)
	}
}

// Fetch reads the full contents of path.
func (c *wireConn) Fetch(path string) ([]byte, error) {
	if err := c.writeLine("CAT " + sanitize(path)); err != nil {
		return nil, err
	}
	header, err := c.readLine()
	if err != nil {
		return nil, err
	}
	if header == "NO" {
		return nil, ErrNotFound
	}
	n, err := parseCatHeader(header)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.stdout, buf); err != nil {
		return nil, errors.Wrapf(ErrTransport, "reading %d bytes: %v", n, err)
	}
	return buf, nil
}

func (c *wireConn) writeLine(s string) error {
	_, err := io.WriteString(c.stdin, s+"\n")
	if err != nil {
		return errors.Wrap(ErrTransport, err.Error())
	}
	return nil
}

func (c *wireConn) readLine() (string, error) {
	line, err := c.stdout.ReadString('\n')
	if err != nil {
		if len(line) == 0 {
			return "", errors.Wrap(ErrTransport, "session closed")
		}
	}
	if len(line) > maxHeaderLine {
		return "", errors.Wrap(ErrTransport, "header line too long")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func sanitize(p string) string {
	p = strings.ReplaceAll(p, "\n", "")
	p = strings.ReplaceAll(p, "\r", "")
	return p
}

func parseCatHeader(h string) (int, error) {
	fields := strings.Fields(h)
	if len(fields) != 2 || fields[0] != "OK" {
		return 0, errors.Wrapf(ErrTransport, "unexpected CAT header %q", h)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return 0, errors.Wrapf(ErrTransport, "malformed length in %q", h)
	}
	return n, nil
}

func splitUserHost(userHost string) (user, host string, err error) {
	at := strings.IndexByte(userHost, '@')
	if at < 0 {
		return "", "", errors.Errorf("%q is not in user@host form", userHost)
	}
	return userHost[:at], userHost[at+1:], nil
}
