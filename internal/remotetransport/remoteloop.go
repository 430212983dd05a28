package remotetransport

import "time"

// connectTimeout parses s (as accepted by time.ParseDuration) and falls back
// to a 5-second default on empty input or a malformed value.
func connectTimeout(s string) time.Duration {
	if s == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// remoteLoopScript is the fixed POSIX shell program pushed over the SSH
// session. It must tolerate binary payloads on stdout (hence raw `cat --`,
// never any text post-processing of file contents).
const remoteLoopScript = `set -eu
while IFS= read -r line; do
  cmd=${line%% *}
  arg=${line#* }
  case "$cmd" in
    QUIT)
      exit 0
      ;;
    EXISTS)
      [ "$arg" != "$line" ] && [ -f "$arg" ] && echo OK || echo NO
      ;;
    CAT)
      if [ "$arg" != "$line" ] && [ -f "$arg" ]; then
        n=$(wc -c < "$arg" | tr -d '[:space:]')
        echo "OK $n"
        cat -- "$arg"
      else
        echo NO
      fi
      ;;
    *)
      echo NO
      ;;
  esac
done
`

// remoteLoopCommand is the single command string handed to ssh.Session.Start,
// equivalent to `sh -lc '<script>'` over a forked ssh binary.
var remoteLoopCommand = "sh -lc " + shellQuote(remoteLoopScript)

func shellQuote(s string) string {
	// POSIX single-quote escaping: end quote, escaped literal quote, reopen quote.
	out := "'"
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out += `'\''`
		} else {
			out += string(s[i])
		}
	}
	return out + "'"
}
