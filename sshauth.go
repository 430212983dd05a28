package main

import (
	"net"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// ErrRemoteAuth is returned when no usable SSH authentication method could
// be assembled: neither an explicit identity file nor a running agent.
var ErrRemoteAuth = errors.New("remote: no usable SSH authentication")

// resolveAuthMethods builds the public-key-only auth chain for a
// non-interactive ("batch mode") SSH session: an explicit identity file, if
// given or found at the conventional default locations, otherwise an
// ssh-agent connection via SSH_AUTH_SOCK.
func resolveAuthMethods(identityPath string) ([]ssh.AuthMethod, error) {
	if identityPath != "" {
		m, err := authFromIdentityFile(identityPath)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{m}, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		for _, candidate := range []string{"id_ed25519", "id_rsa"} {
			p := filepath.Join(home, ".ssh", candidate)
			if _, err := os.Stat(p); err == nil {
				if m, err := authFromIdentityFile(p); err == nil {
					return []ssh.AuthMethod{m}, nil
				}
			}
		}
	}

	if m, err := authFromAgent(); err == nil {
		return []ssh.AuthMethod{m}, nil
	}

	return nil, errors.Wrap(ErrRemoteAuth, "no identity file or ssh-agent socket available")
}

func authFromIdentityFile(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read identity %s", path)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, errors.Wrapf(err, "parse identity %s", path)
	}
	return ssh.PublicKeys(signer), nil
}

func authFromAgent() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("SSH_AUTH_SOCK not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, errors.Wrap(err, "dial ssh-agent socket")
	}
	client := agent.NewClient(conn)
	return ssh.PublicKeysCallback(client.Signers), nil
}
