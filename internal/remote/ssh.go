package remote

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	gssh "golang.org/x/crypto/ssh"
)

// SSHConfig holds the client settings for controller host sessions.
type SSHConfig struct {
	User           string        // Login user on the controller hosts
	PrivateKeyPath string        // Path to the private key file
	Password       string        // Password auth, used when no key is set
	Timeout        time.Duration // TCP connect timeout
}

// SSHDialer creates SSH-backed sessions.
type SSHDialer struct {
	config SSHConfig
}

// NewSSHDialer creates a dialer from the given client settings.
func NewSSHDialer(config SSHConfig) *SSHDialer {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &SSHDialer{config: config}
}

// Dial returns an unconnected session for fqdn.
func (d *SSHDialer) Dial(fqdn string) Session {
	return &sshSession{fqdn: fqdn, config: d.config}
}

// sshSession implements Session over golang.org/x/crypto/ssh.
type sshSession struct {
	fqdn   string
	config SSHConfig
	client *gssh.Client
}

// Connect establishes the SSH connection. Repeat calls are no-ops.
func (s *sshSession) Connect() error {
	if s.client != nil {
		return nil
	}

	var auth []gssh.AuthMethod
	if s.config.PrivateKeyPath != "" {
		key, err := os.ReadFile(s.config.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("failed to read private key: %w", err)
		}
		signer, err := gssh.ParsePrivateKey(key)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, gssh.PublicKeys(signer))
	}
	if s.config.Password != "" {
		auth = append(auth, gssh.Password(s.config.Password))
	}

	clientConfig := &gssh.ClientConfig{
		User:            s.config.User,
		Auth:            auth,
		HostKeyCallback: gssh.InsecureIgnoreHostKey(),
		Timeout:         s.config.Timeout,
	}

	// Accept host or host:port.
	target := s.fqdn
	if _, _, err := net.SplitHostPort(target); err != nil {
		target = net.JoinHostPort(target, "22")
	}

	client, err := gssh.Dial("tcp", target, clientConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.fqdn, err)
	}
	s.client = client
	return nil
}

// Execute runs a command on the remote host.
func (s *sshSession) Execute(command string) (string, string, int, error) {
	if s.client == nil {
		return "", "", -1, fmt.Errorf("session to %s is not connected", s.fqdn)
	}

	session, err := s.client.NewSession()
	if err != nil {
		return "", "", -1, fmt.Errorf("failed to open session on %s: %w", s.fqdn, err)
	}
	defer func() {
		_ = session.Close()
	}()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	exitStatus := 0
	if err := session.Run(command); err != nil {
		var exitErr *gssh.ExitError
		if errors.As(err, &exitErr) {
			exitStatus = exitErr.ExitStatus()
		} else {
			return stdout.String(), stderr.String(), -1, fmt.Errorf("failed to run command on %s: %w", s.fqdn, err)
		}
	}
	return stdout.String(), stderr.String(), exitStatus, nil
}

// CheckPath tests a path on the remote host with a test(1) flag.
func (s *sshSession) CheckPath(path, flag string) (bool, error) {
	_, _, exitStatus, err := s.Execute(fmt.Sprintf("test %s %s", flag, path))
	if err != nil {
		return false, err
	}
	return exitStatus == 0, nil
}

// Close tears down the SSH connection.
func (s *sshSession) Close() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
