// Package remote provides the shell session transport used to reach
// provisioning controller hosts.
package remote

// Session is a remote shell session to one host. Connect is idempotent;
// Close must be called on every exit path once Connect succeeded.
type Session interface {
	// Connect establishes the session; calling it again is a no-op
	Connect() error

	// Execute runs a command and returns stdout, stderr and the exit status
	Execute(command string) (stdout, stderr string, exitStatus int, err error)

	// CheckPath tests a path on the remote host with a test(1) flag,
	// e.g. CheckPath("/usr/bin/cobbler", "-x")
	CheckPath(path, flag string) (bool, error)

	// Close tears the session down; safe to call when never connected
	Close() error
}

// Dialer creates sessions for controller hosts. The power switch and the
// domain sync open a fresh session per host attempt through this.
type Dialer interface {
	Dial(fqdn string) Session
}
