package remote

import (
	"fmt"
	"sync"
)

// ScriptedResult is the canned outcome of one command in a ScriptedSession.
type ScriptedResult struct {
	Stdout     string
	Stderr     string
	ExitStatus int
	Err        error
}

// ScriptedSession is a Session for tests. Commands are answered from a
// script keyed by command string; unknown commands exit with 127 like a
// shell would. It records everything that was executed and whether the
// session was closed.
type ScriptedSession struct {
	mu         sync.Mutex
	script     map[string]ScriptedResult
	paths      map[string]bool
	ConnectErr error
	Connected  bool
	Closed     bool
	Executed   []string
}

// NewScriptedSession creates an empty scripted session.
func NewScriptedSession() *ScriptedSession {
	return &ScriptedSession{
		script: map[string]ScriptedResult{},
		paths:  map[string]bool{},
	}
}

// Set scripts the result for a command.
func (s *ScriptedSession) Set(command string, result ScriptedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script[command] = result
}

// SetPath scripts the outcome of a CheckPath call for path.
func (s *ScriptedSession) SetPath(path string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = ok
}

// Connect marks the session connected, or fails with ConnectErr.
func (s *ScriptedSession) Connect() error {
	if s.ConnectErr != nil {
		return s.ConnectErr
	}
	s.Connected = true
	return nil
}

// Execute answers a command from the script.
func (s *ScriptedSession) Execute(command string) (string, string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Connected {
		return "", "", -1, fmt.Errorf("scripted session is not connected")
	}
	s.Executed = append(s.Executed, command)
	result, ok := s.script[command]
	if !ok {
		return "", "command not found", 127, nil
	}
	return result.Stdout, result.Stderr, result.ExitStatus, result.Err
}

// CheckPath answers from the scripted path table.
func (s *ScriptedSession) CheckPath(path, flag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paths[path], nil
}

// Close marks the session closed.
func (s *ScriptedSession) Close() error {
	s.Closed = true
	return nil
}

// StaticDialer is a Dialer for tests handing out pre-built sessions per
// host FQDN.
type StaticDialer struct {
	Sessions map[string]Session
}

// Dial returns the session registered for fqdn, or an empty scripted
// session when none is registered.
func (d *StaticDialer) Dial(fqdn string) Session {
	if session, ok := d.Sessions[fqdn]; ok {
		return session
	}
	return NewScriptedSession()
}
