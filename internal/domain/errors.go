package domain

import "errors"

var (
	ErrSpawn          = errors.New("server process could not be launched")
	ErrAuth           = errors.New("rcon authentication rejected")
	ErrConnectionLost = errors.New("rcon connection lost")
	ErrTimeout        = errors.New("operation timed out")
	ErrClosed         = errors.New("rcon channel closed")
	ErrNotConnected   = errors.New("rcon channel not connected")

	ErrAlreadyConnecting = errors.New("rcon connect already in progress")
	ErrAlreadyRunning    = errors.New("server is already running")
	ErrNotRunning        = errors.New("server is not running")
	ErrProcessExited     = errors.New("server process exited")

	// ErrUnreachable means the status endpoint did not answer. It is not the
	// same as an empty server.
	ErrUnreachable = errors.New("server status unreachable")
)

// IsPrecondition reports whether err is a caller error rather than an incident.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNotRunning) || errors.Is(err, ErrAlreadyRunning) || errors.Is(err, ErrAlreadyConnecting)
}
