package cobbler

import "errors"

// Errors raised by the provisioning orchestration layer, checked with
// errors.Is()
var (
	// ErrServiceUnavailable is returned when the controller binary is
	// missing on the host or the controller daemon is not running
	ErrServiceUnavailable = errors.New("cobbler service unavailable")

	// ErrSync is returned when the controller inventory cannot be listed,
	// or a machine expected on the controller is absent
	ErrSync = errors.New("cobbler sync failed")

	// ErrUnsupportedHardware is returned when power options are requested
	// for a hardware type without a command implementation
	ErrUnsupportedHardware = errors.New("unsupported power hardware type")

	// ErrInvalidAction is returned when a power action outside the
	// enumerated action set is requested
	ErrInvalidAction = errors.New("invalid power action")
)
