package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConfiguration is returned when a PowerDevice (or a dependent
// controller setting) is invalid or incomplete. Validation collects every
// violated rule before returning, so the message may list several problems.
var ErrConfiguration = errors.New("invalid configuration")

// PowerDevice holds the power control configuration of exactly one machine.
// Which parameter fields are meaningful depends on HardwareType; everything
// outside the type's required set is cleared on every save.
type PowerDevice struct {
	MachineID       int64        // Owning machine (primary key, cascade delete)
	HardwareType    HardwareType // Power control hardware; must be set to persist
	ManagementBMCID *int64       // Machine acting as management BMC (ILO/IPMI/WEBcurl)
	ControlDeviceID *int64       // Remote power device machine (Telnet/Sentry/Dominion PX/s390)
	Port            *int         // Outlet/port on the control device (Telnet/Dominion PX)
	DeviceIndex     *int         // Device index on the control device (Telnet/Dominion PX)
	Comment         string       // Free-form administrative note
	Created         time.Time    // Creation timestamp
	Updated         time.Time    // Last update timestamp

	// Resolved references, populated by the repository.
	ManagementBMC *Machine
	ControlDevice *Machine
}

// DisplayName returns the hardware type name, or "none" if unset.
func (d *PowerDevice) DisplayName() string {
	return d.HardwareType.String()
}

// ValidateAndNormalize checks that every field required by the hardware
// type is present and clears every field the type does not use. owner is
// the machine the device belongs to; control is the resolved control
// device machine, nil if ControlDeviceID is unset.
//
// All violations are collected and reported together, wrapped in
// ErrConfiguration. A device with no hardware type at all is rejected
// unconditionally; it must never reach persistence.
func (d *PowerDevice) ValidateAndNormalize(owner Machine, control *Machine) error {
	if d.HardwareType == HardwareTypeNone {
		return fmt.Errorf("%w: no hardware type set", ErrConfiguration)
	}

	var violations []string

	switch d.HardwareType {
	case HardwareTypeTelnet, HardwareTypeDominionPX:
		if d.ControlDeviceID == nil {
			violations = append(violations, "a remote power device is required")
		}
		if d.Port == nil {
			violations = append(violations, "a port is required")
		}
		// requires: control device, port
		d.DeviceIndex = nil
		d.ManagementBMCID = nil
		d.ManagementBMC = nil

	case HardwareTypeSentry, HardwareTypeS390:
		if d.ControlDeviceID == nil {
			violations = append(violations, "a remote power device is required")
		}
		// requires: control device
		d.DeviceIndex = nil
		d.ManagementBMCID = nil
		d.ManagementBMC = nil
		d.Port = nil

	case HardwareTypeILO, HardwareTypeIPMI, HardwareTypeWebCurl:
		if !owner.HasBMC() {
			violations = append(violations, "the machine needs at least one BMC")
		}
		if d.ManagementBMCID == nil {
			violations = append(violations, "a management BMC is required")
		}
		// requires: management BMC
		d.DeviceIndex = nil
		d.Port = nil
		d.ControlDeviceID = nil
		d.ControlDevice = nil

	case HardwareTypeLibvirtQEMU, HardwareTypeLibvirtLXC:
		if owner.HypervisorFQDN == "" {
			violations = append(violations, "no hypervisor found")
		}
		// requires: nothing beyond the hypervisor
		d.DeviceIndex = nil
		d.ManagementBMCID = nil
		d.ManagementBMC = nil
		d.Port = nil
		d.ControlDeviceID = nil
		d.ControlDevice = nil
	}

	if d.ControlDeviceID != nil {
		if control == nil {
			violations = append(violations, "remote power device not found")
		} else if control.SystemType != SystemTypeRemotePower {
			violations = append(violations,
				fmt.Sprintf("remote power device %q must have system type %s", control.FQDN, SystemTypeRemotePower))
		}
	}

	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(violations, "; "))
	}
	return nil
}
