package domain

import (
	"fmt"
	"strings"
)

// HardwareType identifies the power control hardware of a machine.
type HardwareType int

const (
	HardwareTypeNone HardwareType = iota // no hardware type set; never persisted
	HardwareTypeTelnet
	HardwareTypeSentry
	HardwareTypeILO
	HardwareTypeIPMI
	HardwareTypeDominionPX
	HardwareTypeLibvirtQEMU
	HardwareTypeLibvirtLXC
	HardwareTypeWebCurl
	HardwareTypeS390
)

var hardwareTypeNames = map[HardwareType]string{
	HardwareTypeTelnet:      "Telnet",
	HardwareTypeSentry:      "Sentry",
	HardwareTypeILO:         "ILO",
	HardwareTypeIPMI:        "IPMI",
	HardwareTypeDominionPX:  "Dominion PX",
	HardwareTypeLibvirtQEMU: "libvirt/qemu",
	HardwareTypeLibvirtLXC:  "libvirt/lxc",
	HardwareTypeWebCurl:     "WEBcurl",
	HardwareTypeS390:        "s390",
}

// String returns the human-readable hardware type name.
func (t HardwareType) String() string {
	if name, ok := hardwareTypeNames[t]; ok {
		return name
	}
	return "none"
}

// Token returns the lowercase configuration token of the hardware type,
// as used in credential lookup keys (remotepower.<token>.password).
func (t HardwareType) Token() string {
	name, ok := hardwareTypeNames[t]
	if !ok {
		return "none"
	}
	token := strings.ToLower(name)
	token = strings.ReplaceAll(token, " ", "")
	return strings.ReplaceAll(token, "/", "")
}

// ParseHardwareType returns the hardware type matching name
// (case-insensitive on the canonical names above).
func ParseHardwareType(name string) (HardwareType, error) {
	for t, n := range hardwareTypeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return HardwareTypeNone, fmt.Errorf("unknown hardware type %q", name)
}

// PowerAction is a power intent dispatched to the provisioning controller.
type PowerAction string

const (
	ActionOn                PowerAction = "on"
	ActionOff               PowerAction = "off"
	ActionOffSSH            PowerAction = "off-ssh"
	ActionOffRemotePower    PowerAction = "off-remotepower"
	ActionReboot            PowerAction = "reboot"
	ActionRebootSSH         PowerAction = "reboot-ssh"
	ActionRebootRemotePower PowerAction = "reboot-remotepower"
	ActionStatus            PowerAction = "status"
)

// PowerActions lists every valid power action.
var PowerActions = []PowerAction{
	ActionOn,
	ActionOff,
	ActionReboot,
	ActionStatus,
	ActionOffSSH,
	ActionOffRemotePower,
	ActionRebootSSH,
	ActionRebootRemotePower,
}

// Valid reports whether the action is part of the enumerated action set.
func (a PowerAction) Valid() bool {
	for _, action := range PowerActions {
		if a == action {
			return true
		}
	}
	return false
}

// PowerStatus is the power state reported for a machine.
type PowerStatus int

const (
	StatusUnknown PowerStatus = iota
	StatusOn
	StatusOff
	StatusBoot
	StatusShutdown
	StatusPaused
)

// String returns the display string for the status; indices outside the
// known set display as "undefined".
func (s PowerStatus) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOn:
		return "on"
	case StatusOff:
		return "off"
	case StatusBoot:
		return "boot"
	case StatusShutdown:
		return "shut down"
	case StatusPaused:
		return "paused"
	default:
		return "undefined"
	}
}
