package cobbler

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/jbweber/homelab/provisiond/internal/domain"
)

// LookupIPv4Func resolves a hostname to an IPv4 address. Injected so
// command construction stays testable without DNS.
type LookupIPv4Func func(host string) (string, error)

// LookupIPv4 is the production resolver on top of net.LookupIP.
func LookupIPv4(host string) (string, error) {
	ips, err := net.LookupIP(host)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", fmt.Errorf("no IPv4 address for %s", host)
}

// Credentials is a remote power login pair. Username is empty when the
// lookup was password-only.
type Credentials struct {
	Password string
	Username string
}

// CredentialSource resolves remote power credentials for a hardware type
// at command-build time. Implementations must not cache across devices.
type CredentialSource interface {
	Credentials(ctx context.Context, hardwareType domain.HardwareType, passwordOnly bool) (Credentials, error)
}

var machineVar = regexp.MustCompile(`\{\{\s*machine\.(\w+)\s*\}\}`)

// expandPattern substitutes {{ machine.<attr> }} variables in a filename
// pattern. Unknown variables expand to the empty string.
func expandPattern(pattern string, m domain.Machine) string {
	return machineVar.ReplaceAllStringFunc(pattern, func(match string) string {
		attr := machineVar.FindStringSubmatch(match)[1]
		switch strings.ToLower(attr) {
		case "fqdn":
			return m.FQDN
		case "hostname":
			if i := strings.Index(m.FQDN, "."); i > 0 {
				return m.FQDN[:i]
			}
			return m.FQDN
		case "ipv4":
			return m.IPv4
		case "ipv6":
			return m.IPv6
		case "architecture":
			if m.Architecture != nil {
				return m.Architecture.Name
			}
			return ""
		default:
			return ""
		}
	})
}

// Filename returns the DHCP filename for a machine, following the
// machine > group > architecture precedence. Group and architecture
// level patterns get the machine substituted in; "" means no filename.
func Filename(m domain.Machine) string {
	if m.DHCPFilename != "" {
		return m.DHCPFilename
	}
	if m.Group != nil && m.Group.DHCPFilename != "" {
		return expandPattern(m.Group.DHCPFilename, m)
	}
	if m.Architecture != nil && m.Architecture.DHCPFilename != "" {
		return expandPattern(m.Architecture.DHCPFilename, m)
	}
	return ""
}

// TFTPServer returns the TFTP server hostname for a machine's DHCP
// record, following the machine > group > domain precedence. "" means
// no next-server.
func TFTPServer(m domain.Machine) string {
	if m.TFTPServer != "" {
		return m.TFTPServer
	}
	if m.Group != nil && m.Group.TFTPServer != "" {
		return m.Group.TFTPServer
	}
	if m.Domain != nil && m.Domain.TFTPServer != "" {
		return m.Domain.TFTPServer
	}
	return ""
}

// SystemOptions builds the add/update option string for a machine. The
// TFTP next-server is resolved to an IPv4 address through lookup; a
// resolution failure drops the flag rather than failing the command.
func SystemOptions(m domain.Machine, lookup LookupIPv4Func) string {
	var b strings.Builder
	fmt.Fprintf(&b, " --name=%s --ip-address=%s", m.FQDN, m.IPv4)
	if m.IPv6 != "" {
		fmt.Fprintf(&b, " --ipv6-address=%s", m.IPv6)
	}
	b.WriteString(" --interface=default --management=True --interface-master=True")
	if filename := Filename(m); filename != "" {
		fmt.Fprintf(&b, " --filename=%s", filename)
	}
	if server := TFTPServer(m); server != "" && lookup != nil {
		if ip, err := lookup(server); err == nil {
			fmt.Fprintf(&b, " --next-server=%s", ip)
		}
	}
	return b.String()
}

// PowerOptions builds the power management option string for a machine's
// power device. Only IPMI and Dominion PX have a command implementation;
// every other hardware type fails with ErrUnsupportedHardware and no
// partial option string is ever returned.
func PowerOptions(ctx context.Context, d domain.PowerDevice, source CredentialSource) (string, error) {
	var address string
	switch d.HardwareType {
	case domain.HardwareTypeIPMI:
		if d.ManagementBMC == nil {
			return "", fmt.Errorf("%w: no management BMC resolved for IPMI device", domain.ErrConfiguration)
		}
		address = d.ManagementBMC.FQDN
	case domain.HardwareTypeDominionPX:
		if d.ControlDevice == nil {
			return "", fmt.Errorf("%w: no control device resolved for Dominion PX device", domain.ErrConfiguration)
		}
		address = d.ControlDevice.FQDN
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedHardware, d.DisplayName())
	}

	creds, err := source.Credentials(ctx, d.HardwareType, false)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, " --power-address=%s", address)
	if d.HardwareType == domain.HardwareTypeDominionPX && d.Port != nil {
		fmt.Fprintf(&b, " --power-id=%d", *d.Port)
	}
	fmt.Fprintf(&b, " --power-user=%s --power-pass=%s", creds.Username, creds.Password)
	fmt.Fprintf(&b, " --power-type=%s", d.DisplayName())
	return b.String(), nil
}

// BMCOptions builds the secondary interface option string carrying the
// machine's BMC. Returns "" when the machine has no BMC. The BMC IP is
// resolved from its hostname; a resolution failure drops the flag.
func BMCOptions(m domain.Machine, lookup LookupIPv4Func) string {
	if !m.HasBMC() {
		return ""
	}
	var b strings.Builder
	b.WriteString(" --interface=bmc")
	if lookup != nil {
		if ip, err := lookup(m.BMC.FQDN); err == nil {
			fmt.Fprintf(&b, " --ip-address=%s", ip)
		}
	}
	if m.BMC.MAC != "" {
		fmt.Fprintf(&b, " --mac-address=%s", m.BMC.MAC)
	}
	fmt.Fprintf(&b, " --dns-name=%s", m.BMC.FQDN)
	return b.String()
}

// NormalizeProfileName rewrites an arch:distro:profile name so that only
// the first colon survives and later separators become dashes
// (arch:distro-profile). The controller rejects profile names with more
// than one colon. Already-normalized names pass through unchanged, so a
// second pass is a no-op; the reverse direction is deliberately not
// supported.
func NormalizeProfileName(profile string) string {
	parts := strings.Split(profile, ":")
	if len(parts) < 3 {
		return profile
	}
	return parts[0] + ":" + strings.Join(parts[1:], "-")
}

// DefaultProfile returns the default netboot profile for a machine from
// its architecture. A machine without one cannot be added to the
// controller.
func DefaultProfile(m domain.Machine) (string, error) {
	if m.Architecture == nil || m.Architecture.DefaultProfile == "" {
		return "", fmt.Errorf("%w: machine %s has no default profile", domain.ErrConfiguration, m.FQDN)
	}
	return m.Architecture.DefaultProfile, nil
}

// AddCommand builds the full "system add" command for a machine.
func AddCommand(m domain.Machine, cobblerPath string, lookup LookupIPv4Func) (string, error) {
	profile, err := DefaultProfile(m)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s system add%s --netboot-enabled=False --profile=%s",
		cobblerPath, SystemOptions(m, lookup), NormalizeProfileName(profile)), nil
}

// UpdateCommand builds the full "system edit" command for a machine.
func UpdateCommand(m domain.Machine, cobblerPath string, lookup LookupIPv4Func) string {
	return fmt.Sprintf("%s system edit%s", cobblerPath, SystemOptions(m, lookup))
}
