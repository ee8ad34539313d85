package domain

// SystemTypeRemotePower tags machines that act as remote power switches
// (PDUs, serial power concentrators). A PowerDevice may only point its
// control device at a machine carrying this tag.
const SystemTypeRemotePower = "REMOTE_POWER"

// BMC represents the baseboard management controller attached to a machine.
type BMC struct {
	FQDN string // BMC hostname
	MAC  string // BMC interface MAC address
}

// Machine represents a physical or virtual machine in the inventory.
type Machine struct {
	ID             int64  // Unique identifier
	FQDN           string // Fully qualified domain name
	IPv4           string // Primary IPv4 address
	IPv6           string // Primary IPv6 address (optional)
	SystemType     string // System tag (e.g. REMOTE_POWER)
	Active         bool   // Only active machines take part in domain sync
	DHCPFilename   string // Machine-level DHCP filename override (optional)
	TFTPServer     string // Machine-level TFTP server override (optional)
	HypervisorFQDN string // Hosting hypervisor, for libvirt machines (optional)
	DomainID       int64  // Foreign key to Domain
	GroupID        *int64 // Foreign key to MachineGroup (optional)
	ArchitectureID int64  // Foreign key to Architecture
	BMC            *BMC   // Attached BMC (optional)

	// Resolved references, populated by the repository for command
	// construction. Nil when the machine was loaded shallow.
	Group        *MachineGroup
	Architecture *Architecture
	Domain       *Domain
}

// HasBMC reports whether the machine has an associated BMC.
func (m Machine) HasBMC() bool {
	return m.BMC != nil && m.BMC.FQDN != ""
}

// MachineGroup represents an administrative grouping of machines.
type MachineGroup struct {
	ID           int64  // Unique identifier
	Name         string // Group name
	DHCPFilename string // DHCP filename pattern for group members (optional)
	TFTPServer   string // TFTP server for group members (optional)
}

// Architecture represents a machine architecture (x86_64, ppc64le, ...).
type Architecture struct {
	ID             int64  // Unique identifier
	Name           string // Architecture name
	DHCPFilename   string // DHCP filename pattern for the architecture (optional)
	DefaultProfile string // Default netboot profile for new systems
}

// Domain represents a network domain served by one or more provisioning
// controller hosts. CobblerServers is ordered; power actions try the
// hosts in that order.
type Domain struct {
	ID             int64    // Unique identifier
	Name           string   // Domain name
	TFTPServer     string   // Domain-level TFTP server (optional)
	CobblerServers []string // Ordered controller host FQDNs
}
