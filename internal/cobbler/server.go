package cobbler

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/remote"
)

// DefaultCobblerPath is used when the cobbler.command config key is unset.
const DefaultCobblerPath = "/usr/bin/cobbler"

// ConfigKeyCobblerPath is the server config key holding the controller
// binary path on the provisioning hosts.
const ConfigKeyCobblerPath = "cobbler.command"

// Inventory is the slice of the machine inventory the orchestrator needs.
type Inventory interface {
	// ActiveMachines lists the active machines of a domain, resolved for
	// command construction
	ActiveMachines(ctx context.Context, domainID int64) ([]domain.Machine, error)

	// PowerDevice returns the power device of a machine with references
	// resolved, nil when the machine has none
	PowerDevice(ctx context.Context, machineID int64) (*domain.PowerDevice, error)
}

// ConfigStore is the key/value configuration lookup the orchestrator
// consumes.
type ConfigStore interface {
	ByKey(ctx context.Context, key string) (string, error)
}

// Server orchestrates provisioning and power actions against one
// controller host for one network domain. It owns at most one remote
// session, established lazily and closed after use. A Server is built
// fresh per operation and is not safe for concurrent use.
type Server struct {
	fqdn        string
	domain      domain.Domain
	session     remote.Session
	cobblerPath string
	inventory   Inventory
	credentials CredentialSource
	lookup      LookupIPv4Func
	connected   bool
}

// Options carries the collaborators of a Server.
type Options struct {
	Session     remote.Session
	Inventory   Inventory
	Config      ConfigStore
	Credentials CredentialSource
	LookupIPv4  LookupIPv4Func // defaults to net.LookupIP based resolution
}

// NewServer creates an orchestrator bound to one controller host and one
// domain. The controller binary path comes from the cobbler.command
// config key, falling back to DefaultCobblerPath.
func NewServer(ctx context.Context, fqdn string, d domain.Domain, opts Options) (*Server, error) {
	path := DefaultCobblerPath
	if opts.Config != nil {
		configured, err := opts.Config.ByKey(ctx, ConfigKeyCobblerPath)
		if err != nil {
			return nil, err
		}
		if configured != "" {
			path = configured
		}
	}
	lookup := opts.LookupIPv4
	if lookup == nil {
		lookup = LookupIPv4
	}
	return &Server{
		fqdn:        fqdn,
		domain:      d,
		session:     opts.Session,
		cobblerPath: path,
		inventory:   opts.Inventory,
		credentials: opts.Credentials,
		lookup:      lookup,
	}, nil
}

// Connect establishes the remote session. Calling it again is a no-op.
func (s *Server) Connect() error {
	if s.connected {
		return nil
	}
	if err := s.session.Connect(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.fqdn, err)
	}
	s.connected = true
	return nil
}

// Close releases the remote session. Safe to call when never connected.
func (s *Server) Close() {
	if err := s.session.Close(); err != nil {
		log.WithField("host", s.fqdn).WithError(err).Warn("failed to close session")
	}
	s.connected = false
}

// IsInstalled checks whether the controller binary exists and is
// executable on the host.
func (s *Server) IsInstalled() (bool, error) {
	return s.session.CheckPath(s.cobblerPath, "-x")
}

// IsRunning checks controller liveness via the version command.
func (s *Server) IsRunning() (bool, error) {
	_, _, exitStatus, err := s.session.Execute(s.cobblerPath + " version")
	if err != nil {
		return false, err
	}
	return exitStatus == 0, nil
}

// ListSystems enumerates the systems known to the controller, one name
// per line, whitespace trimmed.
func (s *Server) ListSystems() ([]string, error) {
	stdout, stderr, exitStatus, err := s.session.Execute(s.cobblerPath + " system list")
	if err != nil {
		return nil, fmt.Errorf("system list failed on %s: %w", s.fqdn, err)
	}
	if exitStatus != 0 {
		log.WithFields(log.Fields{"host": s.fqdn, "stderr": stderr}).Warn("system list failed")
		return nil, fmt.Errorf("%w: system list failed on %s", ErrSync, s.fqdn)
	}
	var systems []string
	for _, line := range strings.Split(stdout, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			systems = append(systems, name)
		}
	}
	return systems, nil
}

// Deploy synchronizes the domain's active machines into the controller
// inventory. Machines already known to the controller are updated, the
// rest are added with netboot disabled and their default profile. The
// session is closed on every exit path. Individual command failures are
// logged and do not abort the pass.
func (s *Server) Deploy(ctx context.Context) error {
	if err := s.Connect(); err != nil {
		return err
	}
	defer s.Close()

	installed, err := s.IsInstalled()
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("%w: no cobbler binary found on %s", ErrServiceUnavailable, s.fqdn)
	}
	running, err := s.IsRunning()
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("%w: cobbler server is not running on %s", ErrServiceUnavailable, s.fqdn)
	}

	systems, err := s.ListSystems()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(systems))
	for _, name := range systems {
		known[name] = true
	}

	machines, err := s.inventory.ActiveMachines(ctx, s.domain.ID)
	if err != nil {
		return err
	}

	var commands []string
	for _, machine := range machines {
		command, extra, err := s.buildSyncCommands(ctx, machine, known[machine.FQDN])
		if err != nil {
			return err
		}
		commands = append(commands, command)
		commands = append(commands, extra...)
	}

	// TODO: batch these into a single remote call; one round trip per
	// machine is the slow part of a large domain sync.
	for _, command := range commands {
		_, stderr, exitStatus, err := s.session.Execute(command)
		if err != nil {
			return fmt.Errorf("failed to execute %q on %s: %w", command, s.fqdn, err)
		}
		if exitStatus != 0 {
			log.WithFields(log.Fields{
				"host":    s.fqdn,
				"command": command,
				"stderr":  stderr,
			}).Error("sync command failed")
		}
	}
	return nil
}

// buildSyncCommands builds the add or update command for one machine,
// plus the secondary BMC interface command for added machines with a BMC.
func (s *Server) buildSyncCommands(ctx context.Context, machine domain.Machine, known bool) (string, []string, error) {
	options := ""
	device, err := s.inventory.PowerDevice(ctx, machine.ID)
	if err != nil {
		return "", nil, err
	}
	if device != nil {
		powerOptions, err := PowerOptions(ctx, *device, s.credentials)
		if err != nil {
			// Power management stays unconfigured for hardware the
			// controller cannot drive; the DHCP record still syncs.
			log.WithFields(log.Fields{
				"machine":  machine.FQDN,
				"hardware": device.DisplayName(),
			}).WithError(err).Warn("skipping power options")
		} else {
			options = powerOptions
		}
	}

	if known {
		return UpdateCommand(machine, s.cobblerPath, s.lookup) + options, nil, nil
	}

	command, err := AddCommand(machine, s.cobblerPath, s.lookup)
	if err != nil {
		return "", nil, err
	}
	command += options

	var extra []string
	if bmcOptions := BMCOptions(machine, s.lookup); bmcOptions != "" {
		extra = append(extra, fmt.Sprintf("%s system edit --name=%s%s", s.cobblerPath, machine.FQDN, bmcOptions))
	}
	return command, extra, nil
}

// Setup switches a machine to a netboot profile on the controller.
func (s *Server) Setup(machine domain.Machine, choice string) error {
	if err := s.Connect(); err != nil {
		return err
	}

	arch := ""
	if machine.Architecture != nil {
		arch = machine.Architecture.Name
	}
	profile := NormalizeProfileName(fmt.Sprintf("%s:%s", arch, choice))
	command := fmt.Sprintf("%s system edit --name=%s --profile=%s --netboot=True",
		s.cobblerPath, machine.FQDN, profile)
	log.WithFields(log.Fields{"machine": machine.FQDN, "profile": profile, "host": s.fqdn}).Info("setup")

	_, stderr, exitStatus, err := s.session.Execute(command)
	if err != nil {
		return fmt.Errorf("setup of %s failed on %s: %w", machine.FQDN, s.fqdn, err)
	}
	if exitStatus != 0 {
		return fmt.Errorf("%w: setup of %s with %s failed on %s: %s",
			ErrSync, machine.FQDN, profile, s.fqdn, strings.TrimSpace(stderr))
	}
	return nil
}

// powerVerbs maps power actions to the controller verb vocabulary.
var powerVerbs = map[domain.PowerAction]string{
	domain.ActionOn:                "poweron",
	domain.ActionOff:               "poweroff",
	domain.ActionOffSSH:            "poweroff",
	domain.ActionOffRemotePower:    "poweroff",
	domain.ActionReboot:            "reboot",
	domain.ActionRebootSSH:         "reboot",
	domain.ActionRebootRemotePower: "reboot",
	domain.ActionStatus:            "powerstatus",
}

// PowerSwitch performs a power action on a machine through the
// controller. The machine must be present in the controller inventory.
// The command's stdout is returned so status queries can be classified
// by the caller.
func (s *Server) PowerSwitch(machine domain.Machine, action domain.PowerAction) (string, error) {
	log.WithFields(log.Fields{"machine": machine.FQDN, "action": action, "host": s.fqdn}).Info("powerswitch")

	verb, ok := powerVerbs[action]
	if !ok || !action.Valid() {
		return "", fmt.Errorf("%w: %q for machine %s", ErrInvalidAction, action, machine.FQDN)
	}

	if err := s.Connect(); err != nil {
		return "", err
	}

	systems, err := s.ListSystems()
	if err != nil {
		return "", err
	}
	found := false
	for _, name := range systems {
		if name == machine.FQDN {
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("%w: machine %s is not on cobbler server %s", ErrSync, machine.FQDN, s.fqdn)
	}

	command := fmt.Sprintf("%s system %s --name=%s", s.cobblerPath, verb, machine.FQDN)
	log.WithFields(log.Fields{"command": command, "host": s.fqdn}).Debug("executing")

	stdout, stderr, exitStatus, err := s.session.Execute(command)
	if err != nil {
		return "", fmt.Errorf("powerswitching with %q failed on %s: %w", command, s.fqdn, err)
	}
	if exitStatus != 0 {
		return "", fmt.Errorf("%w: powerswitching with %q failed on %s: %s",
			ErrSync, command, s.fqdn, strings.TrimSpace(stderr))
	}
	return stdout, nil
}

// FQDN returns the controller host this server is bound to.
func (s *Server) FQDN() string {
	return s.fqdn
}
