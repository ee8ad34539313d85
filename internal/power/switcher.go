package power

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/jbweber/homelab/provisiond/internal/cobbler"
	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/remote"
)

// DomainSource resolves a machine's domain, including the ordered list of
// controller hosts.
type DomainSource interface {
	DomainByID(ctx context.Context, id int64) (domain.Domain, error)
}

// Switcher dispatches power intents for machines. Each action resolves
// the machine's domain and tries its controller hosts in order with a
// fresh orchestrator session per host.
type Switcher struct {
	domains     DomainSource
	inventory   cobbler.Inventory
	config      cobbler.ConfigStore
	credentials cobbler.CredentialSource
	dialer      remote.Dialer
	lookup      cobbler.LookupIPv4Func
}

// NewSwitcher creates a power switcher.
func NewSwitcher(domains DomainSource, inventory cobbler.Inventory, config cobbler.ConfigStore,
	credentials cobbler.CredentialSource, dialer remote.Dialer) *Switcher {
	return &Switcher{
		domains:     domains,
		inventory:   inventory,
		config:      config,
		credentials: credentials,
		dialer:      dialer,
	}
}

// PowerOn powers the machine on.
func (s *Switcher) PowerOn(ctx context.Context, machine domain.Machine) {
	s.Perform(ctx, machine, domain.ActionOn)
}

// PowerOff powers the machine off.
func (s *Switcher) PowerOff(ctx context.Context, machine domain.Machine) {
	s.Perform(ctx, machine, domain.ActionOff)
}

// Reboot is not implemented; it reports the gap instead of executing
// anything, so callers never mistake it for a silent success.
func (s *Switcher) Reboot(ctx context.Context, machine domain.Machine) {
	log.WithField("machine", machine.FQDN).Warning("reboot is not implemented")
}

// GetStatus queries the machine's power status and normalizes the result.
func (s *Switcher) GetStatus(ctx context.Context, machine domain.Machine) domain.PowerStatus {
	result, ok := s.Perform(ctx, machine, domain.ActionStatus)
	if !ok {
		return domain.StatusUnknown
	}
	return ClassifyStatus(result)
}

// Perform runs a power action against the machine's controller hosts in
// order, stopping at the first success. Every failed host attempt is
// logged and the next host is tried; when all hosts fail, a domain-wide
// failure is logged and ok is false. No error propagates out of this
// path: callers that need confirmation have to poll the status
// separately.
func (s *Switcher) Perform(ctx context.Context, machine domain.Machine, action domain.PowerAction) (result string, ok bool) {
	log.WithFields(log.Fields{"machine": machine.FQDN, "action": action}).Info("performing power action")

	if !action.Valid() {
		log.WithFields(log.Fields{"machine": machine.FQDN, "action": action}).
			Error("invalid power action")
		return "", false
	}

	d, err := s.domains.DomainByID(ctx, machine.DomainID)
	if err != nil {
		log.WithField("machine", machine.FQDN).WithError(err).Error("failed to resolve domain")
		return "", false
	}

	for _, host := range d.CobblerServers {
		log.WithField("host", host).Debug("trying cobbler server")
		result, err := s.attempt(ctx, host, d, machine, action)
		if err != nil {
			log.WithFields(log.Fields{
				"machine": machine.FQDN,
				"host":    host,
			}).WithError(err).Warning("power action failed")
			continue
		}
		return result, true
	}

	log.WithFields(log.Fields{"machine": machine.FQDN, "domain": d.Name}).
		Error("power action failed on all cobbler servers")
	return "", false
}

// attempt runs the action against a single controller host with a fresh
// session, released whatever the outcome.
func (s *Switcher) attempt(ctx context.Context, host string, d domain.Domain,
	machine domain.Machine, action domain.PowerAction) (string, error) {
	server, err := cobbler.NewServer(ctx, host, d, cobbler.Options{
		Session:     s.dialer.Dial(host),
		Inventory:   s.inventory,
		Config:      s.config,
		Credentials: s.credentials,
		LookupIPv4:  s.lookup,
	})
	if err != nil {
		return "", err
	}
	defer server.Close()
	return server.PowerSwitch(machine, action)
}
