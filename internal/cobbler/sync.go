package cobbler

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/remote"
)

// DeployDomain synchronizes a domain's machines into every controller
// host configured for it, one host at a time with a fresh session each.
// Host failures are logged and collected; the joined error is returned
// so a caller can tell a partial sync from a clean one.
func DeployDomain(ctx context.Context, d domain.Domain, dialer remote.Dialer, opts Options) error {
	var errs []error
	for _, host := range d.CobblerServers {
		hostOpts := opts
		hostOpts.Session = dialer.Dial(host)
		server, err := NewServer(ctx, host, d, hostOpts)
		if err != nil {
			return err
		}
		if err := server.Deploy(ctx); err != nil {
			log.WithFields(log.Fields{"host": host, "domain": d.Name}).
				WithError(err).Error("deploy failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
