// Package power translates power intents on machines into controller
// commands, with host failover across a domain's controller hosts.
package power

import (
	"context"
	"errors"
	"fmt"

	"github.com/jbweber/homelab/provisiond/internal/cobbler"
	"github.com/jbweber/homelab/provisiond/internal/domain"
)

// ErrCredential is returned when no remote power password or username can
// be resolved for a hardware type, not even from the defaults.
var ErrCredential = errors.New("no remote power credentials")

// CredentialResolver resolves remote power credentials from the server
// configuration store. Type-specific keys (remotepower.<type>.password)
// win over the remotepower.default.* fallbacks. Nothing is cached; the
// store is consulted on every lookup.
type CredentialResolver struct {
	store cobbler.ConfigStore
}

// NewCredentialResolver creates a resolver on top of a config store.
func NewCredentialResolver(store cobbler.ConfigStore) *CredentialResolver {
	return &CredentialResolver{store: store}
}

// Credentials resolves the (password, username) pair for a hardware type.
// With passwordOnly the username is left empty and not looked up at all.
func (r *CredentialResolver) Credentials(ctx context.Context, hardwareType domain.HardwareType, passwordOnly bool) (cobbler.Credentials, error) {
	token := hardwareType.Token()

	password, err := r.lookup(ctx, token, "password")
	if err != nil {
		return cobbler.Credentials{}, err
	}
	if password == "" {
		return cobbler.Credentials{}, fmt.Errorf("%w: no login password available for %s", ErrCredential, token)
	}
	if passwordOnly {
		return cobbler.Credentials{Password: password}, nil
	}

	username, err := r.lookup(ctx, token, "username")
	if err != nil {
		return cobbler.Credentials{}, err
	}
	if username == "" {
		return cobbler.Credentials{}, fmt.Errorf("%w: no login user available for %s", ErrCredential, token)
	}
	return cobbler.Credentials{Password: password, Username: username}, nil
}

// lookup reads remotepower.<token>.<field>, falling back to
// remotepower.default.<field>.
func (r *CredentialResolver) lookup(ctx context.Context, token, field string) (string, error) {
	value, err := r.store.ByKey(ctx, fmt.Sprintf("remotepower.%s.%s", token, field))
	if err != nil {
		return "", err
	}
	if value != "" {
		return value, nil
	}
	return r.store.ByKey(ctx, fmt.Sprintf("remotepower.default.%s", field))
}
