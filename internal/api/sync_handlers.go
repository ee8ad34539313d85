package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jbweber/homelab/provisiond/internal/cobbler"
	"github.com/jbweber/homelab/provisiond/internal/remote"
	"github.com/jbweber/homelab/provisiond/internal/repository"
)

// Sync groups domain synchronization handlers for testability
type Sync struct {
	domains     repository.DomainRepository
	inventory   cobbler.Inventory
	config      cobbler.ConfigStore
	credentials cobbler.CredentialSource
	dialer      remote.Dialer
}

func NewSync(domains repository.DomainRepository, inventory cobbler.Inventory,
	config cobbler.ConfigStore, credentials cobbler.CredentialSource, dialer remote.Dialer) *Sync {
	return &Sync{
		domains:     domains,
		inventory:   inventory,
		config:      config,
		credentials: credentials,
		dialer:      dialer,
	}
}

// SyncDomainHandler deploys the domain's machines to all of its
// controller hosts.
func (s *Sync) SyncDomainHandler(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid domain id"})
		return
	}
	d, err := s.domains.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "domain not found"})
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get domain: %v", err), http.StatusInternalServerError)
		return
	}

	err = cobbler.DeployDomain(r.Context(), d, s.dialer, cobbler.Options{
		Inventory:   s.inventory,
		Config:      s.config,
		Credentials: s.credentials,
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
