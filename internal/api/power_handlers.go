package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/repository"
)

// PowerSwitcher is the slice of the power switcher the handlers need.
type PowerSwitcher interface {
	Perform(ctx context.Context, machine domain.Machine, action domain.PowerAction) (string, bool)
	GetStatus(ctx context.Context, machine domain.Machine) domain.PowerStatus
}

// Power groups power action handlers for testability
type Power struct {
	machines repository.MachineRepository
	switcher PowerSwitcher
}

func NewPower(machines repository.MachineRepository, switcher PowerSwitcher) *Power {
	return &Power{machines: machines, switcher: switcher}
}

type PowerActionRequest struct {
	Action string `json:"action"`
}

type PowerStatusResponse struct {
	Status string `json:"status"`
}

// PowerActionHandler dispatches a power action. Power switching is
// fire-and-forget: a 202 only means the action was dispatched, callers
// needing confirmation poll the status endpoint.
func (p *Power) PowerActionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid machine id"})
		return
	}
	var req PowerActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	action := domain.PowerAction(req.Action)
	if !action.Valid() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid power action %q", req.Action)})
		return
	}

	machine, err := p.machines.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "machine not found"})
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get machine: %v", err), http.StatusInternalServerError)
		return
	}

	p.switcher.Perform(r.Context(), machine, action)
	w.WriteHeader(http.StatusAccepted)
}

func (p *Power) PowerStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid machine id"})
		return
	}
	machine, err := p.machines.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "machine not found"})
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get machine: %v", err), http.StatusInternalServerError)
		return
	}

	status := p.switcher.GetStatus(r.Context(), machine)
	writeJSON(w, http.StatusOK, PowerStatusResponse{Status: status.String()})
}
