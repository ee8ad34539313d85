package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/repository"
)

// Machines groups machine handlers for testability
type Machines struct {
	repo repository.MachineRepository
}

func NewMachines(repo repository.MachineRepository) *Machines {
	return &Machines{repo: repo}
}

type CreateMachineRequest struct {
	FQDN           string `json:"fqdn"`
	IPv4           string `json:"ipv4"`
	IPv6           string `json:"ipv6,omitempty"`
	SystemType     string `json:"system_type,omitempty"`
	Active         bool   `json:"active"`
	DomainID       int64  `json:"domain_id"`
	GroupID        *int64 `json:"group_id,omitempty"`
	ArchitectureID int64  `json:"architecture_id"`
	BMCFQDN        string `json:"bmc_fqdn,omitempty"`
	BMCMAC         string `json:"bmc_mac,omitempty"`
}

type MachineResponse struct {
	ID             int64  `json:"id"`
	FQDN           string `json:"fqdn"`
	IPv4           string `json:"ipv4"`
	IPv6           string `json:"ipv6,omitempty"`
	SystemType     string `json:"system_type,omitempty"`
	Active         bool   `json:"active"`
	DomainID       int64  `json:"domain_id"`
	GroupID        *int64 `json:"group_id,omitempty"`
	ArchitectureID int64  `json:"architecture_id"`
	BMCFQDN        string `json:"bmc_fqdn,omitempty"`
	BMCMAC         string `json:"bmc_mac,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func machineResponse(m domain.Machine) MachineResponse {
	resp := MachineResponse{
		ID:             m.ID,
		FQDN:           m.FQDN,
		IPv4:           m.IPv4,
		IPv6:           m.IPv6,
		SystemType:     m.SystemType,
		Active:         m.Active,
		DomainID:       m.DomainID,
		GroupID:        m.GroupID,
		ArchitectureID: m.ArchitectureID,
	}
	if m.BMC != nil {
		resp.BMCFQDN = m.BMC.FQDN
		resp.BMCMAC = m.BMC.MAC
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// machineID extracts and parses the {id} URL parameter.
func machineID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (m *Machines) ListMachinesHandler(w http.ResponseWriter, r *http.Request) {
	machines, err := m.repo.FindAll(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list machines: %v", err), http.StatusInternalServerError)
		return
	}
	response := make([]MachineResponse, len(machines))
	for i, machine := range machines {
		response[i] = machineResponse(machine)
	}
	writeJSON(w, http.StatusOK, response)
}

func (m *Machines) CreateMachineHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	machine := domain.Machine{
		FQDN:           req.FQDN,
		IPv4:           req.IPv4,
		IPv6:           req.IPv6,
		SystemType:     req.SystemType,
		Active:         req.Active,
		DomainID:       req.DomainID,
		GroupID:        req.GroupID,
		ArchitectureID: req.ArchitectureID,
	}
	if req.BMCFQDN != "" {
		machine.BMC = &domain.BMC{FQDN: req.BMCFQDN, MAC: req.BMCMAC}
	}

	saved, err := m.repo.Save(r.Context(), machine)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, machineResponse(saved))
}

func (m *Machines) GetMachineHandler(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid machine id"})
		return
	}
	machine, err := m.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "machine not found"})
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get machine: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, machineResponse(machine))
}

func (m *Machines) DeleteMachineHandler(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid machine id"})
		return
	}
	if err := m.repo.DeleteByID(r.Context(), id); err != nil {
		http.Error(w, fmt.Sprintf("Failed to delete machine: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
