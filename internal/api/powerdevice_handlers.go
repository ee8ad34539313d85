package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/repository"
)

// PowerDevices groups power device handlers for testability
type PowerDevices struct {
	machines repository.MachineRepository
	devices  repository.PowerDeviceRepository
}

func NewPowerDevices(machines repository.MachineRepository, devices repository.PowerDeviceRepository) *PowerDevices {
	return &PowerDevices{machines: machines, devices: devices}
}

type PutPowerDeviceRequest struct {
	HardwareType    string `json:"hardware_type"`
	ManagementBMCID *int64 `json:"management_bmc_id,omitempty"`
	ControlDeviceID *int64 `json:"control_device_id,omitempty"`
	Port            *int   `json:"port,omitempty"`
	DeviceIndex     *int   `json:"device_index,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

type PowerDeviceResponse struct {
	MachineID       int64  `json:"machine_id"`
	HardwareType    string `json:"hardware_type"`
	ManagementBMCID *int64 `json:"management_bmc_id,omitempty"`
	ControlDeviceID *int64 `json:"control_device_id,omitempty"`
	Port            *int   `json:"port,omitempty"`
	DeviceIndex     *int   `json:"device_index,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

func powerDeviceResponse(d domain.PowerDevice) PowerDeviceResponse {
	return PowerDeviceResponse{
		MachineID:       d.MachineID,
		HardwareType:    d.DisplayName(),
		ManagementBMCID: d.ManagementBMCID,
		ControlDeviceID: d.ControlDeviceID,
		Port:            d.Port,
		DeviceIndex:     d.DeviceIndex,
		Comment:         d.Comment,
	}
}

func (p *PowerDevices) GetPowerDeviceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid machine id"})
		return
	}
	device, err := p.devices.FindByMachineID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "power device not found"})
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get power device: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, powerDeviceResponse(device))
}

func (p *PowerDevices) PutPowerDeviceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid machine id"})
		return
	}
	var req PutPowerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	hardwareType, err := domain.ParseHardwareType(req.HardwareType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	device := domain.PowerDevice{
		MachineID:       id,
		HardwareType:    hardwareType,
		ManagementBMCID: req.ManagementBMCID,
		ControlDeviceID: req.ControlDeviceID,
		Port:            req.Port,
		DeviceIndex:     req.DeviceIndex,
		Comment:         req.Comment,
	}
	saved, err := p.devices.Save(r.Context(), device)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		http.Error(w, fmt.Sprintf("Failed to save power device: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, powerDeviceResponse(saved))
}

func (p *PowerDevices) DeletePowerDeviceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := machineID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid machine id"})
		return
	}
	if err := p.devices.DeleteByMachineID(r.Context(), id); err != nil {
		http.Error(w, fmt.Sprintf("Failed to delete power device: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
