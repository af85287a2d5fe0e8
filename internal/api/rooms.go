package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/scenesync/internal/registry"
)

// handleListRooms returns all defined rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": s.devices.Rooms(),
	})
}

// handleGetRoom returns one room with its member devices expanded.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	room, err := s.devices.Room(id)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownRoom) {
			writeNotFound(w, "room not found: "+id)
			return
		}
		writeInternalError(w, err.Error())
		return
	}

	devices, err := s.devices.DevicesInRoom(id)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room":    room,
		"devices": devices,
	})
}

// handleShutdownRoom drives every device in the room to its off state.
func (s *Server) handleShutdownRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.engine.ShutdownRoom(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListDevices returns all defined devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.devices.Devices(),
	})
}

// handleGetDevice returns one device definition with the engine's
// current shadow belief per cell.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	device, err := s.devices.Device(id)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownDevice) {
			writeNotFound(w, "device not found: "+id)
			return
		}
		writeInternalError(w, err.Error())
		return
	}

	cells := make(map[string]any, len(device.Cells))
	for i := range device.Cells {
		cell := &device.Cells[i]
		if !cell.HasShadow() {
			continue
		}
		cells[cell.ID] = s.shadow.Get(device.ID, cell.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device": device,
		"shadow": cells,
	})
}
