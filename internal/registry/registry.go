package registry

import (
	"fmt"
	"sync"
)

// Registry holds the loaded device and room definitions.
//
// Definitions are immutable once loaded; Reload swaps the whole set
// atomically (full replace, never a partial merge). All public methods
// are thread-safe and return deep copies, so callers can never mutate
// the registry's view of the site.
type Registry struct {
	mu          sync.RWMutex
	devices     map[string]*Device
	deviceOrder []string
	rooms       map[string]*Room
	roomOrder   []string
}

// Device retrieves a device by ID.
// Returns ErrUnknownDevice if the device does not exist.
func (r *Registry) Device(deviceID string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}
	return d.DeepCopy(), nil
}

// ResolveCell returns the schema for a device cell.
// Returns ErrUnknownDevice or ErrUnknownCell on a dangling reference.
func (r *Registry) ResolveCell(deviceID, cellID string) (*Cell, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}
	c := d.Cell(cellID)
	if c == nil {
		return nil, fmt.Errorf("%w: %q on device %q", ErrUnknownCell, cellID, deviceID)
	}

	cpy := *c
	cpy.Min = copyFloat(c.Min)
	cpy.Max = copyFloat(c.Max)
	return &cpy, nil
}

// Devices returns all devices in declaration order.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.deviceOrder))
	for _, id := range r.deviceOrder {
		devices = append(devices, *r.devices[id].DeepCopy())
	}
	return devices
}

// Rooms returns all rooms in declaration order.
func (r *Registry) Rooms() []Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]Room, 0, len(r.roomOrder))
	for _, id := range r.roomOrder {
		rooms = append(rooms, *r.rooms[id].DeepCopy())
	}
	return rooms
}

// Room retrieves a room by ID.
// Returns ErrUnknownRoom if the room does not exist.
func (r *Registry) Room(roomID string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoom, roomID)
	}
	return rm.DeepCopy(), nil
}

// DevicesInRoom returns the room's member devices in declared order.
// Returns ErrUnknownRoom if the room does not exist.
func (r *Registry) DevicesInRoom(roomID string) ([]Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoom, roomID)
	}

	devices := make([]Device, 0, len(rm.DeviceIDs))
	for _, deviceID := range rm.DeviceIDs {
		// Membership was validated at load, so the device must exist.
		devices = append(devices, *r.devices[deviceID].DeepCopy())
	}
	return devices, nil
}

// Reload replaces the registry contents with freshly validated
// definitions. On validation failure the existing contents are kept.
func (r *Registry) Reload(defs Definitions) error {
	fresh, err := Load(defs)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = fresh.devices
	r.deviceOrder = fresh.deviceOrder
	r.rooms = fresh.rooms
	r.roomOrder = fresh.roomOrder
	return nil
}
