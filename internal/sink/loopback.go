package sink

import (
	"context"
	"sync"

	"github.com/nerrad567/scenesync/internal/orchestrator"
)

// Loopback is a command sink that acknowledges everything locally.
//
// It stands in for real device bridges when running without a broker:
// every command succeeds instantly and the last value per cell is kept
// so the simulated plant can be inspected over the API or in logs.
type Loopback struct {
	mu     sync.Mutex
	cells  map[string]orchestrator.Command
	logger Logger
}

// NewLoopback creates a loopback sink.
func NewLoopback() *Loopback {
	return &Loopback{
		cells:  make(map[string]orchestrator.Command),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger.
func (l *Loopback) SetLogger(logger Logger) {
	l.logger = logger
}

// Send records the command as the cell's latest and succeeds.
func (l *Loopback) Send(_ context.Context, cmd orchestrator.Command) error {
	l.mu.Lock()
	l.cells[cmd.DeviceID+"/"+cmd.CellID] = cmd
	l.mu.Unlock()

	value := ""
	if cmd.Value != nil {
		value = cmd.Value.String()
	}
	l.logger.Info("loopback command",
		"device_id", cmd.DeviceID,
		"cell_id", cmd.CellID,
		"pulse", cmd.Pulse,
		"value", value,
	)
	return nil
}

// Last returns the most recent command seen for a cell.
func (l *Loopback) Last(deviceID, cellID string) (orchestrator.Command, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cmd, ok := l.cells[deviceID+"/"+cellID]
	return cmd, ok
}
