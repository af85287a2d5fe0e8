package debounce

import (
	"errors"
	"fmt"
	"time"
)

// ErrLocked is the sentinel for rejected acquisitions.
// Check with errors.Is(); unwrap to *LockedError for the remaining window.
var ErrLocked = errors.New("debounce: cell locked")

// LockedError reports a rejected acquisition with the cooldown remaining.
//
//	var lockErr *debounce.LockedError
//	if errors.As(err, &lockErr) {
//	    log.Info("skipped", "remaining", lockErr.Remaining)
//	}
type LockedError struct {
	DeviceID  string
	CellID    string
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("debounce: cell %s/%s locked for another %s", e.DeviceID, e.CellID, e.Remaining)
}

func (e *LockedError) Unwrap() error {
	return ErrLocked
}
