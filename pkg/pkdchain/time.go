package pkdchain

import "time"

// timeNow is the single clock read in this package, kept in its own
// function so tests can shadow the expiry check deterministically if
// ever needed without threading a clock through Build's signature.
func timeNow() time.Time {
	return time.Now().UTC()
}
