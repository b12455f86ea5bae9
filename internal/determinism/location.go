package determinism

import (
	"sync"
	"time"
)

var locMu sync.Mutex

// PinLocation sets time.Local to loc and returns a function that puts the
// previous location back. Runtimes that render local time (JS
// Date#getHours, Date#toString) then agree across machines in different
// zones. time.Local is process-wide: no other goroutine may read local time
// while a location is pinned.
func PinLocation(loc *time.Location) (restore func(), err error) {
	if loc == nil {
		return nil, &ConfigurationError{Reason: "cannot pin a nil location"}
	}

	locMu.Lock()
	prev := time.Local
	time.Local = loc
	locMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			locMu.Lock()
			time.Local = prev
			locMu.Unlock()
		})
	}, nil
}
