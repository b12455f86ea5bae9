package determinism

import "sync"

var (
	mu      sync.Mutex
	current Source = System()

	// generation identifies the Install that set current; 0 is the
	// process start.
	generation uint64
	nextGen    uint64
)

// Default returns the process-wide Source.
func Default() Source {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Install makes src the process-wide Source and returns a function that
// restores the previous one. Restores must run in LIFO order. Restore is
// idempotent, and it does nothing once a later Install has replaced src
// without being restored.
func Install(src Source) (restore func(), err error) {
	if src == nil {
		return nil, &ConfigurationError{Reason: "cannot install a nil source"}
	}

	mu.Lock()
	prev, prevGen := current, generation
	nextGen++
	gen := nextGen
	current, generation = src, gen
	mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			defer mu.Unlock()
			if generation != gen {
				return
			}
			current, generation = prev, prevGen
		})
	}, nil
}
