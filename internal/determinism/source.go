package determinism

import (
	"math/rand/v2"
	"time"
)

// Source is the capability every signing routine reads randomness and time
// through.
type Source interface {
	// Random returns one value in [0, 1).
	Random() float64

	// NowMillis returns the current instant as milliseconds since the epoch.
	NowMillis() int64
}

// systemSource reads real entropy and the real clock.
type systemSource struct{}

// System returns the production Source backed by math/rand/v2 and time.Now.
func System() Source {
	return systemSource{}
}

func (systemSource) Random() float64 {
	return rand.Float64()
}

func (systemSource) NowMillis() int64 {
	return time.Now().UnixMilli()
}
