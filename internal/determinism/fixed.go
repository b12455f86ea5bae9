package determinism

import (
	"fmt"
	"math"
	"sync/atomic"
)

// DefaultSequence is the random sequence used by the reference helpers.
var DefaultSequence = Sequence{0.123, 0.456, 0.789}

// DefaultClockMillis is 2023-03-15T13:20:00.000Z.
const DefaultClockMillis int64 = 1678886400000

// Sequence is an ordered, finite list of draws in [0, 1).
type Sequence []float64

// Validate checks that the sequence is non-empty and every value lies in
// [0, 1).
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return &ConfigurationError{Reason: "random sequence is empty"}
	}
	for i, v := range s {
		if math.IsNaN(v) || v < 0 || v >= 1 {
			return &ConfigurationError{Reason: fmt.Sprintf("random sequence[%d] = %v is outside [0, 1)", i, v)}
		}
	}
	return nil
}

// Fixed is a replayable Source: draws cycle through a sequence and every
// clock read returns one instant.
//
// Thread-safety: Fixed is safe for concurrent use. The counter advances
// atomically, so concurrent callers each receive a distinct draw index.
type Fixed struct {
	seq        Sequence
	clock      int64
	draws      atomic.Int64
	clockReads atomic.Int64
}

// NewFixed builds a Fixed source. The sequence is copied; later changes to
// the caller's slice do not affect the source.
func NewFixed(seq Sequence, clockMillis int64) (*Fixed, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	cp := make(Sequence, len(seq))
	copy(cp, seq)
	return &Fixed{seq: cp, clock: clockMillis}, nil
}

// MustFixed is like NewFixed but panics on error.
// Use only in tests or with constant inputs.
func MustFixed(seq Sequence, clockMillis int64) *Fixed {
	f, err := NewFixed(seq, clockMillis)
	if err != nil {
		panic(err)
	}
	return f
}

// Random returns seq[n mod len] for the n-th call (0-indexed) and advances
// the counter by exactly one.
func (f *Fixed) Random() float64 {
	n := f.draws.Add(1) - 1
	return f.seq[n%int64(len(f.seq))]
}

// NowMillis returns the fixed instant.
func (f *Fixed) NowMillis() int64 {
	f.clockReads.Add(1)
	return f.clock
}

// Draws returns how many random draws have been served.
func (f *Fixed) Draws() int64 {
	return f.draws.Load()
}

// ClockReads returns how many clock reads have been served.
func (f *Fixed) ClockReads() int64 {
	return f.clockReads.Load()
}

// Reset rewinds both counters to zero. The next Random call returns seq[0].
func (f *Fixed) Reset() {
	f.draws.Store(0)
	f.clockReads.Store(0)
}

// Sequence returns a copy of the configured sequence.
func (f *Fixed) Sequence() Sequence {
	cp := make(Sequence, len(f.seq))
	copy(cp, f.seq)
	return cp
}

// ClockMillis returns the configured instant without counting a read.
func (f *Fixed) ClockMillis() int64 {
	return f.clock
}
