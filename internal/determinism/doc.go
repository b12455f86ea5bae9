// Package determinism replaces every ambient source of run-to-run variance
// (pseudo-random draws and wall-clock reads) with replayable stand-ins.
//
// Code that would otherwise call math/rand or time.Now reads a Source
// instead. The harness binds a Fixed source built from a random sequence
// and a single clock instant; production code binds System().
//
// # Fixed Sources
//
// A Fixed source owns the call counter. Draw N (0-indexed) returns
// sequence[N mod len(sequence)], so the (len+1)-th draw repeats the first.
// Every clock read returns the same instant, no matter how much real time
// has elapsed between reads.
//
//	src, err := determinism.NewFixed(determinism.DefaultSequence, determinism.DefaultClockMillis)
//	if err != nil {
//	    return err // *ConfigurationError
//	}
//	src.Random()    // 0.123
//	src.Random()    // 0.456
//	src.NowMillis() // 1678886400000
//
// A fresh Fixed source always starts at draw 0. Reset rewinds the counter
// for callers that reuse one source across runs in the same process.
//
// # Process-wide Binding
//
// Install swaps the package default returned by Default and hands back a
// restore function. Long-lived processes must call it once the run is over.
package determinism
