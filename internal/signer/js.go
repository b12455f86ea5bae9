package signer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/roach88/signoracle/internal/determinism"
)

// entryArity is the number of declared parameters the entry point must
// have: (query, identity).
const entryArity = 2

// Sentinel values used to check that the runtime honors source overrides.
const (
	sentinelRandom = 0.25
	sentinelMillis = int64(86400000)
)

// jsSigner calls an entry point inside a dedicated goja runtime.
// A goja runtime is not goroutine safe; mu serializes calls.
type jsSigner struct {
	mu    sync.Mutex
	vm    *goja.Runtime
	fn    goja.Callable
	entry string
}

func newJSSigner(ctx context.Context, ref Ref, path, code string, src determinism.Source) (*jsSigner, error) {
	vm := goja.New()

	if err := installSources(vm, src); err != nil {
		return nil, err
	}

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, &LoadError{Code: ErrCodeEvalFailed, Ref: ref.String(), Message: "preparing module object", Err: err}
	}
	if err := vm.Set("module", module); err != nil {
		return nil, &LoadError{Code: ErrCodeEvalFailed, Ref: ref.String(), Message: "preparing module object", Err: err}
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, &LoadError{Code: ErrCodeEvalFailed, Ref: ref.String(), Message: "preparing module object", Err: err}
	}

	stop := interruptOnDone(ctx, vm)
	_, err := vm.RunScript(path, code)
	stop()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeEvalFailed, Ref: ref.String(), Message: "evaluating artifact", Err: err}
	}

	fnVal := lookupEntry(vm, module, ref.Entry)
	if fnVal == nil {
		return nil, &LoadError{Code: ErrCodeEntryNotFound, Ref: ref.String(), Message: fmt.Sprintf("artifact does not define %q", ref.Entry)}
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, &LoadError{Code: ErrCodeEntryNotCallable, Ref: ref.String(), Message: fmt.Sprintf("%q is not a function", ref.Entry)}
	}
	if n := fnVal.ToObject(vm).Get("length").ToInteger(); n != entryArity {
		return nil, &LoadError{Code: ErrCodeEntryArity, Ref: ref.String(), Message: fmt.Sprintf("%q declares %d parameters, want %d", ref.Entry, n, entryArity)}
	}

	return &jsSigner{vm: vm, fn: fn, entry: ref.Entry}, nil
}

// installSources points the runtime's Math.random and Date at src. Each
// override is first checked with a sentinel so src itself is not consumed.
func installSources(vm *goja.Runtime, src determinism.Source) error {
	vm.SetRandSource(func() float64 { return sentinelRandom })
	vm.SetTimeSource(func() time.Time { return time.UnixMilli(sentinelMillis) })

	v, err := vm.RunString("[Math.random(), Date.now(), new Date().getTime()]")
	if err != nil {
		return &determinism.ConfigurationError{Reason: "checking runtime sources", Err: err}
	}
	var got []any
	if err := vm.ExportTo(v, &got); err != nil || len(got) != 3 {
		return &determinism.ConfigurationError{Reason: "checking runtime sources: unexpected result", Err: err}
	}
	if toFloat(got[0]) != sentinelRandom {
		return &determinism.ConfigurationError{Reason: "runtime ignored the random source override"}
	}
	if toFloat(got[1]) != float64(sentinelMillis) || toFloat(got[2]) != float64(sentinelMillis) {
		return &determinism.ConfigurationError{Reason: "runtime ignored the clock source override"}
	}

	vm.SetRandSource(src.Random)
	vm.SetTimeSource(func() time.Time { return time.UnixMilli(src.NowMillis()) })
	return nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return -1
	}
}

// lookupEntry prefers module.exports (CommonJS style) and falls back to the
// global object (scripts that declare top-level functions).
func lookupEntry(vm *goja.Runtime, module *goja.Object, name string) goja.Value {
	if exp := module.Get("exports"); exp != nil && !goja.IsUndefined(exp) && !goja.IsNull(exp) {
		if v := exp.ToObject(vm).Get(name); v != nil && !goja.IsUndefined(v) {
			return v
		}
	}
	if v := vm.GlobalObject().Get(name); v != nil && !goja.IsUndefined(v) {
		return v
	}
	return nil
}

// interruptOnDone aborts running script when ctx ends. The returned
// function detaches the hook and clears any pending interrupt.
func interruptOnDone(ctx context.Context, vm *goja.Runtime) func() {
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	return func() {
		stop()
		vm.ClearInterrupt()
	}
}

func (s *jsSigner) Sign(ctx context.Context, query, identity string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &InvokeError{Entry: s.entry, Message: "not invoked", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stop := interruptOnDone(ctx, s.vm)
	res, err := s.fn(goja.Undefined(), s.vm.ToValue(query), s.vm.ToValue(identity))
	stop()
	if err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			return "", &InvokeError{Entry: s.entry, Message: "signing routine threw", Err: errors.New(ex.Value().String())}
		}
		return "", &InvokeError{Entry: s.entry, Message: "signing routine failed", Err: err}
	}

	switch v := res.Export().(type) {
	case string:
		return v, nil
	case *goja.Promise:
		return "", &InvokeError{Entry: s.entry, Message: "signing routine returned a Promise; asynchronous results are not supported"}
	case nil:
		return "", &InvokeError{Entry: s.entry, Message: fmt.Sprintf("signing routine returned %s", res.String())}
	default:
		return "", &InvokeError{Entry: s.entry, Message: fmt.Sprintf("signing routine returned %T, want string", v)}
	}
}
