// Package capi is the flat function boundary in front of the embedded
// training core, shaped like the C ABI it replaces: opaque integer handles,
// status-code returns, a last-error side channel and explicit frees.
//
// Rules of the boundary:
//
//   - Every operation returns a Status; on failure the detail is retrieved
//     via LastError, which is cleared at the start of every call.
//   - Handles are owned by exactly one caller at a time and freed exactly
//     once. The adapter does not guarantee idempotent frees; the lifecycle
//     layer above enforces that.
//   - The core's historical process-abort on invalid hyperparameters is
//     intercepted here and converted into a status + message.
//   - All calls are serialized: the execution model is single-threaded and
//     the suppressed stdout stream is a single unshared resource.
//
// Nothing above this package may reach the training core directly.
package capi

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/fmgo/internal/xl"
)

// Status is an adapter return code.
type Status int32

const (
	// StatusOK reports success.
	StatusOK Status = 0
	// StatusError reports failure; see LastError for detail.
	StatusError Status = -1
)

// ModelHandle identifies a live trainer instance. The zero value is never
// a valid handle.
type ModelHandle uint64

// MatrixHandle identifies a constructed data matrix. The zero value is
// never a valid handle.
type MatrixHandle uint64

// state is the adapter's single registry. One mutex serializes every call,
// which also guarantees suppression scopes never overlap.
var state = struct {
	mu       sync.Mutex
	lastErr  string
	nextID   uint64
	models   map[ModelHandle]*xl.Engine
	matrices map[MatrixHandle]*xl.DMatrix
	live     *roaring64.Bitmap
}{
	nextID:   1,
	models:   make(map[ModelHandle]*xl.Engine),
	matrices: make(map[MatrixHandle]*xl.DMatrix),
	live:     roaring64.New(),
}

// setErrorf records the failure message for LastError. Caller holds the lock.
func setErrorf(format string, args ...any) {
	state.lastErr = fmt.Sprintf(format, args...)
}

// begin clears the previous call's failure message. Caller holds the lock.
func begin() {
	state.lastErr = ""
}

func allocID() uint64 {
	id := state.nextID
	state.nextID++
	state.live.Add(id)
	return id
}

// LastError returns the most recent failure message. It is cleared at the
// start of every adapter call, not by reading it.
func LastError() string {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.lastErr
}

// OutstandingHandles reports the number of live model and matrix handles.
// Leak checks count these before and after an operation.
func OutstandingHandles() uint64 {
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.live.GetCardinality()
}

// intercept runs fn and converts the core's abort panic into an error.
// Any other panic is a genuine bug and is re-raised.
func intercept(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fe, ok := r.(*xl.FatalError)
			if !ok {
				panic(r)
			}
			err = fe
		}
	}()
	return fn()
}
