// Package quiet suppresses the training core's standard output for the
// duration of a call.
//
// The engine emits banners and per-epoch progress unconditionally; those
// lines must never reach the embedding application's own output. A Scope
// redirects process stdout to the null device and restores it on Close.
//
// The redirected descriptor is global process state: scopes must be strictly
// nested and never overlap. The adapter guarantees this by serializing all
// engine calls.
package quiet

// Scope is an active stdout redirection. Close restores the original
// stream; it is safe to call more than once.
type Scope struct {
	closed bool
	state  scopeState
}

// Enter redirects stdout to the null device.
func Enter() (*Scope, error) {
	st, err := enter()
	if err != nil {
		return nil, err
	}
	return &Scope{state: st}, nil
}

// Close restores the original stdout. It must run on every exit path,
// success or failure.
func (s *Scope) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.state.restore()
}
