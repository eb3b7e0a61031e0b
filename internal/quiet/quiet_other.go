//go:build !unix

package quiet

import "os"

// Without descriptor-level dup we can only intercept writes that go through
// os.Stdout, which is the engine's sole output path in this port.

type scopeState struct {
	saved   *os.File
	devnull *os.File
}

func enter() (scopeState, error) {
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return scopeState{}, err
	}

	st := scopeState{saved: os.Stdout, devnull: devnull}
	os.Stdout = devnull
	return st, nil
}

func (st scopeState) restore() error {
	os.Stdout = st.saved
	return st.devnull.Close()
}
