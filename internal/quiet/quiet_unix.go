//go:build unix && !linux

package quiet

import (
	"os"

	"golang.org/x/sys/unix"
)

type scopeState struct {
	saved int
}

func enter() (scopeState, error) {
	saved, err := unix.Dup(1)
	if err != nil {
		return scopeState{}, err
	}

	devnull, err := unix.Open(os.DevNull, unix.O_WRONLY, 0)
	if err != nil {
		_ = unix.Close(saved)
		return scopeState{}, err
	}

	if err := unix.Dup2(devnull, 1); err != nil {
		_ = unix.Close(devnull)
		_ = unix.Close(saved)
		return scopeState{}, err
	}
	_ = unix.Close(devnull)

	return scopeState{saved: saved}, nil
}

func (st scopeState) restore() error {
	err := unix.Dup2(st.saved, 1)
	if cerr := unix.Close(st.saved); err == nil {
		err = cerr
	}
	return err
}
