package xl

import "fmt"

// FatalError marks the engine's historical abort path. The original core
// terminated the whole process on invalid hyperparameters; this port panics
// with a *FatalError instead, and the adapter converts the panic into a
// recoverable status so a bad call never kills the embedding process.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return e.Msg
}

func fatalf(format string, args ...any) {
	panic(&FatalError{Msg: fmt.Sprintf(format, args...)})
}
