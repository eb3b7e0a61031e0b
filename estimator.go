package fmgo

import (
	"context"
	"runtime"

	"github.com/hupe1980/fmgo/bundlestore"
	"github.com/hupe1980/fmgo/capi"
	"github.com/hupe1980/fmgo/matrix"
)

type lifecycleState uint8

const (
	stateUnfitted lifecycleState = iota
	stateFitted
	stateDisposed
)

// reclaimInfo is what the garbage-collector safety net needs to release a
// leaked engine handle. It must not reference the Estimator itself, or the
// cleanup would keep it alive.
type reclaimInfo struct {
	handle capi.ModelHandle
	logger *Logger
}

// Estimator owns one engine model instance and walks it through the
// Unfitted → Fitted → Disposed lifecycle. It is the common core of the six
// public model variants and is not safe for concurrent use.
//
// Every fitted Estimator holds exactly one engine handle. Dispose releases
// it and is idempotent; all other operations fail after Dispose. An
// Estimator that becomes unreachable without Dispose has its handle freed
// by a garbage-collector cleanup as a last resort, with a logged warning —
// correct programs call Dispose and never rely on this.
type Estimator struct {
	typeID    string // registry id of the public variant
	modelType string // "linear", "fm" or "ffm"
	task      string // "binary" or "reg"
	params    Params
	logger    *Logger

	state       lifecycleState
	handle      capi.ModelHandle
	hasHandle   bool
	cleanup     runtime.Cleanup
	modelBytes  []byte
	numFeatures int
}

func newEstimator(typeID, modelType, task string, optFns []Option) *Estimator {
	o := applyOptions(optFns)
	return &Estimator{
		typeID:    typeID,
		modelType: modelType,
		task:      task,
		params:    o.params,
		logger:    o.logger.WithModel(typeID),
	}
}

// Params returns the current hyperparameters.
func (e *Estimator) Params() Params {
	return e.params
}

// SetParams replaces the hyperparameters. The new values take effect on
// the next Fit; an already-fitted model keeps predicting with the
// parameters it was trained under.
func (e *Estimator) SetParams(p Params) error {
	if e.state == stateDisposed {
		return ErrDisposed
	}
	e.params = p
	return nil
}

// IsFitted reports whether the model has been trained.
func (e *Estimator) IsFitted() bool {
	return e.state == stateFitted
}

// NumFeatures returns the feature-column count seen at fit time, or 0
// before the first fit.
func (e *Estimator) NumFeatures() int {
	return e.numFeatures
}

// fit trains the model. y carries engine-domain labels (±1 for binary,
// raw targets for regression); the public variants remap before calling.
// validX/validY are optional and must both be set or both nil.
func (e *Estimator) fit(X matrix.Matrix, y []float64, validX matrix.Matrix, validY []float64) error {
	if e.state == stateDisposed {
		return ErrDisposed
	}
	if err := e.checkTrainingInput(X, y); err != nil {
		return err
	}
	if validX != nil {
		if err := e.checkTrainingInput(validX, validY); err != nil {
			return err
		}
	}

	rows, cols := X.Dims()
	refit := e.state == stateFitted

	// On refit the old handle goes first. Holding two live handles for
	// the same instance, even transiently, is what the lifecycle exists
	// to prevent. The old trained state is gone from here on: any failure
	// below leaves the estimator Unfitted, never Fitted without a handle.
	e.freeHandle()

	h, st := capi.Create(e.modelType)
	if st != capi.StatusOK {
		err := &NativeError{Op: OpCreate, Msg: capi.LastError()}
		e.abortFit()
		e.logger.LogFit(context.Background(), rows, cols, refit, err)
		return err
	}
	if err := e.params.apply(h, e.task); err != nil {
		capi.FreeHandle(h)
		e.abortFit()
		e.logger.LogFit(context.Background(), rows, cols, refit, err)
		return err
	}

	trainH, err := e.makeMatrix(X, y)
	if err != nil {
		capi.FreeHandle(h)
		e.abortFit()
		e.logger.LogFit(context.Background(), rows, cols, refit, err)
		return err
	}
	defer capi.FreeMatrix(trainH)

	var validH capi.MatrixHandle
	if validX != nil {
		validH, err = e.makeMatrix(validX, validY)
		if err != nil {
			capi.FreeHandle(h)
			e.abortFit()
			e.logger.LogFit(context.Background(), rows, cols, refit, err)
			return err
		}
		defer capi.FreeMatrix(validH)
	}

	data, st := capi.Fit(h, trainH, validH)
	if st != capi.StatusOK {
		capi.FreeHandle(h)
		err := &NativeError{Op: OpFit, Msg: capi.LastError()}
		e.abortFit()
		e.logger.LogFit(context.Background(), rows, cols, refit, err)
		return err
	}

	e.adoptHandle(h)
	e.modelBytes = data
	e.numFeatures = cols
	e.state = stateFitted
	e.logger.LogFit(context.Background(), rows, cols, refit, nil)
	return nil
}

// decisionFunction returns the raw engine scores for X.
func (e *Estimator) decisionFunction(X matrix.Matrix) ([]float64, error) {
	switch e.state {
	case stateDisposed:
		return nil, ErrDisposed
	case stateUnfitted:
		return nil, ErrNotFitted
	}
	if X == nil {
		return nil, invalidArgf("matrix is nil")
	}
	if err := X.Validate(); err != nil {
		return nil, &ErrInvalidArgument{Reason: err.Error(), cause: err}
	}
	rows, cols := X.Dims()
	if cols != e.numFeatures {
		return nil, invalidArgf("matrix has %d columns, model was fitted on %d", cols, e.numFeatures)
	}

	testH, err := e.makeMatrix(X, nil)
	if err != nil {
		e.logger.LogPredict(context.Background(), rows, err)
		return nil, err
	}
	defer capi.FreeMatrix(testH)

	out, st := capi.Predict(e.handle, e.modelBytes, testH)
	if st != capi.StatusOK {
		err := &NativeError{Op: OpPredict, Msg: capi.LastError()}
		e.logger.LogPredict(context.Background(), rows, err)
		return nil, err
	}
	e.logger.LogPredict(context.Background(), rows, nil)
	return out, nil
}

// Save serializes the fitted model into a bundle. The "model" artifact is
// always present; field-aware models with a field map additionally carry a
// "field_map" artifact.
func (e *Estimator) Save() ([]byte, error) {
	switch e.state {
	case stateDisposed:
		return nil, ErrDisposed
	case stateUnfitted:
		return nil, ErrNotFitted
	}
	return encodeBundle(e)
}

// SaveTo saves the fitted model bundle to a bundle store.
func (e *Estimator) SaveTo(ctx context.Context, store bundlestore.Store, name string) error {
	data, err := e.Save()
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// Dispose releases the engine handle and drops the trained artifact.
// Calling it multiple times is safe; every other operation fails with
// ErrDisposed afterwards.
func (e *Estimator) Dispose() error {
	if e.state == stateDisposed {
		return nil
	}
	hadHandle := e.hasHandle
	e.freeHandle()
	e.modelBytes = nil
	e.state = stateDisposed
	e.logger.LogDispose(context.Background(), hadHandle)
	return nil
}

func (e *Estimator) checkTrainingInput(X matrix.Matrix, y []float64) error {
	if X == nil {
		return invalidArgf("matrix is nil")
	}
	if err := X.Validate(); err != nil {
		return &ErrInvalidArgument{Reason: err.Error(), cause: err}
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return invalidArgf("matrix has no rows")
	}
	if len(y) != rows {
		return invalidArgf("%d labels for %d rows", len(y), rows)
	}
	if e.fieldAware() && e.params.FieldMap != nil && len(e.params.FieldMap) != cols {
		return invalidArgf("field map has %d entries for %d feature columns", len(e.params.FieldMap), cols)
	}
	return nil
}

func (e *Estimator) fieldAware() bool {
	return e.modelType == "ffm"
}

// makeMatrix builds an engine matrix from X. y may be nil for prediction
// input. Only field-aware models forward the field map.
func (e *Estimator) makeMatrix(X matrix.Matrix, y []float64) (capi.MatrixHandle, error) {
	var fieldMap []int32
	if e.fieldAware() {
		fieldMap = e.params.FieldMap
	}

	var (
		h  capi.MatrixHandle
		st capi.Status
	)
	switch m := X.(type) {
	case *matrix.Dense:
		h, st = capi.CreateDenseMatrix(m.Data, m.Rows, m.Cols, y, fieldMap)
	case *matrix.CSR:
		h, st = capi.CreateCSRMatrix(m.Values, m.ColIndices, m.RowPtr, m.Rows, m.Cols, y, fieldMap)
	default:
		return 0, invalidArgf("unsupported matrix type %T", X)
	}
	if st != capi.StatusOK {
		return 0, &NativeError{Op: OpAlloc, Msg: capi.LastError()}
	}
	return h, nil
}

// adoptHandle takes ownership of h and arms the leak safety net.
func (e *Estimator) adoptHandle(h capi.ModelHandle) {
	e.handle = h
	e.hasHandle = true
	e.cleanup = runtime.AddCleanup(e, func(ri reclaimInfo) {
		capi.FreeHandle(ri.handle)
		ri.logger.LogLeakReclaim(uint64(ri.handle))
	}, reclaimInfo{handle: h, logger: e.logger})
}

// abortFit resets a fit that failed after the previous handle was
// released. The estimator returns to Unfitted: IsFitted must never report
// true while no engine handle backs it.
func (e *Estimator) abortFit() {
	e.modelBytes = nil
	e.numFeatures = 0
	e.state = stateUnfitted
}

// freeHandle releases the current handle, if any, exactly once.
func (e *Estimator) freeHandle() {
	if !e.hasHandle {
		return
	}
	e.cleanup.Stop()
	capi.FreeHandle(e.handle)
	e.handle = 0
	e.hasHandle = false
}
