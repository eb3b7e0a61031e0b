package capi

import (
	"os"

	"github.com/google/uuid"

	"github.com/hupe1980/fmgo/internal/memfs"
	"github.com/hupe1980/fmgo/internal/quiet"
	"github.com/hupe1980/fmgo/internal/xl"
)

// Create allocates a trainer for modelType ("linear", "fm" or "ffm") and
// applies the embedding-safe defaults: quiet logging, a single thread, no
// early stopping and no disk output. The returned handle must be released
// with FreeHandle.
func Create(modelType string) (ModelHandle, Status) {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	if modelType == "" {
		setErrorf("create: empty model type")
		return 0, StatusError
	}

	e, err := xl.New(modelType)
	if err != nil {
		setErrorf("create: %v", err)
		return 0, StatusError
	}

	for _, p := range []struct {
		key string
		val bool
	}{
		{"quiet", true},
		{"lock_free", false},
		{"from_file", false},
		{"bin_out", false},
		{"early_stop", false},
	} {
		if err := e.SetBool(p.key, p.val); err != nil {
			setErrorf("create: %v", err)
			return 0, StatusError
		}
	}
	if err := e.SetInt("nthread", 1); err != nil {
		setErrorf("create: %v", err)
		return 0, StatusError
	}
	if err := e.SetStr("log", os.DevNull); err != nil {
		setErrorf("create: %v", err)
		return 0, StatusError
	}

	h := ModelHandle(allocID())
	state.models[h] = e
	return h, StatusOK
}

// FreeHandle releases a trainer. Like the boundary it replaces, it makes
// no idempotence promise: callers must not free the same handle twice.
func FreeHandle(h ModelHandle) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, ok := state.models[h]; ok {
		delete(state.models, h)
		state.live.Remove(uint64(h))
	}
}

// SetParamStr sets a string hyperparameter.
func SetParamStr(h ModelHandle, key, value string) Status {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	e, ok := state.models[h]
	if !ok {
		setErrorf("set_str: invalid model handle")
		return StatusError
	}
	if err := e.SetStr(key, value); err != nil {
		setErrorf("set_str: %v", err)
		return StatusError
	}
	return StatusOK
}

// SetParamInt sets an integer hyperparameter.
func SetParamInt(h ModelHandle, key string, value int) Status {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	e, ok := state.models[h]
	if !ok {
		setErrorf("set_int: invalid model handle")
		return StatusError
	}
	if err := e.SetInt(key, value); err != nil {
		setErrorf("set_int: %v", err)
		return StatusError
	}
	return StatusOK
}

// SetParamFloat sets a float hyperparameter.
func SetParamFloat(h ModelHandle, key string, value float64) Status {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	e, ok := state.models[h]
	if !ok {
		setErrorf("set_float: invalid model handle")
		return StatusError
	}
	if err := e.SetFloat(key, value); err != nil {
		setErrorf("set_float: %v", err)
		return StatusError
	}
	return StatusOK
}

// SetParamBool sets a boolean hyperparameter.
func SetParamBool(h ModelHandle, key string, value bool) Status {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	e, ok := state.models[h]
	if !ok {
		setErrorf("set_bool: invalid model handle")
		return StatusError
	}
	if err := e.SetBool(key, value); err != nil {
		setErrorf("set_bool: %v", err)
		return StatusError
	}
	return StatusOK
}

// Fit trains the model on the train matrix (validated against the optional
// valid matrix, pass 0 for none) and returns the serialized artifact.
//
// The trained state travels through a uniquely named in-memory staging
// entry, because the core only knows how to persist by name. The entry is
// removed on every exit path. The returned bytes are caller-owned.
func Fit(h ModelHandle, train, valid MatrixHandle) ([]byte, Status) {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	e, ok := state.models[h]
	if !ok {
		setErrorf("fit: invalid model handle")
		return nil, StatusError
	}
	trainM, ok := state.matrices[train]
	if !ok {
		setErrorf("fit: invalid train matrix handle")
		return nil, StatusError
	}
	if !trainM.HasLabel {
		setErrorf("fit: train matrix has no label")
		return nil, StatusError
	}
	e.SetTrain(trainM)

	if valid != 0 {
		validM, ok := state.matrices[valid]
		if !ok {
			setErrorf("fit: invalid valid matrix handle")
			return nil, StatusError
		}
		e.SetValid(validM)
	} else {
		e.SetValid(nil)
	}

	store := memfs.Default()
	path := "/tmp/fmgo_model_" + uuid.NewString()
	defer store.Remove(path)

	sc, err := quiet.Enter()
	if err != nil {
		setErrorf("fit: suppress output: %v", err)
		return nil, StatusError
	}
	err = intercept(func() error { return e.Fit(store, path) })
	if cerr := sc.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		setErrorf("fit: %v", err)
		return nil, StatusError
	}

	data, err := store.ReadFile(path)
	if err != nil {
		setErrorf("fit: read staged model: %v", err)
		return nil, StatusError
	}
	return data, StatusOK
}

// Predict stages modelBytes under a unique name, loads them for scoring
// and returns predictions for the test matrix, widened back to float64.
//
// The result is always a fresh caller-owned slice: the core's own
// prediction buffer is reused by its next call.
func Predict(h ModelHandle, modelBytes []byte, test MatrixHandle) ([]float64, Status) {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	e, ok := state.models[h]
	if !ok {
		setErrorf("predict: invalid model handle")
		return nil, StatusError
	}
	if len(modelBytes) == 0 {
		setErrorf("predict: empty model bytes")
		return nil, StatusError
	}
	testM, ok := state.matrices[test]
	if !ok {
		setErrorf("predict: invalid test matrix handle")
		return nil, StatusError
	}
	e.SetTest(testM)

	store := memfs.Default()
	path := "/tmp/fmgo_pred_" + uuid.NewString()
	store.WriteFile(path, modelBytes)
	defer store.Remove(path)

	sc, err := quiet.Enter()
	if err != nil {
		setErrorf("predict: suppress output: %v", err)
		return nil, StatusError
	}
	var raw []float32
	err = intercept(func() error {
		var perr error
		raw, perr = e.PredictForMat(store, path)
		return perr
	})
	if cerr := sc.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		setErrorf("predict: %v", err)
		return nil, StatusError
	}

	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, StatusOK
}
