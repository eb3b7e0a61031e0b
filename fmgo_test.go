package fmgo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fmgo/bundle"
	"github.com/hupe1980/fmgo/bundlestore"
	"github.com/hupe1980/fmgo/capi"
	"github.com/hupe1980/fmgo/matrix"
)

func trainingData(t *testing.T) (*matrix.Dense, []float64) {
	t.Helper()
	X, err := matrix.FromRows([][]float64{
		{1, 0},
		{0, 1},
		{1, 1},
		{0, 0},
	})
	require.NoError(t, err)
	return X, []float64{1, 0, 1, 0}
}

func TestDisposeIdempotent(t *testing.T) {
	clf := NewFMClassifier()

	X, y := trainingData(t)
	require.NoError(t, clf.Fit(X, y))

	require.NoError(t, clf.Dispose())
	require.NoError(t, clf.Dispose())
	require.NoError(t, clf.Dispose())
}

func TestStateGating(t *testing.T) {
	X, y := trainingData(t)

	t.Run("Unfitted", func(t *testing.T) {
		clf := NewFMClassifier()
		defer func() { _ = clf.Dispose() }()

		_, err := clf.Predict(X)
		assert.ErrorIs(t, err, ErrNotFitted)

		_, err = clf.PredictProba(X)
		assert.ErrorIs(t, err, ErrNotFitted)

		_, err = clf.DecisionFunction(X)
		assert.ErrorIs(t, err, ErrNotFitted)

		_, err = clf.Score(X, y)
		assert.ErrorIs(t, err, ErrNotFitted)

		_, err = clf.Save()
		assert.ErrorIs(t, err, ErrNotFitted)
	})

	t.Run("Disposed", func(t *testing.T) {
		clf := NewFMClassifier()
		require.NoError(t, clf.Fit(X, y))
		require.NoError(t, clf.Dispose())

		assert.ErrorIs(t, clf.Fit(X, y), ErrDisposed)

		_, err := clf.Predict(X)
		assert.ErrorIs(t, err, ErrDisposed)

		_, err = clf.Save()
		assert.ErrorIs(t, err, ErrDisposed)

		assert.ErrorIs(t, clf.SetParams(DefaultParams()), ErrDisposed)
	})
}

func TestFitValidation(t *testing.T) {
	clf := NewLinearClassifier()
	defer func() { _ = clf.Dispose() }()

	X, _ := trainingData(t)

	assert.Error(t, clf.Fit(nil, []float64{1}))

	var inval *ErrInvalidArgument
	err := clf.Fit(X, []float64{1, 0}) // label count mismatch
	require.ErrorAs(t, err, &inval)

	err = clf.Fit(X, []float64{1, 0, 2, 0}) // non-binary label
	require.ErrorAs(t, err, &inval)
}

func TestFieldMapLengthChecked(t *testing.T) {
	clf := NewFFMClassifier(WithFieldMap([]int32{0, 1, 2}))
	defer func() { _ = clf.Dispose() }()

	X, y := trainingData(t) // 2 columns, map has 3 entries
	var inval *ErrInvalidArgument
	require.ErrorAs(t, clf.Fit(X, y), &inval)
}

func TestBadHyperparametersAreRecoverable(t *testing.T) {
	before := capi.OutstandingHandles()

	p := DefaultParams()
	p.Epoch = -3

	clf := NewFMClassifier(WithParams(p))
	defer func() { _ = clf.Dispose() }()

	X, y := trainingData(t)
	err := clf.Fit(X, y)
	require.Error(t, err)
	assert.True(t, IsNativeError(err, OpFit))
	assert.False(t, clf.IsFitted())

	// The failed fit released everything it allocated.
	assert.Equal(t, before, capi.OutstandingHandles())
}

func TestRefitDoesNotLeakHandles(t *testing.T) {
	before := capi.OutstandingHandles()

	clf := NewFMClassifier()
	X, y := trainingData(t)
	require.NoError(t, clf.Fit(X, y))
	assert.Equal(t, before+1, capi.OutstandingHandles())

	// Refit on different data: old handle freed before the new one is
	// created, net count stays at one.
	X2, err := matrix.FromRows([][]float64{
		{2, 1},
		{1, 2},
		{0, 3},
		{3, 0},
	})
	require.NoError(t, err)
	y2 := []float64{0, 1, 1, 0}
	require.NoError(t, clf.Fit(X2, y2))
	assert.Equal(t, before+1, capi.OutstandingHandles())

	// The refit model behaves exactly like a fresh model trained only on
	// the second dataset (training is deterministic under a fixed seed).
	refitScores, err := clf.DecisionFunction(X2)
	require.NoError(t, err)

	fresh := NewFMClassifier()
	require.NoError(t, fresh.Fit(X2, y2))
	freshScores, err := fresh.DecisionFunction(X2)
	require.NoError(t, err)
	assert.Equal(t, freshScores, refitScores)

	require.NoError(t, clf.Dispose())
	require.NoError(t, fresh.Dispose())
	assert.Equal(t, before, capi.OutstandingHandles())
}

func TestFailedRefitLeavesUnfitted(t *testing.T) {
	before := capi.OutstandingHandles()

	clf := NewFMClassifier()
	defer func() { _ = clf.Dispose() }()

	X, y := trainingData(t)
	require.NoError(t, clf.Fit(X, y))
	require.True(t, clf.IsFitted())

	// The refit releases the old handle before training starts, so a
	// failure must drop the estimator back to unfitted rather than
	// leaving it claiming a model it no longer holds.
	bad := DefaultParams()
	bad.Epoch = -3
	require.NoError(t, clf.SetParams(bad))

	err := clf.Fit(X, y)
	require.Error(t, err)
	assert.True(t, IsNativeError(err, OpFit))
	assert.False(t, clf.IsFitted())

	_, err = clf.DecisionFunction(X)
	assert.ErrorIs(t, err, ErrNotFitted)

	// Nothing leaked across the failed refit.
	assert.Equal(t, before, capi.OutstandingHandles())

	// The estimator is still usable: restore sane hyperparameters and
	// fit again.
	require.NoError(t, clf.SetParams(DefaultParams()))
	require.NoError(t, clf.Fit(X, y))
	assert.True(t, clf.IsFitted())
	assert.Equal(t, before+1, capi.OutstandingHandles())
}

func TestRoundTrip(t *testing.T) {
	X, y := trainingData(t)

	clf := NewFMClassifier()
	defer func() { _ = clf.Dispose() }()
	require.NoError(t, clf.Fit(X, y))

	want, err := clf.DecisionFunction(X)
	require.NoError(t, err)

	data, err := clf.Save()
	require.NoError(t, err)

	m, err := Load(data)
	require.NoError(t, err)
	defer func() { _ = m.Dispose() }()

	loaded, ok := m.(*FMClassifier)
	require.True(t, ok)
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, 2, loaded.NumFeatures())

	got, err := loaded.DecisionFunction(X)
	require.NoError(t, err)
	assert.Equal(t, want, got) // bit-for-bit
}

func TestClassifierOutputs(t *testing.T) {
	X, y := trainingData(t)

	clf := NewLinearClassifier()
	defer func() { _ = clf.Dispose() }()
	require.NoError(t, clf.Fit(X, y))

	pred, err := clf.Predict(X)
	require.NoError(t, err)
	for _, p := range pred {
		assert.Contains(t, []float64{0, 1}, p)
	}

	probs, err := clf.PredictProba(X)
	require.NoError(t, err)
	for _, p := range probs {
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}

	acc, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.0)
	assert.LessOrEqual(t, acc, 1.0)
}

func TestRegressorOutputs(t *testing.T) {
	X, _ := trainingData(t)
	y := []float64{2.0, 0.5, 2.5, 0.0}

	reg := NewFMRegressor()
	defer func() { _ = reg.Dispose() }()
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(X)
	require.NoError(t, err)
	require.Len(t, pred, 4)

	r2, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.LessOrEqual(t, r2, 1.0)
}

func TestPredictColumnMismatch(t *testing.T) {
	X, y := trainingData(t)

	clf := NewLinearClassifier()
	defer func() { _ = clf.Dispose() }()
	require.NoError(t, clf.Fit(X, y))

	wide, err := matrix.FromRows([][]float64{{1, 2, 3}})
	require.NoError(t, err)

	var inval *ErrInvalidArgument
	_, perr := clf.Predict(wide)
	require.ErrorAs(t, perr, &inval)
}

func TestFieldMapArtifactPresence(t *testing.T) {
	X, y := trainingData(t)

	artifactIDs := func(t *testing.T, data []byte) []string {
		t.Helper()
		b, err := bundle.Decode(data)
		require.NoError(t, err)
		ids := make([]string, 0, len(b.TOC))
		for _, e := range b.TOC {
			ids = append(ids, e.ID)
		}
		return ids
	}

	t.Run("FFMWithMap", func(t *testing.T) {
		clf := NewFFMClassifier(WithFieldMap([]int32{0, 1}))
		defer func() { _ = clf.Dispose() }()
		require.NoError(t, clf.Fit(X, y))

		data, err := clf.Save()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"model", "field_map"}, artifactIDs(t, data))
	})

	t.Run("FFMWithoutMap", func(t *testing.T) {
		clf := NewFFMClassifier()
		defer func() { _ = clf.Dispose() }()
		require.NoError(t, clf.Fit(X, y))

		data, err := clf.Save()
		require.NoError(t, err)
		assert.Equal(t, []string{"model"}, artifactIDs(t, data))
	})

	t.Run("FMIgnoresMap", func(t *testing.T) {
		clf := NewFMClassifier(WithFieldMap([]int32{0, 1}))
		defer func() { _ = clf.Dispose() }()
		require.NoError(t, clf.Fit(X, y))

		data, err := clf.Save()
		require.NoError(t, err)
		assert.Equal(t, []string{"model"}, artifactIDs(t, data))
	})
}

func TestFieldMapRoundTrip(t *testing.T) {
	X, y := trainingData(t)

	clf := NewFFMClassifier(WithFieldMap([]int32{0, 1}))
	defer func() { _ = clf.Dispose() }()
	require.NoError(t, clf.Fit(X, y))

	data, err := clf.Save()
	require.NoError(t, err)

	m, err := Load(data)
	require.NoError(t, err)
	defer func() { _ = m.Dispose() }()

	loaded, ok := m.(*FFMClassifier)
	require.True(t, ok)
	assert.Equal(t, []int32{0, 1}, loaded.Params().FieldMap)

	want, err := clf.DecisionFunction(X)
	require.NoError(t, err)
	got, err := loaded.DecisionFunction(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveToLoadFrom(t *testing.T) {
	ctx := context.Background()
	store := bundlestore.NewMemoryStore()

	X, y := trainingData(t)
	clf := NewFMClassifier()
	defer func() { _ = clf.Dispose() }()
	require.NoError(t, clf.Fit(X, y))
	require.NoError(t, clf.SaveTo(ctx, store, "model.bundle"))

	m, err := LoadFrom(ctx, store, "model.bundle")
	require.NoError(t, err)
	defer func() { _ = m.Dispose() }()

	_, ok := m.(*FMClassifier)
	assert.True(t, ok)

	_, err = LoadFrom(ctx, store, "missing.bundle")
	assert.ErrorIs(t, err, bundlestore.ErrNotFound)
}
