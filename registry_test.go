package fmgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fmgo/bundle"
	"github.com/hupe1980/fmgo/matrix"
)

func TestLoadDispatchesAllVariants(t *testing.T) {
	X, err := matrix.FromRows([][]float64{
		{1, 0},
		{0, 1},
		{1, 1},
		{0, 0},
	})
	require.NoError(t, err)
	binY := []float64{1, 0, 1, 0}
	regY := []float64{1.5, 0.5, 2.0, 0.0}

	tests := []struct {
		name string
		fit  func(t *testing.T) Model
		is   func(m Model) bool
	}{
		{
			name: "LinearClassifier",
			fit: func(t *testing.T) Model {
				c := NewLinearClassifier()
				require.NoError(t, c.Fit(X, binY))
				return c
			},
			is: func(m Model) bool { _, ok := m.(*LinearClassifier); return ok },
		},
		{
			name: "LinearRegressor",
			fit: func(t *testing.T) Model {
				r := NewLinearRegressor()
				require.NoError(t, r.Fit(X, regY))
				return r
			},
			is: func(m Model) bool { _, ok := m.(*LinearRegressor); return ok },
		},
		{
			name: "FMClassifier",
			fit: func(t *testing.T) Model {
				c := NewFMClassifier()
				require.NoError(t, c.Fit(X, binY))
				return c
			},
			is: func(m Model) bool { _, ok := m.(*FMClassifier); return ok },
		},
		{
			name: "FMRegressor",
			fit: func(t *testing.T) Model {
				r := NewFMRegressor()
				require.NoError(t, r.Fit(X, regY))
				return r
			},
			is: func(m Model) bool { _, ok := m.(*FMRegressor); return ok },
		},
		{
			name: "FFMClassifier",
			fit: func(t *testing.T) Model {
				c := NewFFMClassifier(WithFieldMap([]int32{0, 1}))
				require.NoError(t, c.Fit(X, binY))
				return c
			},
			is: func(m Model) bool { _, ok := m.(*FFMClassifier); return ok },
		},
		{
			name: "FFMRegressor",
			fit: func(t *testing.T) Model {
				r := NewFFMRegressor()
				require.NoError(t, r.Fit(X, regY))
				return r
			},
			is: func(m Model) bool { _, ok := m.(*FFMRegressor); return ok },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := tt.fit(t)
			defer func() { _ = orig.Dispose() }()

			data, err := orig.Save()
			require.NoError(t, err)

			m, err := Load(data)
			require.NoError(t, err)
			defer func() { _ = m.Dispose() }()

			assert.True(t, tt.is(m))
			assert.True(t, m.IsFitted())
		})
	}
}

func TestLoadUnknownType(t *testing.T) {
	data, err := bundle.Encode(Manifest{TypeID: "no_such_model"}, []bundle.Artifact{
		{ID: "model", Data: []byte{1}},
	})
	require.NoError(t, err)

	_, err = Load(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no loader registered")
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(TypeFMClassifier, nil)
	})
}
