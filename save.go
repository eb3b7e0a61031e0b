package fmgo

import (
	"context"
	"encoding/binary"

	"github.com/hupe1980/fmgo/bundle"
	"github.com/hupe1980/fmgo/bundlestore"
	"github.com/hupe1980/fmgo/capi"
)

// Artifact ids inside a saved bundle.
const (
	artifactModel    = "model"
	artifactFieldMap = "field_map"
)

// Manifest describes a saved model bundle. It records the variant type id
// so Load can dispatch without the caller naming a concrete type, plus the
// hyperparameters the model was trained under.
type Manifest struct {
	TypeID       string  `json:"type_id"`
	NumFeatures  int     `json:"num_features"`
	Epoch        int     `json:"epoch"`
	LearningRate float64 `json:"learning_rate"`
	Lambda       float64 `json:"lambda"`
	K            int     `json:"k"`
	Seed         int     `json:"seed"`
	Metric       string  `json:"metric,omitempty"`
	EarlyStop    bool    `json:"early_stop,omitempty"`
}

func manifestFor(typeID string, e *Estimator) Manifest {
	return Manifest{
		TypeID:       typeID,
		NumFeatures:  e.numFeatures,
		Epoch:        e.params.Epoch,
		LearningRate: e.params.LearningRate,
		Lambda:       e.params.Lambda,
		K:            e.params.K,
		Seed:         e.params.Seed,
		Metric:       e.params.Metric,
		EarlyStop:    e.params.EarlyStop,
	}
}

func (m Manifest) params() Params {
	return Params{
		Epoch:        m.Epoch,
		LearningRate: m.LearningRate,
		Lambda:       m.Lambda,
		K:            m.K,
		Seed:         m.Seed,
		Metric:       m.Metric,
		EarlyStop:    m.EarlyStop,
	}
}

// encodeBundle packs a fitted estimator. The model artifact is always
// written; the field map rides along only for field-aware models that
// actually have one.
func encodeBundle(e *Estimator) ([]byte, error) {
	artifacts := []bundle.Artifact{
		{ID: artifactModel, Data: e.modelBytes},
	}
	if e.fieldAware() && e.params.FieldMap != nil {
		artifacts = append(artifacts, bundle.Artifact{
			ID:   artifactFieldMap,
			Data: encodeFieldMap(e.params.FieldMap),
		})
	}
	return bundle.Encode(manifestFor(e.typeID, e), artifacts)
}

func encodeFieldMap(fieldMap []int32) []byte {
	out := make([]byte, 4*len(fieldMap))
	for i, f := range fieldMap {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(f))
	}
	return out
}

func decodeFieldMap(data []byte) []int32 {
	out := make([]int32, len(data)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return out
}

// loadEstimator rebuilds a fitted estimator from a decoded bundle: trained
// bytes from the model artifact, hyperparameters from the manifest, and a
// fresh engine handle so prediction can run immediately.
func loadEstimator(typeID, modelType, task string, b *bundle.Bundle, man *Manifest, optFns []Option) (*Estimator, error) {
	e := newEstimator(typeID, modelType, task, optFns)
	e.params = man.params()

	data, err := b.Artifact(artifactModel)
	if err != nil {
		return nil, err
	}
	if b.Has(artifactFieldMap) {
		raw, err := b.Artifact(artifactFieldMap)
		if err != nil {
			return nil, err
		}
		e.params.FieldMap = decodeFieldMap(raw)
	}

	h, st := capi.Create(modelType)
	if st != capi.StatusOK {
		return nil, &NativeError{Op: OpCreate, Msg: capi.LastError()}
	}
	if err := e.params.apply(h, task); err != nil {
		capi.FreeHandle(h)
		return nil, err
	}

	e.adoptHandle(h)
	e.modelBytes = data
	e.numFeatures = man.NumFeatures
	e.state = stateFitted
	return e, nil
}

// LoadFrom fetches a bundle from a bundle store and loads it.
func LoadFrom(ctx context.Context, store bundlestore.Store, name string, optFns ...Option) (Model, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return Load(data, optFns...)
}
