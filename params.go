package fmgo

import "github.com/hupe1980/fmgo/capi"

// Params holds the training hyperparameters shared by every model variant.
//
// The zero value is not useful; start from DefaultParams. FieldMap is only
// consulted by the field-aware (FFM) variants: entry j is the field id of
// feature column j. All other variants ignore it.
type Params struct {
	// Epoch is the number of training passes over the data.
	Epoch int

	// LearningRate is the SGD step size.
	LearningRate float64

	// Lambda is the L2 regularization strength.
	Lambda float64

	// K is the latent factor dimensionality (FM and FFM only).
	K int

	// Seed drives the deterministic latent-weight initialization.
	Seed int

	// Metric names an additional evaluation metric reported during
	// training ("acc", "rmse", ...). Empty disables it.
	Metric string

	// EarlyStop stops training when the validation loss stops improving.
	// It only has an effect when Fit is given a validation set.
	EarlyStop bool

	// FieldMap maps feature column index to field id for the field-aware
	// variants. Length must equal the number of feature columns.
	FieldMap []int32
}

// DefaultParams returns the engine's default hyperparameters.
func DefaultParams() Params {
	return Params{
		Epoch:        10,
		LearningRate: 0.2,
		Lambda:       0.00002,
		K:            4,
		Seed:         1,
	}
}

// apply pushes the parameter set to a live engine handle. The engine
// validates values itself at fit time; only transport failures surface
// here.
func (p Params) apply(h capi.ModelHandle, task string) error {
	if st := capi.SetParamStr(h, "task", task); st != capi.StatusOK {
		return &NativeError{Op: OpParam, Msg: capi.LastError()}
	}
	for _, kv := range []struct {
		key string
		val int
	}{
		{"epoch", p.Epoch},
		{"k", p.K},
		{"seed", p.Seed},
	} {
		if st := capi.SetParamInt(h, kv.key, kv.val); st != capi.StatusOK {
			return &NativeError{Op: OpParam, Msg: capi.LastError()}
		}
	}
	for _, kv := range []struct {
		key string
		val float64
	}{
		{"lr", p.LearningRate},
		{"lambda", p.Lambda},
	} {
		if st := capi.SetParamFloat(h, kv.key, kv.val); st != capi.StatusOK {
			return &NativeError{Op: OpParam, Msg: capi.LastError()}
		}
	}
	if p.Metric != "" {
		if st := capi.SetParamStr(h, "metric", p.Metric); st != capi.StatusOK {
			return &NativeError{Op: OpParam, Msg: capi.LastError()}
		}
	}
	if st := capi.SetParamBool(h, "early_stop", p.EarlyStop); st != capi.StatusOK {
		return &NativeError{Op: OpParam, Msg: capi.LastError()}
	}
	return nil
}
