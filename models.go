package fmgo

import (
	"math"

	"github.com/hupe1980/fmgo/bundle"
	"github.com/hupe1980/fmgo/matrix"
)

// Type ids recorded in bundle manifests, one per public variant.
const (
	TypeLinearClassifier = "linear_classifier"
	TypeLinearRegressor  = "linear_regressor"
	TypeFMClassifier     = "fm_classifier"
	TypeFMRegressor      = "fm_regressor"
	TypeFFMClassifier    = "ffm_classifier"
	TypeFFMRegressor     = "ffm_regressor"
)

const (
	taskBinary     = "binary"
	taskRegression = "reg"
)

// classifier is the binary-classification surface shared by the
// *Classifier variants. Labels arrive as {0, 1} and are remapped to the
// engine's {-1, +1} domain before marshaling.
type classifier struct {
	*Estimator
}

// Fit trains on X with labels y in {0, 1}.
func (c classifier) Fit(X matrix.Matrix, y []float64) error {
	yy, err := remapBinaryLabels(y)
	if err != nil {
		return err
	}
	return c.fit(X, yy, nil, nil)
}

// FitWithValidation trains on X/y and monitors loss on validX/validY,
// enabling early stopping when Params.EarlyStop is set.
func (c classifier) FitWithValidation(X matrix.Matrix, y []float64, validX matrix.Matrix, validY []float64) error {
	yy, err := remapBinaryLabels(y)
	if err != nil {
		return err
	}
	vy, err := remapBinaryLabels(validY)
	if err != nil {
		return err
	}
	return c.fit(X, yy, validX, vy)
}

// DecisionFunction returns the raw margin for each row of X.
func (c classifier) DecisionFunction(X matrix.Matrix) ([]float64, error) {
	return c.decisionFunction(X)
}

// PredictProba returns the probability of the positive class for each row.
func (c classifier) PredictProba(X matrix.Matrix) ([]float64, error) {
	out, err := c.decisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i, v := range out {
		out[i] = 1.0 / (1.0 + math.Exp(-v))
	}
	return out, nil
}

// Predict returns hard {0, 1} labels, thresholding the margin at zero.
func (c classifier) Predict(X matrix.Matrix) ([]float64, error) {
	out, err := c.decisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i, v := range out {
		if v > 0 {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out, nil
}

// Score returns the mean accuracy against labels y in {0, 1}.
func (c classifier) Score(X matrix.Matrix, y []float64) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(y) != len(pred) {
		return 0, invalidArgf("%d labels for %d predictions", len(y), len(pred))
	}
	correct := 0
	for i, p := range pred {
		if p == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(pred)), nil
}

// regressor is the surface shared by the *Regressor variants. Targets
// pass through unmapped.
type regressor struct {
	*Estimator
}

// Fit trains on X with real-valued targets y.
func (r regressor) Fit(X matrix.Matrix, y []float64) error {
	return r.fit(X, y, nil, nil)
}

// FitWithValidation trains on X/y and monitors loss on validX/validY,
// enabling early stopping when Params.EarlyStop is set.
func (r regressor) FitWithValidation(X matrix.Matrix, y []float64, validX matrix.Matrix, validY []float64) error {
	return r.fit(X, y, validX, validY)
}

// Predict returns the predicted target for each row of X.
func (r regressor) Predict(X matrix.Matrix) ([]float64, error) {
	return r.decisionFunction(X)
}

// Score returns the coefficient of determination R² against targets y.
func (r regressor) Score(X matrix.Matrix, y []float64) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	if len(y) != len(pred) {
		return 0, invalidArgf("%d targets for %d predictions", len(y), len(pred))
	}

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot float64
	for i, v := range y {
		d := v - pred[i]
		ssRes += d * d
		m := v - mean
		ssTot += m * m
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

func remapBinaryLabels(y []float64) ([]float64, error) {
	out := make([]float64, len(y))
	for i, v := range y {
		switch v {
		case 0, -1:
			out[i] = -1
		case 1:
			out[i] = 1
		default:
			return nil, invalidArgf("label %v at index %d is not binary", v, i)
		}
	}
	return out, nil
}

// LinearClassifier is a logistic-loss linear model.
type LinearClassifier struct{ classifier }

// NewLinearClassifier creates an unfitted linear classifier.
func NewLinearClassifier(optFns ...Option) *LinearClassifier {
	return &LinearClassifier{classifier{newEstimator(TypeLinearClassifier, "linear", taskBinary, optFns)}}
}

// LinearRegressor is a squared-loss linear model.
type LinearRegressor struct{ regressor }

// NewLinearRegressor creates an unfitted linear regressor.
func NewLinearRegressor(optFns ...Option) *LinearRegressor {
	return &LinearRegressor{regressor{newEstimator(TypeLinearRegressor, "linear", taskRegression, optFns)}}
}

// FMClassifier is a factorization-machine classifier: the linear model
// plus order-2 feature interactions through K latent factors.
type FMClassifier struct{ classifier }

// NewFMClassifier creates an unfitted factorization-machine classifier.
func NewFMClassifier(optFns ...Option) *FMClassifier {
	return &FMClassifier{classifier{newEstimator(TypeFMClassifier, "fm", taskBinary, optFns)}}
}

// FMRegressor is a factorization-machine regressor.
type FMRegressor struct{ regressor }

// NewFMRegressor creates an unfitted factorization-machine regressor.
func NewFMRegressor(optFns ...Option) *FMRegressor {
	return &FMRegressor{regressor{newEstimator(TypeFMRegressor, "fm", taskRegression, optFns)}}
}

// FFMClassifier is a field-aware factorization-machine classifier. Set
// Params.FieldMap (or WithFieldMap) to assign features to fields;
// without a map every feature lands in field 0.
type FFMClassifier struct{ classifier }

// NewFFMClassifier creates an unfitted field-aware classifier.
func NewFFMClassifier(optFns ...Option) *FFMClassifier {
	return &FFMClassifier{classifier{newEstimator(TypeFFMClassifier, "ffm", taskBinary, optFns)}}
}

// FFMRegressor is a field-aware factorization-machine regressor.
type FFMRegressor struct{ regressor }

// NewFFMRegressor creates an unfitted field-aware regressor.
func NewFFMRegressor(optFns ...Option) *FFMRegressor {
	return &FFMRegressor{regressor{newEstimator(TypeFFMRegressor, "ffm", taskRegression, optFns)}}
}

func init() {
	Register(TypeLinearClassifier, func(b *bundle.Bundle, man *Manifest, optFns []Option) (Model, error) {
		est, err := loadEstimator(TypeLinearClassifier, "linear", taskBinary, b, man, optFns)
		if err != nil {
			return nil, err
		}
		return &LinearClassifier{classifier{est}}, nil
	})
	Register(TypeLinearRegressor, func(b *bundle.Bundle, man *Manifest, optFns []Option) (Model, error) {
		est, err := loadEstimator(TypeLinearRegressor, "linear", taskRegression, b, man, optFns)
		if err != nil {
			return nil, err
		}
		return &LinearRegressor{regressor{est}}, nil
	})
	Register(TypeFMClassifier, func(b *bundle.Bundle, man *Manifest, optFns []Option) (Model, error) {
		est, err := loadEstimator(TypeFMClassifier, "fm", taskBinary, b, man, optFns)
		if err != nil {
			return nil, err
		}
		return &FMClassifier{classifier{est}}, nil
	})
	Register(TypeFMRegressor, func(b *bundle.Bundle, man *Manifest, optFns []Option) (Model, error) {
		est, err := loadEstimator(TypeFMRegressor, "fm", taskRegression, b, man, optFns)
		if err != nil {
			return nil, err
		}
		return &FMRegressor{regressor{est}}, nil
	})
	Register(TypeFFMClassifier, func(b *bundle.Bundle, man *Manifest, optFns []Option) (Model, error) {
		est, err := loadEstimator(TypeFFMClassifier, "ffm", taskBinary, b, man, optFns)
		if err != nil {
			return nil, err
		}
		return &FFMClassifier{classifier{est}}, nil
	})
	Register(TypeFFMRegressor, func(b *bundle.Bundle, man *Manifest, optFns []Option) (Model, error) {
		est, err := loadEstimator(TypeFFMRegressor, "ffm", taskRegression, b, man, optFns)
		if err != nil {
			return nil, err
		}
		return &FFMRegressor{regressor{est}}, nil
	})
}
