// Package fmgo provides linear, factorization-machine (FM) and field-aware
// factorization-machine (FFM) models for classification and regression,
// with a strict resource lifecycle around the embedded training engine.
//
// # Quick Start
//
//	X, _ := matrix.FromRows([][]float64{{1, 0}, {0, 1}, {1, 1}, {0, 0}})
//	y := []float64{1, 0, 1, 0}
//
//	clf := fmgo.NewFMClassifier()
//	defer clf.Dispose()
//
//	if err := clf.Fit(X, y); err != nil {
//	    log.Fatal(err)
//	}
//	probs, _ := clf.PredictProba(X)
//
// # Model Variants
//
// Six variants share one lifecycle: LinearClassifier, LinearRegressor,
// FMClassifier, FMRegressor, FFMClassifier and FFMRegressor. Classifiers
// take {0, 1} labels and expose Predict, PredictProba, DecisionFunction
// and accuracy Score; regressors take real targets and expose Predict and
// R² Score. The field-aware variants additionally accept a feature-to-field
// map:
//
//	clf := fmgo.NewFFMClassifier(fmgo.WithFieldMap([]int32{0, 0, 1, 1}))
//
// # Lifecycle
//
// A model is Unfitted until Fit succeeds, then Fitted; Dispose releases
// the engine handle and is terminal and idempotent. Refitting frees the
// previous engine state before training anew, so a model never pins two
// engine instances. Models that are garbage collected without Dispose have
// their handle reclaimed as a last resort, with a logged warning.
//
// # Persistence
//
// Save packs the trained model into a self-describing bundle; Load
// dispatches on the recorded type id, so callers need not name the
// concrete variant:
//
//	data, _ := clf.Save()
//	m, _ := fmgo.Load(data)
//	defer m.Dispose()
//
// SaveTo and LoadFrom do the same against any bundlestore.Store (local
// directory, in-memory, S3, MinIO).
package fmgo
