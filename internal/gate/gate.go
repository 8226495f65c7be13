// Package gate wraps the pre-trained classifier artifact and converts feature
// rows into discrete trade signals with confidence gating.
package gate

import (
	"sync"

	"github.com/rs/zerolog"

	"mtf-trader/internal/errors"
	"mtf-trader/internal/models"
)

// DefaultConfidenceThreshold is the minimum class probability for a
// directional signal. Below it the gate forces HOLD: an uncertain model
// must never generate a trade signal.
const DefaultConfidenceThreshold = 0.40

// Gate converts a feature row into a ternary signal. A gate whose artifact
// failed to load is degraded: every call returns HOLD and the condition is
// logged once, not per call.
type Gate struct {
	model     *Model
	threshold float64
	logger    zerolog.Logger
	loadErr   error
	warnOnce  sync.Once
}

// Load opens the classifier artifact for a strategy. Load never fails:
// when the artifact cannot be opened the returned gate is degraded to
// always-HOLD, which is the fail-safe direction.
func Load(modelPath string, threshold float64, logger zerolog.Logger) *Gate {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}

	g := &Gate{threshold: threshold, logger: logger}
	model, err := LoadModel(modelPath)
	if err != nil {
		g.loadErr = errors.NewModelError(modelPath, "load", err)
		return g
	}
	g.model = model
	return g
}

// Available reports whether the artifact loaded successfully.
func (g *Gate) Available() bool { return g.model != nil }

// Close releases the underlying model, if any.
func (g *Gate) Close() {
	if g.model != nil {
		g.model.Close()
	}
}

// Classify converts one feature row into a gated signal. The row must
// contain every feature the artifact declares; a missing column is a
// FeatureMismatch, not a silent HOLD, so that model/feature drift is
// operator-visible.
func (g *Gate) Classify(row map[string]float64) (models.Signal, error) {
	if g.model == nil {
		g.warnOnce.Do(func() {
			g.logger.Warn().Err(g.loadErr).Msg("Classifier unavailable, forcing HOLD for all cycles")
		})
		return models.SignalHold, nil
	}

	features := make([]float32, len(g.model.FeatureNames()))
	for i, name := range g.model.FeatureNames() {
		v, ok := row[name]
		if !ok {
			return models.SignalHold, errors.Wrapf(errors.ErrFeatureMismatch,
				"feature %q absent from latest row", name)
		}
		features[i] = float32(v)
	}

	probs, err := g.model.Probabilities(features)
	if err != nil {
		return models.SignalHold, errors.NewModelError("", "predict", err)
	}

	sig := Decide(probs, g.threshold)
	g.logger.Debug().
		Floats64("probabilities", probs).
		Str("signal", sig.String()).
		Msg("Classifier output")
	return sig, nil
}

// Decide maps a class-probability vector [HOLD, BUY, SELL] to a signal.
// If the winning probability is below threshold the result is HOLD
// regardless of the argmax.
func Decide(probs []float64, threshold float64) models.Signal {
	if len(probs) == 0 {
		return models.SignalHold
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	if probs[best] < threshold {
		return models.SignalHold
	}

	switch best {
	case 1:
		return models.SignalBuy
	case 2:
		return models.SignalSell
	default:
		return models.SignalHold
	}
}
