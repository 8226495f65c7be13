package gate

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"mtf-trader/internal/models"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		probs     []float64
		threshold float64
		want      models.Signal
	}{
		{"confident buy", []float64{0.1, 0.7, 0.2}, 0.40, models.SignalBuy},
		{"confident sell", []float64{0.1, 0.2, 0.7}, 0.40, models.SignalSell},
		{"confident hold", []float64{0.8, 0.1, 0.1}, 0.40, models.SignalHold},
		{"uncertain buy forced to hold", []float64{0.33, 0.39, 0.28}, 0.40, models.SignalHold},
		{"exactly at threshold passes", []float64{0.2, 0.40, 0.40}, 0.40, models.SignalBuy},
		{"empty vector", nil, 0.40, models.SignalHold},
		{"single class", []float64{1.0}, 0.40, models.SignalHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.probs, tt.threshold); got != tt.want {
				t.Errorf("Decide(%v, %v) = %s, want %s", tt.probs, tt.threshold, got, tt.want)
			}
		})
	}
}

// Property: when every class probability is below the threshold the
// decision is HOLD, no matter which class wins.
func TestProperty_ConfidenceGating(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	lowProbGen := gen.Float64Range(0, 0.399)

	properties.Property("sub-threshold vectors always decide HOLD", prop.ForAll(
		func(p0, p1, p2 float64) bool {
			return Decide([]float64{p0, p1, p2}, DefaultConfidenceThreshold) == models.SignalHold
		},
		lowProbGen, lowProbGen, lowProbGen,
	))

	properties.Property("decision is one of the three signal classes", prop.ForAll(
		func(p0, p1, p2 float64) bool {
			sig := Decide([]float64{p0, p1, p2}, DefaultConfidenceThreshold)
			return sig == models.SignalHold || sig == models.SignalBuy || sig == models.SignalSell
		},
		gen.Float64Range(0, 1), gen.Float64Range(0, 1), gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestLoad_MissingArtifactDegrades(t *testing.T) {
	g := Load("/nonexistent/model.onnx", 0.40, zerolog.Nop())
	if g == nil {
		t.Fatal("Load must never return nil")
	}
	if g.Available() {
		t.Error("gate with missing artifact must report unavailable")
	}

	// A degraded gate classifies everything as HOLD without error.
	for i := 0; i < 3; i++ {
		sig, err := g.Classify(map[string]float64{"close": 1.1})
		if err != nil {
			t.Fatalf("degraded gate returned error: %v", err)
		}
		if sig != models.SignalHold {
			t.Errorf("degraded gate returned %s, want HOLD", sig)
		}
	}
}
