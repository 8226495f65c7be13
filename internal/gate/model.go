package gate

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// numClasses is the classifier output width: HOLD, BUY, SELL.
const numClasses = 3

var ortInit sync.Once
var ortInitErr error

// initializeRuntime loads the ONNX runtime shared library once per process.
func initializeRuntime() error {
	ortInit.Do(func() {
		libPath := "/usr/lib/libonnxruntime.so"
		if runtime.GOOS == "windows" {
			libPath = "onnxruntime.dll"
		} else if runtime.GOOS == "darwin" {
			libPath = "libonnxruntime.dylib"
		}
		if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
			libPath = v
		}
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// Model wraps a single-row ONNX classifier session. The input is one
// feature row of width len(features); the output is a probability vector
// over the three signal classes.
type Model struct {
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   *ort.Tensor[float32]
	features []string
	mu       sync.Mutex
}

// LoadModel opens the ONNX artifact at modelPath. The expected feature-name
// list is read from the sidecar file <model>.features.json.
func LoadModel(modelPath string) (*Model, error) {
	if err := initializeRuntime(); err != nil {
		return nil, fmt.Errorf("initializing onnx runtime: %w", err)
	}

	features, err := loadFeatureNames(modelPath)
	if err != nil {
		return nil, err
	}

	inputShape := ort.NewShape(1, int64(len(features)))
	inputData := make([]float32, len(features))
	inputTensor, err := ort.NewTensor(inputShape, inputData)
	if err != nil {
		return nil, fmt.Errorf("creating input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, numClasses)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"probabilities"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &Model{
		session:  session,
		input:    inputTensor,
		output:   outputTensor,
		features: features,
	}, nil
}

// FeatureNames returns the feature columns the artifact expects, in input order.
func (m *Model) FeatureNames() []string {
	return m.features
}

// Probabilities runs inference on one feature row and returns the class
// probability vector [HOLD, BUY, SELL].
func (m *Model) Probabilities(row []float32) ([]float64, error) {
	if len(row) != len(m.features) {
		return nil, fmt.Errorf("feature row width %d, model expects %d", len(row), len(m.features))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), row)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := m.output.GetData()
	probs := make([]float64, numClasses)
	for i := 0; i < numClasses; i++ {
		probs[i] = float64(out[i])
	}
	return probs, nil
}

// Close releases the session and its tensors.
func (m *Model) Close() {
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}

// loadFeatureNames reads the declared feature list from the model's sidecar.
func loadFeatureNames(modelPath string) ([]string, error) {
	sidecar := strings.TrimSuffix(modelPath, ".onnx") + ".features.json"
	data, err := os.ReadFile(sidecar)
	if err != nil {
		return nil, fmt.Errorf("reading feature sidecar %s: %w", sidecar, err)
	}

	var features []string
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, fmt.Errorf("parsing feature sidecar %s: %w", sidecar, err)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("feature sidecar %s declares no features", sidecar)
	}
	return features, nil
}
