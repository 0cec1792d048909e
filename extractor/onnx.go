// Package extractor runs a frozen pretrained backbone through ONNX Runtime
// and exposes it as a fixed-size feature extractor. The backbone is never
// trained; it only maps image batches to feature vectors for the
// classification head.
package extractor

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/cortexlab/mriclass/vision/preprocessing"
)

// Config describes the ONNX backbone session.
type Config struct {
	ModelPath   string `json:"model_path"`
	InputName   string `json:"input_name"`
	OutputName  string `json:"output_name"`
	BatchSize   int    `json:"batch_size"`   // fixed batch dimension of the session
	ImageSize   int    `json:"image_size"`   // square input side length
	FeatureSize int    `json:"feature_size"` // width of the output feature vector
}

// DefaultConfig returns the standard backbone configuration for a
// MobileNet-style extractor over 224x224 RGB inputs.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:   modelPath,
		InputName:   "input",
		OutputName:  "output",
		BatchSize:   32,
		ImageSize:   224,
		FeatureSize: 1280,
	}
}

// ONNXExtractor wraps an ONNX Runtime session with fixed-shape input and
// output tensors. Batches larger than the session's batch size are processed
// in chunks; short final chunks are zero padded and the padding rows dropped.
type ONNXExtractor struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	config       Config
}

// NewONNXExtractor initializes the ONNX environment and opens a session for
// the backbone model. Callers must Close the extractor when done.
func NewONNXExtractor(config Config) (*ONNXExtractor, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", config.BatchSize)
	}
	if config.ImageSize <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %d", config.ImageSize)
	}
	if config.FeatureSize <= 0 {
		return nil, fmt.Errorf("feature size must be positive, got %d", config.FeatureSize)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(int64(config.BatchSize), preprocessing.Channels,
		int64(config.ImageSize), int64(config.ImageSize))
	outputShape := ort.NewShape(int64(config.BatchSize), int64(config.FeatureSize))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(config.ModelPath,
		[]string{config.InputName}, []string{config.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXExtractor{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		config:       config,
	}, nil
}

// FeatureSize returns the width of each extracted feature vector.
func (e *ONNXExtractor) FeatureSize() int {
	return e.config.FeatureSize
}

// Features maps a stacked image batch [n, channels, size, size] to feature
// rows [n, featureSize].
func (e *ONNXExtractor) Features(batch []float32, n int) ([]float32, error) {
	perImage := preprocessing.Channels * e.config.ImageSize * e.config.ImageSize
	if len(batch) != n*perImage {
		return nil, fmt.Errorf("batch size mismatch: expected %d values for %d images, got %d",
			n*perImage, n, len(batch))
	}

	features := make([]float32, n*e.config.FeatureSize)
	input := e.inputTensor.GetData()
	output := e.outputTensor.GetData()

	for start := 0; start < n; start += e.config.BatchSize {
		count := e.config.BatchSize
		if start+count > n {
			count = n - start
		}

		copy(input, batch[start*perImage:(start+count)*perImage])
		for i := count * perImage; i < len(input); i++ {
			input[i] = 0
		}

		if err := e.session.Run(); err != nil {
			return nil, fmt.Errorf("inference failed on chunk starting at %d: %w", start, err)
		}

		copy(features[start*e.config.FeatureSize:(start+count)*e.config.FeatureSize],
			output[:count*e.config.FeatureSize])
	}

	return features, nil
}

// Close releases the session and its tensors.
func (e *ONNXExtractor) Close() {
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
	if e.session != nil {
		e.session.Destroy()
	}
	ort.DestroyEnvironment()
}
