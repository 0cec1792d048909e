package training

import "fmt"

// FeatureExtractor is the frozen pretrained capability the classifier head is
// trained on top of. Implementations run an opaque forward pass over a batch
// of stacked images and return one feature vector per input. The extractor's
// weights never change during training.
type FeatureExtractor interface {
	// Features runs n stacked inputs through the extractor and returns the
	// flattened feature matrix of shape [n, FeatureSize].
	Features(batch []float32, n int) ([]float32, error)

	// FeatureSize returns the width of each returned feature vector.
	FeatureSize() int
}

// History records per-epoch training and validation metrics produced by Fit.
type History struct {
	TrainLoss     []float64
	TrainAccuracy []float64
	ValLoss       []float64
	ValAccuracy   []float64
}

// Epochs returns the number of recorded epochs.
func (h *History) Epochs() int {
	return len(h.TrainLoss)
}

// EvalResult holds scalar evaluation metrics for one dataset.
type EvalResult struct {
	Loss     float64
	Accuracy float64
}

// Set is an in-memory evaluation split: stacked image data plus the encoded
// class index of every sample.
type Set struct {
	Data   []float32
	Labels []int
	N      int
}

// NewSet validates and wraps a stacked data buffer with its labels.
func NewSet(data []float32, labels []int) (*Set, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("cannot build a set from zero samples")
	}
	if len(data)%len(labels) != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of sample count %d", len(data), len(labels))
	}
	return &Set{Data: data, Labels: labels, N: len(labels)}, nil
}
