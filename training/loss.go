package training

import (
	"fmt"
	"math"
)

// Softmax converts row-major logits [n, classes] into per-row probability
// distributions, using the max-subtraction trick for numerical stability.
func Softmax(logits []float32, n, classes int) []float32 {
	result := make([]float32, len(logits))

	for i := 0; i < n; i++ {
		offset := i * classes

		maxVal := logits[offset]
		for j := 1; j < classes; j++ {
			if logits[offset+j] > maxVal {
				maxVal = logits[offset+j]
			}
		}

		var sum float32
		for j := 0; j < classes; j++ {
			exp := float32(math.Exp(float64(logits[offset+j] - maxVal)))
			result[offset+j] = exp
			sum += exp
		}

		for j := 0; j < classes; j++ {
			result[offset+j] /= sum
		}
	}

	return result
}

// CrossEntropy computes the mean categorical cross-entropy of probability
// rows against integer targets.
func CrossEntropy(probs []float32, targets []int, n, classes int) (float64, error) {
	if len(probs) != n*classes {
		return 0, fmt.Errorf("probability length mismatch: expected %d, got %d", n*classes, len(probs))
	}
	if len(targets) != n {
		return 0, fmt.Errorf("target length mismatch: expected %d, got %d", n, len(targets))
	}

	var total float64
	for i := 0; i < n; i++ {
		target := targets[i]
		if target < 0 || target >= classes {
			return 0, fmt.Errorf("target class %d out of range [0, %d)", target, classes)
		}

		p := float64(probs[i*classes+target])
		if p < 1e-10 {
			p = 1e-10
		}
		total += -math.Log(p)
	}

	return total / float64(n), nil
}

// CrossEntropyGrad returns the gradient of the mean cross-entropy loss with
// respect to the logits: (softmax - onehot) / n.
func CrossEntropyGrad(probs []float32, targets []int, n, classes int) ([]float32, error) {
	if len(probs) != n*classes {
		return nil, fmt.Errorf("probability length mismatch: expected %d, got %d", n*classes, len(probs))
	}
	if len(targets) != n {
		return nil, fmt.Errorf("target length mismatch: expected %d, got %d", n, len(targets))
	}

	grad := make([]float32, len(probs))
	copy(grad, probs)

	scale := 1.0 / float32(n)
	for i := 0; i < n; i++ {
		target := targets[i]
		if target < 0 || target >= classes {
			return nil, fmt.Errorf("target class %d out of range [0, %d)", target, classes)
		}
		grad[i*classes+target] -= 1.0
	}
	for i := range grad {
		grad[i] *= scale
	}

	return grad, nil
}
