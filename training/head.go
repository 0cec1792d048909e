package training

import (
	"fmt"
	"math"
	"math/rand"
)

// Head is the trainable classification head placed on top of the frozen
// feature extractor: dense(hidden) + ReLU + dropout + dense(classes). The
// softmax is folded into the loss.
//
// Weight layout is row-major: w1[i*hidden+j] connects input feature i to
// hidden unit j, w2[j*classes+k] connects hidden unit j to class k.
type Head struct {
	inFeatures int
	hidden     int
	classes    int
	dropout    float32

	w1, b1 []float32
	w2, b2 []float32

	rng *rand.Rand
}

// headState retains the forward-pass intermediates needed by Backward.
type headState struct {
	x     []float32 // input features [n, inFeatures]
	h     []float32 // post-ReLU hidden activations [n, hidden]
	hDrop []float32 // hidden activations after dropout [n, hidden]
	mask  []float32 // dropout mask including inverse scale, nil in eval mode
	n     int
}

// NewHead creates a classification head with He-initialized weights.
func NewHead(inFeatures, hidden, classes int, dropout float32, seed int64) (*Head, error) {
	if inFeatures <= 0 || hidden <= 0 || classes <= 0 {
		return nil, fmt.Errorf("head dimensions must be positive, got %d/%d/%d", inFeatures, hidden, classes)
	}
	if dropout < 0 || dropout >= 1 {
		return nil, fmt.Errorf("dropout rate must be in [0, 1), got %f", dropout)
	}

	h := &Head{
		inFeatures: inFeatures,
		hidden:     hidden,
		classes:    classes,
		dropout:    dropout,
		w1:         make([]float32, inFeatures*hidden),
		b1:         make([]float32, hidden),
		w2:         make([]float32, hidden*classes),
		b2:         make([]float32, classes),
		rng:        rand.New(rand.NewSource(seed)),
	}

	scale1 := float32(math.Sqrt(2.0 / float64(inFeatures)))
	for i := range h.w1 {
		h.w1[i] = float32(h.rng.NormFloat64()) * scale1
	}
	scale2 := float32(math.Sqrt(2.0 / float64(hidden)))
	for i := range h.w2 {
		h.w2[i] = float32(h.rng.NormFloat64()) * scale2
	}

	return h, nil
}

// NumClasses returns the output width of the head.
func (h *Head) NumClasses() int {
	return h.classes
}

// InFeatures returns the expected feature vector width.
func (h *Head) InFeatures() int {
	return h.inFeatures
}

// HiddenUnits returns the width of the hidden layer.
func (h *Head) HiddenUnits() int {
	return h.hidden
}

// Params returns the trainable tensors in optimizer order.
func (h *Head) Params() [][]float32 {
	return [][]float32{h.w1, h.b1, h.w2, h.b2}
}

// ParamSizes returns the flat size of each trainable tensor.
func (h *Head) ParamSizes() []int {
	return []int{len(h.w1), len(h.b1), len(h.w2), len(h.b2)}
}

// SetParams overwrites the head's parameters from tensors in Params order,
// validating each size. Used when restoring from a checkpoint.
func (h *Head) SetParams(params [][]float32) error {
	current := h.Params()
	if len(params) != len(current) {
		return fmt.Errorf("expected %d parameter tensors, got %d", len(current), len(params))
	}
	for i := range params {
		if len(params[i]) != len(current[i]) {
			return fmt.Errorf("parameter tensor %d size mismatch: expected %d, got %d",
				i, len(current[i]), len(params[i]))
		}
	}
	for i := range params {
		copy(current[i], params[i])
	}
	return nil
}

// Forward computes logits for n feature rows. With train set, dropout is
// applied and the intermediates needed for Backward are retained.
func (h *Head) Forward(features []float32, n int, train bool) ([]float32, *headState, error) {
	if len(features) != n*h.inFeatures {
		return nil, nil, fmt.Errorf("feature size mismatch: head expects %d per sample, got %d values for %d samples",
			h.inFeatures, len(features), n)
	}

	st := &headState{x: features, n: n}

	// Dense 1 + ReLU.
	st.h = make([]float32, n*h.hidden)
	for i := 0; i < n; i++ {
		for j := 0; j < h.hidden; j++ {
			sum := h.b1[j]
			for p := 0; p < h.inFeatures; p++ {
				sum += features[i*h.inFeatures+p] * h.w1[p*h.hidden+j]
			}
			if sum < 0 {
				sum = 0
			}
			st.h[i*h.hidden+j] = sum
		}
	}

	// Inverted dropout: surviving units are scaled up so evaluation needs no
	// rescaling.
	if train && h.dropout > 0 {
		st.mask = make([]float32, len(st.h))
		st.hDrop = make([]float32, len(st.h))
		keepScale := 1.0 / (1.0 - h.dropout)
		for i := range st.h {
			if h.rng.Float32() >= h.dropout {
				st.mask[i] = keepScale
				st.hDrop[i] = st.h[i] * keepScale
			}
		}
	} else {
		st.hDrop = st.h
	}

	// Dense 2.
	logits := make([]float32, n*h.classes)
	for i := 0; i < n; i++ {
		for k := 0; k < h.classes; k++ {
			sum := h.b2[k]
			for j := 0; j < h.hidden; j++ {
				sum += st.hDrop[i*h.hidden+j] * h.w2[j*h.classes+k]
			}
			logits[i*h.classes+k] = sum
		}
	}

	return logits, st, nil
}

// Backward computes parameter gradients from the logit gradient, returning
// tensors in the same order as Params.
func (h *Head) Backward(st *headState, dLogits []float32) ([][]float32, error) {
	if len(dLogits) != st.n*h.classes {
		return nil, fmt.Errorf("logit gradient size mismatch: expected %d, got %d", st.n*h.classes, len(dLogits))
	}

	dW1 := make([]float32, len(h.w1))
	dB1 := make([]float32, len(h.b1))
	dW2 := make([]float32, len(h.w2))
	dB2 := make([]float32, len(h.b2))

	// Dense 2 gradients and the gradient flowing into the hidden layer.
	dHidden := make([]float32, st.n*h.hidden)
	for i := 0; i < st.n; i++ {
		for k := 0; k < h.classes; k++ {
			g := dLogits[i*h.classes+k]
			dB2[k] += g
			for j := 0; j < h.hidden; j++ {
				dW2[j*h.classes+k] += st.hDrop[i*h.hidden+j] * g
				dHidden[i*h.hidden+j] += h.w2[j*h.classes+k] * g
			}
		}
	}

	// Undo dropout, then the ReLU gate.
	if st.mask != nil {
		for i := range dHidden {
			dHidden[i] *= st.mask[i]
		}
	}
	for i := range dHidden {
		if st.h[i] <= 0 {
			dHidden[i] = 0
		}
	}

	// Dense 1 gradients.
	for i := 0; i < st.n; i++ {
		for j := 0; j < h.hidden; j++ {
			g := dHidden[i*h.hidden+j]
			if g == 0 {
				continue
			}
			dB1[j] += g
			for p := 0; p < h.inFeatures; p++ {
				dW1[p*h.hidden+j] += st.x[i*h.inFeatures+p] * g
			}
		}
	}

	return [][]float32{dW1, dB1, dW2, dB2}, nil
}
