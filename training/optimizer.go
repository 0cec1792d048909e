package training

import (
	"fmt"
	"math"
)

// AdamConfig holds Adam optimizer hyperparameters.
type AdamConfig struct {
	LearningRate float32 `json:"learning_rate"`
	Beta1        float32 `json:"beta1"`        // momentum decay
	Beta2        float32 `json:"beta2"`        // variance decay
	Epsilon      float32 `json:"epsilon"`      // numerical stability
	WeightDecay  float32 `json:"weight_decay"` // L2 regularization
}

// DefaultAdamConfig returns the standard configuration (lr 0.001).
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  0.0,
	}
}

func (c AdamConfig) validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %f", c.LearningRate)
	}
	if c.Beta1 <= 0 || c.Beta1 >= 1 {
		return fmt.Errorf("beta1 must be in (0, 1), got %f", c.Beta1)
	}
	if c.Beta2 <= 0 || c.Beta2 >= 1 {
		return fmt.Errorf("beta2 must be in (0, 1), got %f", c.Beta2)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %f", c.Epsilon)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight decay must be non-negative, got %f", c.WeightDecay)
	}
	return nil
}

// Adam implements the Adam update rule with bias correction. One optimizer
// instance owns the first/second moment state for a fixed set of parameter
// tensors; Step must always be called with tensors in the same order.
type Adam struct {
	config AdamConfig

	momentum [][]float32
	variance [][]float32
	step     uint64
}

// NewAdam creates an Adam optimizer for parameter tensors of the given sizes.
func NewAdam(config AdamConfig, paramSizes []int) (*Adam, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid Adam configuration: %w", err)
	}
	if len(paramSizes) == 0 {
		return nil, fmt.Errorf("optimizer needs at least one parameter tensor")
	}

	momentum := make([][]float32, len(paramSizes))
	variance := make([][]float32, len(paramSizes))
	for i, size := range paramSizes {
		if size <= 0 {
			return nil, fmt.Errorf("parameter tensor %d has invalid size %d", i, size)
		}
		momentum[i] = make([]float32, size)
		variance[i] = make([]float32, size)
	}

	return &Adam{
		config:   config,
		momentum: momentum,
		variance: variance,
	}, nil
}

// SetLearningRate overrides the base learning rate; used by LR schedulers.
func (a *Adam) SetLearningRate(lr float32) {
	a.config.LearningRate = lr
}

// LearningRate returns the current base learning rate.
func (a *Adam) LearningRate() float32 {
	return a.config.LearningRate
}

// StepCount returns the number of updates applied so far.
func (a *Adam) StepCount() uint64 {
	return a.step
}

// Step applies one Adam update in place to every parameter tensor.
func (a *Adam) Step(params, grads [][]float32) error {
	if len(params) != len(a.momentum) || len(grads) != len(a.momentum) {
		return fmt.Errorf("parameter group mismatch: optimizer has %d tensors, got %d params and %d grads",
			len(a.momentum), len(params), len(grads))
	}

	a.step++
	beta1 := float64(a.config.Beta1)
	beta2 := float64(a.config.Beta2)

	// Bias-corrected step size.
	correction1 := 1.0 - math.Pow(beta1, float64(a.step))
	correction2 := 1.0 - math.Pow(beta2, float64(a.step))
	stepSize := float64(a.config.LearningRate) * math.Sqrt(correction2) / correction1

	for t := range params {
		p := params[t]
		g := grads[t]
		m := a.momentum[t]
		v := a.variance[t]

		if len(p) != len(m) || len(g) != len(m) {
			return fmt.Errorf("tensor %d size mismatch: state %d, params %d, grads %d", t, len(m), len(p), len(g))
		}

		for i := range p {
			grad := float64(g[i])
			if a.config.WeightDecay > 0 {
				grad += float64(a.config.WeightDecay) * float64(p[i])
			}

			mi := beta1*float64(m[i]) + (1-beta1)*grad
			vi := beta2*float64(v[i]) + (1-beta2)*grad*grad
			m[i] = float32(mi)
			v[i] = float32(vi)

			p[i] -= float32(stepSize * mi / (math.Sqrt(vi) + float64(a.config.Epsilon)))
		}
	}

	return nil
}
