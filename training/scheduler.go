package training

import "math"

// LRScheduler defines the interface for learning rate scheduling strategies.
// Schedulers are pure functions of the epoch number.
type LRScheduler interface {
	// GetLR returns the learning rate for the given zero-based epoch.
	GetLR(epoch int, baseLR float64) float64

	// GetName returns the scheduler name for logging.
	GetName() string
}

// ConstantLRScheduler maintains a constant learning rate (default behavior).
type ConstantLRScheduler struct{}

func (s *ConstantLRScheduler) GetLR(epoch int, baseLR float64) float64 {
	return baseLR
}

func (s *ConstantLRScheduler) GetName() string {
	return "ConstantLR"
}

// StepLRScheduler reduces the learning rate by a factor every StepSize epochs.
type StepLRScheduler struct {
	StepSize int     // epochs between reductions
	Gamma    float64 // multiplicative decay factor
}

// NewStepLRScheduler creates a step learning rate scheduler.
func NewStepLRScheduler(stepSize int, gamma float64) *StepLRScheduler {
	if stepSize <= 0 {
		stepSize = 10
	}
	if gamma <= 0 || gamma >= 1 {
		gamma = 0.1
	}
	return &StepLRScheduler{
		StepSize: stepSize,
		Gamma:    gamma,
	}
}

func (s *StepLRScheduler) GetLR(epoch int, baseLR float64) float64 {
	times := epoch / s.StepSize
	return baseLR * math.Pow(s.Gamma, float64(times))
}

func (s *StepLRScheduler) GetName() string {
	return "StepLR"
}
