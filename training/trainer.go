package training

import (
	"fmt"

	"github.com/cortexlab/mriclass/vision/augment"
)

// ClassifierConfig configures the trainable head and its optimizer.
type ClassifierConfig struct {
	HiddenUnits int     // width of the hidden dense layer
	Dropout     float32 // dropout rate between the dense layers
	Optimizer   AdamConfig
	Scheduler   LRScheduler
	Seed        int64
	Progress    bool // render a per-epoch progress bar
}

// DefaultClassifierConfig returns the standard head configuration:
// dense(128) + ReLU + dropout(0.5) + dense(classes), Adam at lr 0.001.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		HiddenUnits: 128,
		Dropout:     0.5,
		Optimizer:   DefaultAdamConfig(),
		Scheduler:   &ConstantLRScheduler{},
		Seed:        1,
	}
}

// Classifier couples a frozen feature extractor with a trainable
// classification head and exposes the fit/evaluate/predict triad. The
// extractor is never updated; only the head's parameters move.
type Classifier struct {
	extractor FeatureExtractor
	head      *Head
	optimizer *Adam
	scheduler LRScheduler
	baseLR    float64
	collector *VisualizationCollector
	progress  bool
}

// NewClassifier builds a classifier for numClasses categories on top of the
// given extractor.
func NewClassifier(extractor FeatureExtractor, numClasses int, config ClassifierConfig) (*Classifier, error) {
	if extractor == nil {
		return nil, fmt.Errorf("feature extractor is required")
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("classifier needs at least 2 classes, got %d", numClasses)
	}
	if config.HiddenUnits <= 0 {
		config.HiddenUnits = 128
	}
	if config.Scheduler == nil {
		config.Scheduler = &ConstantLRScheduler{}
	}

	head, err := NewHead(extractor.FeatureSize(), config.HiddenUnits, numClasses, config.Dropout, config.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build classification head: %w", err)
	}

	optimizer, err := NewAdam(config.Optimizer, head.ParamSizes())
	if err != nil {
		return nil, fmt.Errorf("failed to build optimizer: %w", err)
	}

	return &Classifier{
		extractor: extractor,
		head:      head,
		optimizer: optimizer,
		scheduler: config.Scheduler,
		baseLR:    float64(config.Optimizer.LearningRate),
		progress:  config.Progress,
	}, nil
}

// Head exposes the trained head, primarily for checkpointing.
func (c *Classifier) Head() *Head {
	return c.head
}

// SetCollector attaches a visualization collector that receives per-epoch
// metrics during Fit.
func (c *Classifier) SetCollector(collector *VisualizationCollector) {
	c.collector = collector
}

// Fit trains the head for the requested number of epochs, consuming
// stepsPerEpoch augmented batches per epoch and evaluating on the validation
// set after each. The returned history holds per-epoch loss and accuracy.
func (c *Classifier) Fit(stream *augment.Stream, val *Set, epochs, stepsPerEpoch int) (*History, error) {
	if epochs <= 0 || stepsPerEpoch <= 0 {
		return nil, fmt.Errorf("epochs and steps per epoch must be positive, got %d and %d", epochs, stepsPerEpoch)
	}
	if val == nil {
		return nil, fmt.Errorf("validation set is required")
	}

	history := &History{}

	for epoch := 0; epoch < epochs; epoch++ {
		lr := c.scheduler.GetLR(epoch, c.baseLR)
		c.optimizer.SetLearningRate(float32(lr))

		var bar *ProgressBar
		if c.progress {
			bar = NewProgressBar(fmt.Sprintf("epoch %d/%d", epoch+1, epochs), stepsPerEpoch)
		}

		var epochLoss float64
		correct, seen := 0, 0

		for step := 0; step < stepsPerEpoch; step++ {
			batch, labels := stream.NextBatch()
			n := len(labels)

			loss, batchCorrect, err := c.trainStep(batch, labels, n)
			if err != nil {
				return nil, fmt.Errorf("epoch %d step %d: %w", epoch+1, step+1, err)
			}

			epochLoss += loss
			correct += batchCorrect
			seen += n

			if bar != nil {
				bar.Update(step+1, map[string]float64{
					"loss": epochLoss / float64(step+1),
					"acc":  float64(correct) / float64(seen),
				})
			}
		}

		trainLoss := epochLoss / float64(stepsPerEpoch)
		trainAcc := float64(correct) / float64(seen)

		valResult, err := c.Evaluate(val)
		if err != nil {
			return nil, fmt.Errorf("epoch %d validation: %w", epoch+1, err)
		}

		if bar != nil {
			bar.Update(stepsPerEpoch, map[string]float64{
				"val_loss": valResult.Loss,
				"val_acc":  valResult.Accuracy,
			})
			bar.Finish()
		}

		history.TrainLoss = append(history.TrainLoss, trainLoss)
		history.TrainAccuracy = append(history.TrainAccuracy, trainAcc)
		history.ValLoss = append(history.ValLoss, valResult.Loss)
		history.ValAccuracy = append(history.ValAccuracy, valResult.Accuracy)

		if c.collector != nil {
			c.collector.RecordEpoch(epoch+1, trainLoss, trainAcc, valResult.Loss, valResult.Accuracy)
			c.collector.RecordLearningRate(epoch+1, lr)
		}
	}

	return history, nil
}

// trainStep runs one forward/backward/update cycle over a single batch.
func (c *Classifier) trainStep(batch []float32, labels []int, n int) (float64, int, error) {
	features, err := c.extractor.Features(batch, n)
	if err != nil {
		return 0, 0, fmt.Errorf("feature extraction failed: %w", err)
	}

	logits, state, err := c.head.Forward(features, n, true)
	if err != nil {
		return 0, 0, err
	}

	probs := Softmax(logits, n, c.head.NumClasses())

	loss, err := CrossEntropy(probs, labels, n, c.head.NumClasses())
	if err != nil {
		return 0, 0, err
	}

	dLogits, err := CrossEntropyGrad(probs, labels, n, c.head.NumClasses())
	if err != nil {
		return 0, 0, err
	}

	grads, err := c.head.Backward(state, dLogits)
	if err != nil {
		return 0, 0, err
	}

	if err := c.optimizer.Step(c.head.Params(), grads); err != nil {
		return 0, 0, fmt.Errorf("optimizer step failed: %w", err)
	}

	correct := 0
	for i, pred := range ArgMaxRows(probs, n, c.head.NumClasses()) {
		if pred == labels[i] {
			correct++
		}
	}

	return loss, correct, nil
}

// Evaluate computes loss and accuracy on a held-out set without updating any
// parameters.
func (c *Classifier) Evaluate(set *Set) (*EvalResult, error) {
	probs, err := c.Predict(set.Data, set.N)
	if err != nil {
		return nil, err
	}

	loss, err := CrossEntropy(probs, set.Labels, set.N, c.head.NumClasses())
	if err != nil {
		return nil, err
	}

	correct := 0
	for i, pred := range ArgMaxRows(probs, set.N, c.head.NumClasses()) {
		if pred == set.Labels[i] {
			correct++
		}
	}

	return &EvalResult{
		Loss:     loss,
		Accuracy: float64(correct) / float64(set.N),
	}, nil
}

// Predict returns per-class probability rows [n, numClasses] for stacked
// inputs. Dropout is disabled.
func (c *Classifier) Predict(data []float32, n int) ([]float32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("prediction needs at least one sample, got %d", n)
	}

	features, err := c.extractor.Features(data, n)
	if err != nil {
		return nil, fmt.Errorf("feature extraction failed: %w", err)
	}

	logits, _, err := c.head.Forward(features, n, false)
	if err != nil {
		return nil, err
	}

	return Softmax(logits, n, c.head.NumClasses()), nil
}
