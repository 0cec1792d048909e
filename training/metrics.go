package training

import (
	"fmt"
	"sort"
)

// ConfusionMatrix accumulates classification outcomes indexed by
// [true_class][predicted_class].
type ConfusionMatrix struct {
	NumClasses   int
	Matrix       [][]int
	TotalSamples int
}

// NewConfusionMatrix creates an empty confusion matrix.
func NewConfusionMatrix(numClasses int) (*ConfusionMatrix, error) {
	if numClasses < 2 {
		return nil, fmt.Errorf("confusion matrix needs at least 2 classes, got %d", numClasses)
	}

	matrix := make([][]int, numClasses)
	for i := range matrix {
		matrix[i] = make([]int, numClasses)
	}

	return &ConfusionMatrix{
		NumClasses: numClasses,
		Matrix:     matrix,
	}, nil
}

// Reset clears all accumulated counts.
func (cm *ConfusionMatrix) Reset() {
	for i := range cm.Matrix {
		for j := range cm.Matrix[i] {
			cm.Matrix[i][j] = 0
		}
	}
	cm.TotalSamples = 0
}

// Update increments the matrix for aligned true/predicted class indices.
func (cm *ConfusionMatrix) Update(trueClasses, predClasses []int) error {
	if len(trueClasses) != len(predClasses) {
		return fmt.Errorf("label length mismatch: %d true vs %d predicted", len(trueClasses), len(predClasses))
	}

	for i := range trueClasses {
		t, p := trueClasses[i], predClasses[i]
		if t < 0 || t >= cm.NumClasses {
			return fmt.Errorf("true class %d out of range [0, %d)", t, cm.NumClasses)
		}
		if p < 0 || p >= cm.NumClasses {
			return fmt.Errorf("predicted class %d out of range [0, %d)", p, cm.NumClasses)
		}
		cm.Matrix[t][p]++
		cm.TotalSamples++
	}

	return nil
}

// UpdateFromProbs takes argmax over probability rows and updates the matrix.
func (cm *ConfusionMatrix) UpdateFromProbs(probs []float32, trueClasses []int) error {
	if len(probs) != len(trueClasses)*cm.NumClasses {
		return fmt.Errorf("probability length mismatch: expected %d, got %d",
			len(trueClasses)*cm.NumClasses, len(probs))
	}
	return cm.Update(trueClasses, ArgMaxRows(probs, len(trueClasses), cm.NumClasses))
}

// Accuracy returns the fraction of correctly classified samples.
func (cm *ConfusionMatrix) Accuracy() float64 {
	if cm.TotalSamples == 0 {
		return 0.0
	}

	correct := 0
	for i := 0; i < cm.NumClasses; i++ {
		correct += cm.Matrix[i][i]
	}
	return float64(correct) / float64(cm.TotalSamples)
}

// MacroPrecision averages per-class precision over classes that received at
// least one prediction.
func (cm *ConfusionMatrix) MacroPrecision() float64 {
	sum := 0.0
	valid := 0

	for class := 0; class < cm.NumClasses; class++ {
		tp := float64(cm.Matrix[class][class])
		fp := 0.0
		for other := 0; other < cm.NumClasses; other++ {
			if other != class {
				fp += float64(cm.Matrix[other][class])
			}
		}
		if tp+fp > 0 {
			sum += tp / (tp + fp)
			valid++
		}
	}

	if valid == 0 {
		return 0.0
	}
	return sum / float64(valid)
}

// MacroRecall averages per-class recall over classes present in the truth.
func (cm *ConfusionMatrix) MacroRecall() float64 {
	sum := 0.0
	valid := 0

	for class := 0; class < cm.NumClasses; class++ {
		tp := float64(cm.Matrix[class][class])
		fn := 0.0
		for other := 0; other < cm.NumClasses; other++ {
			if other != class {
				fn += float64(cm.Matrix[class][other])
			}
		}
		if tp+fn > 0 {
			sum += tp / (tp + fn)
			valid++
		}
	}

	if valid == 0 {
		return 0.0
	}
	return sum / float64(valid)
}

// MacroF1 is the harmonic mean of macro precision and macro recall.
func (cm *ConfusionMatrix) MacroF1() float64 {
	precision := cm.MacroPrecision()
	recall := cm.MacroRecall()
	if precision+recall == 0 {
		return 0.0
	}
	return 2 * (precision * recall) / (precision + recall)
}

// ArgMaxRows returns the index of the largest value in each probability row.
func ArgMaxRows(probs []float32, n, classes int) []int {
	result := make([]int, n)
	for i := 0; i < n; i++ {
		offset := i * classes
		maxIdx := 0
		maxVal := probs[offset]
		for j := 1; j < classes; j++ {
			if probs[offset+j] > maxVal {
				maxVal = probs[offset+j]
				maxIdx = j
			}
		}
		result[i] = maxIdx
	}
	return result
}

// ROCPoint is a point on a ROC curve at a particular decision threshold.
type ROCPoint struct {
	Threshold float32
	TPR       float64 // true positive rate
	FPR       float64 // false positive rate
}

// ROCCurve computes the one-vs-rest ROC curve for a single class. Scores are
// the predicted probabilities for that class; truth holds the true class
// index per sample. Points are ordered by decreasing threshold and the AUC is
// computed with the trapezoidal rule. If the class is entirely absent (or
// universal) in the truth the curve is undefined and AUC 0 is returned.
func ROCCurve(scores []float32, truth []int, class int) ([]ROCPoint, float64, error) {
	if len(scores) != len(truth) {
		return nil, 0, fmt.Errorf("score/truth length mismatch: %d vs %d", len(scores), len(truth))
	}

	type scored struct {
		score    float32
		positive bool
	}

	pairs := make([]scored, len(scores))
	totalPos, totalNeg := 0, 0
	for i := range scores {
		positive := truth[i] == class
		pairs[i] = scored{score: scores[i], positive: positive}
		if positive {
			totalPos++
		} else {
			totalNeg++
		}
	}

	if totalPos == 0 || totalNeg == 0 {
		return nil, 0.0, nil
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	points := make([]ROCPoint, 0, len(pairs)+1)
	points = append(points, ROCPoint{Threshold: pairs[0].score, TPR: 0, FPR: 0})

	auc := 0.0
	tp, fp := 0, 0
	prevTPR, prevFPR := 0.0, 0.0

	for _, pair := range pairs {
		if pair.positive {
			tp++
		} else {
			fp++
		}

		tpr := float64(tp) / float64(totalPos)
		fpr := float64(fp) / float64(totalNeg)

		auc += (fpr - prevFPR) * (tpr + prevTPR) / 2.0
		prevTPR = tpr
		prevFPR = fpr

		points = append(points, ROCPoint{Threshold: pair.score, TPR: tpr, FPR: fpr})
	}

	return points, auc, nil
}

// MulticlassROC computes per-class one-vs-rest ROC curves from probability
// rows [n, classes]. The returned slices are indexed by class.
func MulticlassROC(probs []float32, truth []int, classes int) ([][]ROCPoint, []float64, error) {
	if len(probs) != len(truth)*classes {
		return nil, nil, fmt.Errorf("probability length mismatch: expected %d, got %d", len(truth)*classes, len(probs))
	}

	curves := make([][]ROCPoint, classes)
	aucs := make([]float64, classes)

	scores := make([]float32, len(truth))
	for class := 0; class < classes; class++ {
		for i := range truth {
			scores[i] = probs[i*classes+class]
		}

		points, auc, err := ROCCurve(scores, truth, class)
		if err != nil {
			return nil, nil, fmt.Errorf("ROC for class %d: %w", class, err)
		}
		curves[class] = points
		aucs[class] = auc
	}

	return curves, aucs, nil
}
