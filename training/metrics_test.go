package training

import (
	"math"
	"testing"
)

// TestNewConfusionMatrix tests confusion matrix creation
func TestNewConfusionMatrix(t *testing.T) {
	cm, err := NewConfusionMatrix(3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cm.NumClasses != 3 {
		t.Errorf("Expected 3 classes, got %d", cm.NumClasses)
	}
	if cm.TotalSamples != 0 {
		t.Errorf("Expected empty matrix, got %d samples", cm.TotalSamples)
	}

	if _, err := NewConfusionMatrix(1); err == nil {
		t.Error("Expected error for fewer than 2 classes")
	}
}

// TestConfusionMatrixUpdate tests count accumulation and its invariants
func TestConfusionMatrixUpdate(t *testing.T) {
	t.Run("TotalsAndRowSums", func(t *testing.T) {
		cm, err := NewConfusionMatrix(3)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		trueClasses := []int{0, 0, 1, 1, 2, 2, 0}
		predClasses := []int{0, 1, 1, 1, 2, 0, 0}
		if err := cm.Update(trueClasses, predClasses); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if cm.TotalSamples != 7 {
			t.Errorf("Expected 7 total samples, got %d", cm.TotalSamples)
		}

		total := 0
		for _, row := range cm.Matrix {
			for _, v := range row {
				total += v
			}
		}
		if total != 7 {
			t.Errorf("Matrix entries sum to %d, expected 7", total)
		}

		// Row i must sum to the count of true class i.
		rowSums := []int{3, 2, 2}
		for i, expected := range rowSums {
			sum := 0
			for _, v := range cm.Matrix[i] {
				sum += v
			}
			if sum != expected {
				t.Errorf("Row %d sums to %d, expected %d", i, sum, expected)
			}
		}
	})

	t.Run("PerfectPredictionDiagonal", func(t *testing.T) {
		cm, err := NewConfusionMatrix(2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		// 15 test samples all predicted correctly.
		trueClasses := make([]int, 15)
		for i := 8; i < 15; i++ {
			trueClasses[i] = 1
		}
		if err := cm.Update(trueClasses, trueClasses); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		diagonal := cm.Matrix[0][0] + cm.Matrix[1][1]
		if diagonal != 15 {
			t.Errorf("Diagonal sums to %d, expected 15", diagonal)
		}
		if cm.Matrix[0][1] != 0 || cm.Matrix[1][0] != 0 {
			t.Errorf("Off-diagonal entries not zero: %v", cm.Matrix)
		}
		if cm.Accuracy() != 1.0 {
			t.Errorf("Expected accuracy 1.0, got %f", cm.Accuracy())
		}
	})

	t.Run("OutOfRangeClasses", func(t *testing.T) {
		cm, err := NewConfusionMatrix(2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if err := cm.Update([]int{2}, []int{0}); err == nil {
			t.Error("Expected error for out-of-range true class")
		}
		if err := cm.Update([]int{0}, []int{-1}); err == nil {
			t.Error("Expected error for out-of-range predicted class")
		}
		if err := cm.Update([]int{0, 1}, []int{0}); err == nil {
			t.Error("Expected error for mismatched lengths")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		cm, err := NewConfusionMatrix(2)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if err := cm.Update([]int{0, 1}, []int{1, 1}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		cm.Reset()
		if cm.TotalSamples != 0 {
			t.Errorf("Expected 0 samples after reset, got %d", cm.TotalSamples)
		}
		for i, row := range cm.Matrix {
			for j, v := range row {
				if v != 0 {
					t.Errorf("Entry [%d][%d] not cleared: %d", i, j, v)
				}
			}
		}
	})
}

// TestMacroMetrics tests macro precision, recall, and F1
func TestMacroMetrics(t *testing.T) {
	cm, err := NewConfusionMatrix(2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Class 0: 3 true, 2 predicted correctly, 1 predicted as class 1.
	// Class 1: 2 true, 1 predicted correctly, 1 predicted as class 0.
	if err := cm.Update([]int{0, 0, 0, 1, 1}, []int{0, 0, 1, 1, 0}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// precision0 = 2/3, precision1 = 1/2 -> macro 7/12
	precision := cm.MacroPrecision()
	if math.Abs(precision-7.0/12.0) > 1e-9 {
		t.Errorf("MacroPrecision = %f, expected %f", precision, 7.0/12.0)
	}

	// recall0 = 2/3, recall1 = 1/2 -> macro 7/12
	recall := cm.MacroRecall()
	if math.Abs(recall-7.0/12.0) > 1e-9 {
		t.Errorf("MacroRecall = %f, expected %f", recall, 7.0/12.0)
	}

	f1 := cm.MacroF1()
	expected := 2 * precision * recall / (precision + recall)
	if math.Abs(f1-expected) > 1e-9 {
		t.Errorf("MacroF1 = %f, expected %f", f1, expected)
	}
}

// TestArgMaxRows tests row-wise argmax extraction
func TestArgMaxRows(t *testing.T) {
	probs := []float32{0.1, 0.7, 0.2, 0.9, 0.05, 0.05}
	preds := ArgMaxRows(probs, 2, 3)
	if preds[0] != 1 || preds[1] != 0 {
		t.Errorf("Expected [1 0], got %v", preds)
	}
}

// TestROCCurve tests the one-vs-rest curve and its AUC
func TestROCCurve(t *testing.T) {
	t.Run("PerfectClassifier", func(t *testing.T) {
		scores := []float32{0.9, 0.8, 0.1, 0.2}
		truth := []int{1, 1, 0, 0}

		points, auc, err := ROCCurve(scores, truth, 1)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if math.Abs(auc-1.0) > 1e-9 {
			t.Errorf("Expected AUC 1.0 for perfect separation, got %f", auc)
		}
		if len(points) != 5 {
			t.Errorf("Expected 5 curve points, got %d", len(points))
		}
		if points[0].TPR != 0 || points[0].FPR != 0 {
			t.Errorf("Curve does not start at origin: %+v", points[0])
		}
		last := points[len(points)-1]
		if last.TPR != 1 || last.FPR != 1 {
			t.Errorf("Curve does not end at (1,1): %+v", last)
		}
	})

	t.Run("AUCWithinBounds", func(t *testing.T) {
		scores := []float32{0.3, 0.6, 0.4, 0.8, 0.2, 0.5}
		truth := []int{0, 1, 1, 0, 0, 1}

		_, auc, err := ROCCurve(scores, truth, 1)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if auc < 0 || auc > 1 {
			t.Errorf("AUC out of [0, 1]: %f", auc)
		}
	})

	t.Run("DecreasingThresholds", func(t *testing.T) {
		scores := []float32{0.3, 0.6, 0.4, 0.8}
		truth := []int{0, 1, 1, 0}

		points, _, err := ROCCurve(scores, truth, 1)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		for i := 1; i < len(points); i++ {
			if points[i].Threshold > points[i-1].Threshold {
				t.Fatalf("Thresholds not decreasing at %d: %f > %f", i, points[i].Threshold, points[i-1].Threshold)
			}
		}
	})

	t.Run("AbsentClassUndefined", func(t *testing.T) {
		points, auc, err := ROCCurve([]float32{0.2, 0.3}, []int{0, 0}, 1)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if points != nil || auc != 0.0 {
			t.Errorf("Expected undefined curve for absent class, got %d points AUC %f", len(points), auc)
		}
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		if _, _, err := ROCCurve([]float32{0.5}, []int{0, 1}, 1); err == nil {
			t.Error("Expected error for mismatched lengths")
		}
	})
}

// TestMulticlassROC tests per-class curve extraction from probability rows
func TestMulticlassROC(t *testing.T) {
	// 4 samples, 3 classes, probabilities concentrated on the true class.
	probs := []float32{
		0.8, 0.1, 0.1,
		0.1, 0.8, 0.1,
		0.1, 0.1, 0.8,
		0.7, 0.2, 0.1,
	}
	truth := []int{0, 1, 2, 0}

	curves, aucs, err := MulticlassROC(probs, truth, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(curves) != 3 || len(aucs) != 3 {
		t.Fatalf("Expected 3 curves and AUCs, got %d and %d", len(curves), len(aucs))
	}

	for class, auc := range aucs {
		if math.Abs(auc-1.0) > 1e-9 {
			t.Errorf("Class %d: expected AUC 1.0 for a perfect classifier, got %f", class, auc)
		}
	}
}
