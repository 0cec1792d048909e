package augment

import (
	"testing"

	"github.com/cortexlab/mriclass/vision/preprocessing"
)

// makeImages builds n uniform test images of the given side length, each
// filled with a distinct constant value.
func makeImages(n, size int) []*preprocessing.Image {
	images := make([]*preprocessing.Image, n)
	for i := range images {
		data := make([]float32, preprocessing.Channels*size*size)
		for j := range data {
			data[j] = float32(i+1) / float32(n+1)
		}
		images[i] = &preprocessing.Image{Data: data, Width: size, Height: size}
	}
	return images
}

// TestNewStream tests stream construction validation
func TestNewStream(t *testing.T) {
	images := makeImages(4, 8)
	labels := []int{0, 1, 0, 1}

	t.Run("Valid", func(t *testing.T) {
		stream, err := NewStream(images, labels, 2, DefaultRanges(), 1)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if stream.BatchSize() != 2 {
			t.Errorf("Expected batch size 2, got %d", stream.BatchSize())
		}
	})

	t.Run("EmptyTrainingSet", func(t *testing.T) {
		if _, err := NewStream(nil, nil, 2, DefaultRanges(), 1); err == nil {
			t.Error("Expected error for empty training set")
		}
	})

	t.Run("MisalignedLabels", func(t *testing.T) {
		if _, err := NewStream(images, []int{0, 1}, 2, DefaultRanges(), 1); err == nil {
			t.Error("Expected error for misaligned labels")
		}
	})

	t.Run("NonPositiveBatchSize", func(t *testing.T) {
		if _, err := NewStream(images, labels, 0, DefaultRanges(), 1); err == nil {
			t.Error("Expected error for zero batch size")
		}
	})
}

// TestNextBatch tests batch shape, endlessness, and label validity
func TestNextBatch(t *testing.T) {
	images := makeImages(5, 8)
	labels := []int{0, 1, 2, 1, 0}
	perImage := images[0].NumElems()

	stream, err := NewStream(images, labels, 3, DefaultRanges(), 42)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Consume more batches than the dataset holds; the stream must keep
	// producing full batches past exhaustion.
	for batch := 0; batch < 10; batch++ {
		data, batchLabels := stream.NextBatch()

		if len(data) != 3*perImage {
			t.Fatalf("Batch %d has %d values, expected %d", batch, len(data), 3*perImage)
		}
		if len(batchLabels) != 3 {
			t.Fatalf("Batch %d has %d labels, expected 3", batch, len(batchLabels))
		}
		for i, label := range batchLabels {
			if label < 0 || label > 2 {
				t.Errorf("Batch %d label %d out of range: %d", batch, i, label)
			}
		}
		for i, v := range data {
			if v < 0 || v > 1 {
				t.Fatalf("Batch %d value %d out of [0, 1]: %f", batch, i, v)
			}
		}
	}
}

// TestStreamReset tests that Reset reproduces the exact batch sequence
func TestStreamReset(t *testing.T) {
	images := makeImages(6, 8)
	labels := []int{0, 0, 1, 1, 2, 2}

	stream, err := NewStream(images, labels, 2, DefaultRanges(), 7)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	firstData := make([][]float32, 4)
	firstLabels := make([][]int, 4)
	for i := range firstData {
		firstData[i], firstLabels[i] = stream.NextBatch()
	}

	stream.Reset()

	for i := range firstData {
		data, batchLabels := stream.NextBatch()
		for j := range batchLabels {
			if batchLabels[j] != firstLabels[i][j] {
				t.Fatalf("Batch %d label %d differs after reset: %d vs %d",
					i, j, batchLabels[j], firstLabels[i][j])
			}
		}
		for j := range data {
			if data[j] != firstData[i][j] {
				t.Fatalf("Batch %d value %d differs after reset: %f vs %f",
					i, j, data[j], firstData[i][j])
			}
		}
	}
}

// TestTransformNoOp tests that a zero-range transform preserves the image
func TestTransformNoOp(t *testing.T) {
	images := makeImages(1, 8)
	labels := []int{0}

	stream, err := NewStream(images, labels, 1, Ranges{}, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	data, _ := stream.NextBatch()
	for i, v := range data {
		if v != images[0].Data[i] {
			t.Fatalf("Zero-range transform changed value %d: %f vs %f", i, v, images[0].Data[i])
		}
	}
}
