package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
)

// ArrayManifest records the logical shapes of the flattened array dumps so
// downstream tooling can reshape them.
type ArrayManifest struct {
	ImagesFile  string   `json:"images_file"`
	LabelsFile  string   `json:"labels_file"`
	ImagesShape []int    `json:"images_shape"` // [n, channels, height, width]
	LabelsShape []int    `json:"labels_shape"` // [n]
	ClassNames  []string `json:"class_names"`
}

// SaveArrays dumps the stacked image batch and encoded labels as .npy files
// under dir, plus a manifest describing their shapes. Images are written
// flattened; the manifest carries the [n, channels, height, width] shape.
func SaveArrays(dir string, images []float32, imagesShape []int, labels []int, classNames []string) error {
	if len(imagesShape) != 4 {
		return fmt.Errorf("images shape must have 4 dimensions, got %d", len(imagesShape))
	}
	elems := 1
	for _, d := range imagesShape {
		if d <= 0 {
			return fmt.Errorf("images shape has non-positive dimension: %v", imagesShape)
		}
		elems *= d
	}
	if len(images) != elems {
		return fmt.Errorf("image data length %d does not match shape %v", len(images), imagesShape)
	}
	if len(labels) != imagesShape[0] {
		return fmt.Errorf("label count %d does not match image count %d", len(labels), imagesShape[0])
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create array directory: %w", err)
	}

	if err := writeNpy(filepath.Join(dir, "images.npy"), images); err != nil {
		return err
	}

	encoded := make([]int64, len(labels))
	for i, label := range labels {
		encoded[i] = int64(label)
	}
	if err := writeNpy(filepath.Join(dir, "labels.npy"), encoded); err != nil {
		return err
	}

	manifest := ArrayManifest{
		ImagesFile:  "images.npy",
		LabelsFile:  "labels.npy",
		ImagesShape: imagesShape,
		LabelsShape: []int{len(labels)},
		ClassNames:  classNames,
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal array manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write array manifest: %w", err)
	}

	return nil
}

func writeNpy(path string, data interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := npyio.Write(file, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadLabels reads an encoded label dump back into int form.
func LoadLabels(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	var encoded []int64
	if err := npyio.Read(file, &encoded); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	labels := make([]int, len(encoded))
	for i, v := range encoded {
		labels[i] = int(v)
	}
	return labels, nil
}
