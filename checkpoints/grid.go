package checkpoints

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/cortexlab/mriclass/vision/preprocessing"
)

// GridCell describes one tile of a sample grid: its position and the true
// and predicted class names.
type GridCell struct {
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	TrueClass string `json:"true_class"`
	PredClass string `json:"pred_class"`
	Correct   bool   `json:"correct"`
}

// SaveSampleGrid renders up to rows*cols images from a stacked batch as a
// PNG montage and writes a JSON legend mapping each tile to its true and
// predicted class. Images are laid out row-major with a 2px gutter.
func SaveSampleGrid(dir string, images []float32, size int, trueLabels, predLabels []int, classNames []string, rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", rows, cols)
	}
	if len(trueLabels) != len(predLabels) {
		return fmt.Errorf("label length mismatch: %d true vs %d predicted", len(trueLabels), len(predLabels))
	}

	perImage := preprocessing.Channels * size * size
	if len(images) != len(trueLabels)*perImage {
		return fmt.Errorf("image data length %d does not match %d images of side %d",
			len(images), len(trueLabels), size)
	}

	count := rows * cols
	if count > len(trueLabels) {
		count = len(trueLabels)
	}
	if count == 0 {
		return fmt.Errorf("no samples to render")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create grid directory: %w", err)
	}

	const gutter = 2
	canvas := image.NewRGBA(image.Rect(0, 0,
		cols*size+(cols-1)*gutter, rows*size+(rows-1)*gutter))

	cells := make([]GridCell, 0, count)
	plane := size * size

	for idx := 0; idx < count; idx++ {
		row, col := idx/cols, idx%cols
		offsetX := col * (size + gutter)
		offsetY := row * (size + gutter)
		base := idx * perImage

		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				pixel := y*size + x
				canvas.SetRGBA(offsetX+x, offsetY+y, color.RGBA{
					R: clampByte(images[base+pixel]),
					G: clampByte(images[base+plane+pixel]),
					B: clampByte(images[base+2*plane+pixel]),
					A: 255,
				})
			}
		}

		cells = append(cells, GridCell{
			Row:       row,
			Col:       col,
			TrueClass: className(classNames, trueLabels[idx]),
			PredClass: className(classNames, predLabels[idx]),
			Correct:   trueLabels[idx] == predLabels[idx],
		})
	}

	file, err := os.Create(filepath.Join(dir, "sample_grid.png"))
	if err != nil {
		return fmt.Errorf("failed to create grid image: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, canvas); err != nil {
		return fmt.Errorf("failed to encode grid image: %w", err)
	}

	legend, err := json.MarshalIndent(cells, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal grid legend: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sample_grid.json"), legend, 0o644); err != nil {
		return fmt.Errorf("failed to write grid legend: %w", err)
	}

	return nil
}

func clampByte(v float32) uint8 {
	scaled := v * 255
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return uint8(scaled)
}

func className(classNames []string, idx int) string {
	if idx >= 0 && idx < len(classNames) {
		return classNames[idx]
	}
	return fmt.Sprintf("class %d", idx)
}
