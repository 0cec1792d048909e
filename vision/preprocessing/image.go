package preprocessing

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/nfnt/resize"
)

// Channels is the number of color channels every processed image carries.
const Channels = 3

// Image is a decoded, resized image ready for model input.
// Data is CHW-ordered (channel, row, column) with intensities scaled to [0, 1].
type Image struct {
	Data   []float32
	Width  int
	Height int
}

// NumElems returns the total number of float values in the image tensor.
func (img *Image) NumElems() int {
	return Channels * img.Height * img.Width
}

// Processor decodes images and converts them to fixed-size float32 tensors.
type Processor struct {
	targetSize int
}

// NewProcessor creates a processor that emits square images of the given size.
func NewProcessor(targetSize int) *Processor {
	return &Processor{targetSize: targetSize}
}

// TargetSize returns the output resolution (height == width).
func (p *Processor) TargetSize() int {
	return p.targetSize
}

// DecodeAndResize decodes an image in any registered format and resizes it to
// the target resolution with bilinear filtering.
func (p *Processor) DecodeAndResize(r io.Reader) (*Image, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := resize.Resize(uint(p.targetSize), uint(p.targetSize), src, resize.Bilinear)

	plane := p.targetSize * p.targetSize
	data := make([]float32, Channels*plane)

	for y := 0; y < p.targetSize; y++ {
		for x := 0; x < p.targetSize; x++ {
			r16, g16, b16, _ := resized.At(x, y).RGBA()
			idx := y*p.targetSize + x
			data[idx] = float32(r16) / 65535.0
			data[plane+idx] = float32(g16) / 65535.0
			data[2*plane+idx] = float32(b16) / 65535.0
		}
	}

	return &Image{
		Data:   data,
		Width:  p.targetSize,
		Height: p.targetSize,
	}, nil
}

// DecodeFile opens and processes a single image file.
func (p *Processor) DecodeFile(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return p.DecodeAndResize(file)
}

// Stack copies a slice of processed images into one contiguous batch buffer
// of shape [len(images), Channels, size, size].
func Stack(images []*Image) ([]float32, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("cannot stack an empty image list")
	}

	perImage := images[0].NumElems()
	out := make([]float32, len(images)*perImage)
	for i, img := range images {
		if img.NumElems() != perImage {
			return nil, fmt.Errorf("image %d has %d elements, expected %d", i, img.NumElems(), perImage)
		}
		copy(out[i*perImage:(i+1)*perImage], img.Data)
	}

	return out, nil
}
