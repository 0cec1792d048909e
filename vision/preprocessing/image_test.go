package preprocessing

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// encodePNG renders a solid-color image of the given size as PNG bytes.
func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// TestDecodeAndResize tests decoding, resizing, and the CHW layout
func TestDecodeAndResize(t *testing.T) {
	t.Run("OutputShape", func(t *testing.T) {
		proc := NewProcessor(32)
		img, err := proc.DecodeAndResize(bytes.NewReader(encodePNG(t, 64, 48, color.RGBA{R: 255, A: 255})))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if img.Width != 32 || img.Height != 32 {
			t.Errorf("Expected 32x32 output, got %dx%d", img.Width, img.Height)
		}
		if len(img.Data) != Channels*32*32 {
			t.Errorf("Expected %d values, got %d", Channels*32*32, len(img.Data))
		}
	})

	t.Run("ChannelValues", func(t *testing.T) {
		// A pure red image must put all intensity in the first channel plane.
		proc := NewProcessor(8)
		img, err := proc.DecodeAndResize(bytes.NewReader(encodePNG(t, 8, 8, color.RGBA{R: 255, A: 255})))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		plane := 8 * 8
		for i := 0; i < plane; i++ {
			if img.Data[i] < 0.99 {
				t.Fatalf("Red plane value %d is %f, expected ~1", i, img.Data[i])
			}
			if img.Data[plane+i] > 0.01 || img.Data[2*plane+i] > 0.01 {
				t.Fatalf("Green/blue planes not zero at %d: %f/%f", i, img.Data[plane+i], img.Data[2*plane+i])
			}
		}
	})

	t.Run("ValuesInUnitRange", func(t *testing.T) {
		proc := NewProcessor(16)
		img, err := proc.DecodeAndResize(bytes.NewReader(encodePNG(t, 20, 20, color.RGBA{R: 17, G: 200, B: 99, A: 255})))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		for i, v := range img.Data {
			if v < 0 || v > 1 {
				t.Fatalf("Value %d out of [0, 1]: %f", i, v)
			}
		}
	})

	t.Run("InvalidData", func(t *testing.T) {
		proc := NewProcessor(16)
		if _, err := proc.DecodeAndResize(bytes.NewReader([]byte("not an image"))); err == nil {
			t.Error("Expected error for undecodable data")
		}
	})
}

// TestStack tests batch assembly from processed images
func TestStack(t *testing.T) {
	t.Run("ContiguousCopy", func(t *testing.T) {
		a := &Image{Data: make([]float32, Channels*4), Width: 2, Height: 2}
		b := &Image{Data: make([]float32, Channels*4), Width: 2, Height: 2}
		for i := range a.Data {
			a.Data[i] = 0.25
			b.Data[i] = 0.75
		}

		batch, err := Stack([]*Image{a, b})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(batch) != 2*Channels*4 {
			t.Fatalf("Expected %d values, got %d", 2*Channels*4, len(batch))
		}
		if batch[0] != 0.25 || batch[Channels*4] != 0.75 {
			t.Errorf("Images not copied in order: %f, %f", batch[0], batch[Channels*4])
		}
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		a := &Image{Data: make([]float32, Channels*4), Width: 2, Height: 2}
		b := &Image{Data: make([]float32, Channels*9), Width: 3, Height: 3}
		if _, err := Stack([]*Image{a, b}); err == nil {
			t.Error("Expected error for mismatched image sizes")
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if _, err := Stack(nil); err == nil {
			t.Error("Expected error for empty image list")
		}
	})
}
