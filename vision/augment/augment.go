package augment

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/cortexlab/mriclass/vision/preprocessing"
)

// Ranges configures the random perturbations applied to training images.
type Ranges struct {
	MaxRotationDeg float64 // rotation sampled from [-max, max] degrees
	MaxShiftFrac   float64 // translation as a fraction of width/height
	MaxZoomFrac    float64 // zoom factor sampled from [1-max, 1+max]
	HorizontalFlip bool    // mirror horizontally with probability 0.5
}

// DefaultRanges returns the standard augmentation envelope.
func DefaultRanges() Ranges {
	return Ranges{
		MaxRotationDeg: 15.0,
		MaxShiftFrac:   0.10,
		MaxZoomFrac:    0.10,
		HorizontalFlip: true,
	}
}

// Stream produces an endless, restartable sequence of randomly augmented
// training batches. Each call to NextBatch yields one batch; the stream never
// signals exhaustion, so callers bound consumption with an epoch/step budget.
// Output is deterministic for a fixed seed.
type Stream struct {
	images    []*preprocessing.Image
	labels    []int
	batchSize int
	ranges    Ranges
	seed      int64

	rng      *rand.Rand
	indices  []int
	position int
	mu       sync.Mutex
}

// NewStream creates an augmentation stream over the training images.
func NewStream(images []*preprocessing.Image, labels []int, batchSize int, ranges Ranges, seed int64) (*Stream, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("cannot stream an empty training set")
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("images and labels must be aligned: got %d and %d", len(images), len(labels))
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	s := &Stream{
		images:    images,
		labels:    labels,
		batchSize: batchSize,
		ranges:    ranges,
		seed:      seed,
	}
	s.restart()
	return s, nil
}

// Reset restarts the stream from its initial seeded state, reproducing the
// exact batch sequence from the beginning.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restart()
}

func (s *Stream) restart() {
	s.rng = rand.New(rand.NewSource(s.seed))
	s.indices = make([]int, len(s.images))
	for i := range s.indices {
		s.indices[i] = i
	}
	s.shuffle()
	s.position = 0
}

func (s *Stream) shuffle() {
	s.rng.Shuffle(len(s.indices), func(i, j int) {
		s.indices[i], s.indices[j] = s.indices[j], s.indices[i]
	})
}

// BatchSize returns the number of samples per batch.
func (s *Stream) BatchSize() int {
	return s.batchSize
}

// NextBatch returns one augmented batch of exactly BatchSize samples. When
// the current permutation runs out the stream reshuffles and keeps going.
// The returned slices are freshly allocated for every batch.
func (s *Stream) NextBatch() (data []float32, labels []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perImage := s.images[0].NumElems()
	data = make([]float32, s.batchSize*perImage)
	labels = make([]int, s.batchSize)

	for i := 0; i < s.batchSize; i++ {
		if s.position >= len(s.indices) {
			s.shuffle()
			s.position = 0
		}
		idx := s.indices[s.position]
		s.position++

		augmented := s.transform(s.images[idx])
		copy(data[i*perImage:(i+1)*perImage], augmented)
		labels[i] = s.labels[idx]
	}

	return data, labels
}

// transform applies one independently sampled affine perturbation to a single
// image: rotation, shift, zoom, and optional horizontal flip. Destination
// pixels are filled by inverse-mapping with nearest-neighbor sampling; source
// coordinates falling outside the image become zero.
func (s *Stream) transform(img *preprocessing.Image) []float32 {
	angle := (s.rng.Float64()*2 - 1) * s.ranges.MaxRotationDeg * math.Pi / 180.0
	shiftX := (s.rng.Float64()*2 - 1) * s.ranges.MaxShiftFrac * float64(img.Width)
	shiftY := (s.rng.Float64()*2 - 1) * s.ranges.MaxShiftFrac * float64(img.Height)
	zoom := 1.0 + (s.rng.Float64()*2-1)*s.ranges.MaxZoomFrac
	flip := s.ranges.HorizontalFlip && s.rng.Float64() < 0.5

	w, h := img.Width, img.Height
	plane := w * h
	out := make([]float32, img.NumElems())

	cx := float64(w-1) / 2
	cy := float64(h-1) / 2
	sin, cos := math.Sincos(angle)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Inverse mapping: undo shift, then rotation and zoom about the center.
			dx := float64(x) - cx - shiftX
			dy := float64(y) - cy - shiftY
			srcX := (cos*dx + sin*dy) / zoom
			srcY := (-sin*dx + cos*dy) / zoom

			if flip {
				srcX = -srcX
			}

			sx := int(math.Round(srcX + cx))
			sy := int(math.Round(srcY + cy))
			if sx < 0 || sx >= w || sy < 0 || sy >= h {
				continue
			}

			dst := y*w + x
			src := sy*w + sx
			for c := 0; c < preprocessing.Channels; c++ {
				out[c*plane+dst] = img.Data[c*plane+src]
			}
		}
	}

	return out
}
