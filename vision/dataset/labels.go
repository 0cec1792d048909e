package dataset

import (
	"fmt"
	"sort"
)

// LabelCodec maintains a stable bijection between class names and contiguous
// integer indices. The mapping is fixed for the lifetime of one codec;
// building a new codec from a different label set may produce a different
// mapping.
type LabelCodec struct {
	classNames []string
	classToIdx map[string]int
}

// NewLabelCodec builds a codec from the full set of observed labels. Distinct
// names are assigned indices in sorted order, so the mapping is deterministic
// for a given label set regardless of input ordering.
func NewLabelCodec(labels []string) (*LabelCodec, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("cannot build a label codec from zero labels")
	}

	seen := make(map[string]bool)
	var names []string
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			names = append(names, label)
		}
	}
	sort.Strings(names)

	classToIdx := make(map[string]int, len(names))
	for i, name := range names {
		classToIdx[name] = i
	}

	return &LabelCodec{
		classNames: names,
		classToIdx: classToIdx,
	}, nil
}

// Encode returns the integer index for a class name.
func (c *LabelCodec) Encode(label string) (int, error) {
	idx, ok := c.classToIdx[label]
	if !ok {
		return 0, fmt.Errorf("unknown class name %q", label)
	}
	return idx, nil
}

// EncodeAll encodes a slice of class names in one pass.
func (c *LabelCodec) EncodeAll(labels []string) ([]int, error) {
	encoded := make([]int, len(labels))
	for i, label := range labels {
		idx, err := c.Encode(label)
		if err != nil {
			return nil, err
		}
		encoded[i] = idx
	}
	return encoded, nil
}

// ClassName returns the class name for an integer index.
func (c *LabelCodec) ClassName(idx int) (string, error) {
	if idx < 0 || idx >= len(c.classNames) {
		return "", fmt.Errorf("class index %d out of range [0, %d)", idx, len(c.classNames))
	}
	return c.classNames[idx], nil
}

// Classes returns the ordered class names.
func (c *LabelCodec) Classes() []string {
	names := make([]string, len(c.classNames))
	copy(names, c.classNames)
	return names
}

// NumClasses returns the number of distinct classes.
func (c *LabelCodec) NumClasses() int {
	return len(c.classNames)
}

// OneHot converts integer class indices to one-hot rows of length numClasses.
// An index outside [0, numClasses) indicates a codec/label mismatch and is an
// error.
func OneHot(indices []int, numClasses int) ([][]float32, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("numClasses must be positive, got %d", numClasses)
	}

	rows := make([][]float32, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= numClasses {
			return nil, fmt.Errorf("label index %d out of range [0, %d)", idx, numClasses)
		}
		row := make([]float32, numClasses)
		row[idx] = 1.0
		rows[i] = row
	}

	return rows, nil
}
