package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// SplitConfig controls the two-stage train/validation/test partition.
type SplitConfig struct {
	Holdout float64 // fraction held out of the first stage; the holdout is then halved into val/test
	Seed    int64
}

// DefaultSplitConfig returns the standard 70/15/15 partition.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{
		Holdout: 0.30,
		Seed:    42,
	}
}

// Split holds the three disjoint index sets of a partition. Their union covers
// [0, N) exactly once.
type Split struct {
	Train []int
	Val   []int
	Test  []int
}

// HoldoutSplit partitions the index range [0, n) into a kept set of size
// round(n*(1-holdout)) and a held-out set of size round(n*holdout), using a
// seeded shuffle so the same seed and size always reproduce the same split.
func HoldoutSplit(n int, holdout float64, seed int64) (kept, held []int, err error) {
	if n <= 0 {
		return nil, nil, fmt.Errorf("cannot split %d samples", n)
	}
	if holdout <= 0 || holdout >= 1 {
		return nil, nil, fmt.Errorf("holdout fraction must be in (0, 1), got %g", holdout)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	heldSize := int(math.Round(float64(n) * holdout))
	keptSize := n - heldSize

	return indices[:keptSize], indices[keptSize:], nil
}

// TrainValTestSplit applies the holdout split twice: first separating train
// from a temporary holdout, then halving the holdout into validation and
// test. With the default 0.30 holdout this yields a ~70/15/15 partition.
// Class balance across subsets is not guaranteed (no stratification).
func TrainValTestSplit(n int, cfg SplitConfig) (*Split, error) {
	train, temp, err := HoldoutSplit(n, cfg.Holdout, cfg.Seed)
	if err != nil {
		return nil, err
	}

	valPos, testPos, err := HoldoutSplit(len(temp), 0.5, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to split holdout into val/test: %w", err)
	}

	val := make([]int, len(valPos))
	for i, p := range valPos {
		val[i] = temp[p]
	}
	test := make([]int, len(testPos))
	for i, p := range testPos {
		test[i] = temp[p]
	}

	if len(train) == 0 || len(val) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("split of %d samples produced an empty subset (train=%d val=%d test=%d)",
			n, len(train), len(val), len(test))
	}

	return &Split{Train: train, Val: val, Test: test}, nil
}
