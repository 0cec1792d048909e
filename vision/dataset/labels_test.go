package dataset

import (
	"testing"
)

// TestNewLabelCodec tests codec construction and its ordering rule
func TestNewLabelCodec(t *testing.T) {
	t.Run("SortedUniqueOrdering", func(t *testing.T) {
		codec, err := NewLabelCodec([]string{"tumor", "healthy", "tumor", "cyst"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		classes := codec.Classes()
		expected := []string{"cyst", "healthy", "tumor"}
		if len(classes) != len(expected) {
			t.Fatalf("Expected %d classes, got %d", len(expected), len(classes))
		}
		for i, name := range expected {
			if classes[i] != name {
				t.Errorf("Class %d: expected %s, got %s", i, name, classes[i])
			}
		}

		if codec.NumClasses() != 3 {
			t.Errorf("Expected 3 classes, got %d", codec.NumClasses())
		}
	})

	t.Run("DeterministicUnderPermutation", func(t *testing.T) {
		a, err := NewLabelCodec([]string{"b", "a", "c"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		b, err := NewLabelCodec([]string{"c", "b", "a", "a"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		for _, name := range []string{"a", "b", "c"} {
			idxA, _ := a.Encode(name)
			idxB, _ := b.Encode(name)
			if idxA != idxB {
				t.Errorf("Class %s: index %d vs %d across permuted inputs", name, idxA, idxB)
			}
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if _, err := NewLabelCodec(nil); err == nil {
			t.Error("Expected error for empty label set")
		}
	})
}

// TestLabelCodecRoundTrip verifies ClassName(Encode(C)) == C for every class
func TestLabelCodecRoundTrip(t *testing.T) {
	codec, err := NewLabelCodec([]string{"glioma", "meningioma", "pituitary", "notumor"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, class := range codec.Classes() {
		idx, err := codec.Encode(class)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", class, err)
		}
		name, err := codec.ClassName(idx)
		if err != nil {
			t.Fatalf("ClassName(%d) failed: %v", idx, err)
		}
		if name != class {
			t.Errorf("Round-trip mismatch: %s -> %d -> %s", class, idx, name)
		}
	}
}

// TestLabelCodecErrors tests unknown names and out-of-range indices
func TestLabelCodecErrors(t *testing.T) {
	codec, err := NewLabelCodec([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := codec.Encode("missing"); err == nil {
		t.Error("Expected error for unknown class name")
	}
	if _, err := codec.ClassName(-1); err == nil {
		t.Error("Expected error for negative index")
	}
	if _, err := codec.ClassName(2); err == nil {
		t.Error("Expected error for index beyond class count")
	}
	if _, err := codec.EncodeAll([]string{"a", "missing"}); err == nil {
		t.Error("Expected EncodeAll to surface unknown class name")
	}
}

// TestOneHot tests one-hot conversion and its round-trip with argmax
func TestOneHot(t *testing.T) {
	t.Run("SingleOneAtIndex", func(t *testing.T) {
		rows, err := OneHot([]int{0, 2, 1}, 3)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("Expected 3 rows, got %d", len(rows))
		}

		for i, expected := range []int{0, 2, 1} {
			hot := -1
			sum := float32(0)
			for j, v := range rows[i] {
				sum += v
				if v == 1.0 {
					hot = j
				}
			}
			if sum != 1.0 {
				t.Errorf("Row %d sums to %f, expected 1", i, sum)
			}
			if hot != expected {
				t.Errorf("Row %d hot at %d, expected %d", i, hot, expected)
			}
		}
	})

	t.Run("OutOfRangeIndex", func(t *testing.T) {
		if _, err := OneHot([]int{3}, 3); err == nil {
			t.Error("Expected error for index 3 with 3 classes")
		}
		if _, err := OneHot([]int{-1}, 3); err == nil {
			t.Error("Expected error for negative index")
		}
	})

	t.Run("RoundTripWithCodec", func(t *testing.T) {
		codec, err := NewLabelCodec([]string{"x", "y", "z"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		for _, class := range codec.Classes() {
			idx, _ := codec.Encode(class)
			rows, err := OneHot([]int{idx}, codec.NumClasses())
			if err != nil {
				t.Fatalf("OneHot failed: %v", err)
			}

			argmax := 0
			for j, v := range rows[0] {
				if v > rows[0][argmax] {
					argmax = j
				}
			}
			if argmax != idx {
				t.Errorf("argmax(one_hot(%d)) = %d", idx, argmax)
			}
		}
	})
}
