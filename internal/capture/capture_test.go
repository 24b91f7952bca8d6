package capture

import (
	"image"
	"testing"
)

func TestStrategiesProgressivelyPermissive(t *testing.T) {
	strategies := Strategies()
	if len(strategies) != 4 {
		t.Fatalf("expected 4 detection strategies, got %d", len(strategies))
	}

	if !strategies[0].Equalize {
		t.Error("expected the standard strategy to equalize")
	}

	for i := 1; i < len(strategies); i++ {
		prev, cur := strategies[i-1], strategies[i]
		if cur.ScaleFactor > prev.ScaleFactor {
			t.Errorf("strategy %d scale factor %f grew over %f", i, cur.ScaleFactor, prev.ScaleFactor)
		}
		if cur.MinNeighbors > prev.MinNeighbors {
			t.Errorf("strategy %d min neighbors %d grew over %d", i, cur.MinNeighbors, prev.MinNeighbors)
		}
		if cur.MinSize > prev.MinSize {
			t.Errorf("strategy %d min size %d grew over %d", i, cur.MinSize, prev.MinSize)
		}
	}
}

func TestLargestRegion(t *testing.T) {
	boxes := []image.Rectangle{
		image.Rect(0, 0, 10, 10),
		image.Rect(5, 5, 45, 45),
		image.Rect(0, 0, 20, 20),
	}
	if got := LargestRegion(boxes); got != image.Rect(5, 5, 45, 45) {
		t.Errorf("expected the largest box, got %v", got)
	}
}

func TestLargestRegionSingleBox(t *testing.T) {
	box := image.Rect(1, 2, 3, 4)
	if got := LargestRegion([]image.Rectangle{box}); got != box {
		t.Errorf("expected %v, got %v", box, got)
	}
}

func TestLargestRegionTieBreak(t *testing.T) {
	// Equal areas resolve by position so the selection is independent of
	// detection order.
	a := image.Rect(10, 5, 20, 15)
	b := image.Rect(0, 5, 10, 15)
	c := image.Rect(0, 8, 10, 18)

	expected := b // same row as a but further left; above c
	for _, boxes := range [][]image.Rectangle{
		{a, b, c},
		{c, b, a},
		{b, a, c},
	} {
		if got := LargestRegion(boxes); got != expected {
			t.Errorf("order %v: expected %v, got %v", boxes, expected, got)
		}
	}
}
