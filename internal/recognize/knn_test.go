package recognize

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

// solidImage returns a uniformly colored crop; Vectorize maps it to a
// constant vector, which makes classification outcomes exact.
func solidImage(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

var (
	red   = color.RGBA{R: 200, A: 255}
	green = color.RGBA{G: 200, A: 255}
	blue  = color.RGBA{B: 200, A: 255}
)

// trainOn builds a classifier indexed with n samples per label, each label
// tied to one solid color.
func trainOn(t *testing.T, k int, samples map[string]color.RGBA, n int) *KNN {
	t.Helper()
	var labels []string
	var vectors [][]float32
	for label, c := range samples {
		for i := 0; i < n; i++ {
			labels = append(labels, label)
			vectors = append(vectors, Vectorize(solidImage(c)))
		}
	}
	knn := NewKNN(k)
	if err := knn.Train(labels, vectors); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return knn
}

func TestVectorizeShape(t *testing.T) {
	vec := Vectorize(solidImage(red))
	if len(vec) != Dim {
		t.Fatalf("expected %d features, got %d", Dim, len(vec))
	}
	// Uniform input stays uniform after scaling.
	for i := 0; i < len(vec); i += 3 {
		if vec[i] != vec[0] || vec[i+1] != vec[1] || vec[i+2] != vec[2] {
			t.Fatalf("expected uniform vector, found deviation at %d", i)
		}
	}
}

func TestClassifyExactMatch(t *testing.T) {
	knn := trainOn(t, 5, map[string]color.RGBA{"alice": red, "bob": green}, 5)

	result, err := knn.Classify(solidImage(red))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Label != "alice" {
		t.Errorf("expected label alice, got %q", result.Label)
	}
	if result.Distance != 0 {
		t.Errorf("expected zero distance for exact match, got %f", result.Distance)
	}
	if len(result.Neighbors) != 5 {
		t.Errorf("expected 5 neighbors, got %d", len(result.Neighbors))
	}
	for _, n := range result.Neighbors {
		if n.Label != "alice" {
			t.Errorf("expected all near neighbors to be alice, got %q", n.Label)
		}
	}
}

func TestClassifyNearestWins(t *testing.T) {
	knn := trainOn(t, 5, map[string]color.RGBA{"alice": red, "bob": blue}, 5)

	// A reddish query sits closer to alice's samples than bob's.
	result, err := knn.Classify(solidImage(color.RGBA{R: 180, G: 20, A: 255}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Label != "alice" {
		t.Errorf("expected label alice, got %q", result.Label)
	}
	if result.Distance <= 0 {
		t.Errorf("expected positive distance, got %f", result.Distance)
	}
}

func TestClassifyNeighborsOrderedByDistance(t *testing.T) {
	knn := trainOn(t, 5, map[string]color.RGBA{"alice": red, "bob": green, "carol": blue}, 2)

	result, err := knn.Classify(solidImage(red))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	for i := 1; i < len(result.Neighbors); i++ {
		if result.Neighbors[i].Distance < result.Neighbors[i-1].Distance {
			t.Fatalf("neighbors not ordered by distance: %v", result.Neighbors)
		}
	}
	if result.Distance != result.Neighbors[0].Distance {
		t.Errorf("result distance %f does not match nearest neighbor %f",
			result.Distance, result.Neighbors[0].Distance)
	}
}

func TestClassifyWithoutModel(t *testing.T) {
	knn := NewKNN(5)
	if knn.Ready() {
		t.Error("empty classifier should not be ready")
	}
	_, err := knn.Classify(solidImage(red))
	if !errors.Is(err, ErrNoModel) {
		t.Errorf("expected ErrNoModel, got %v", err)
	}
}

func TestTrainValidatesInput(t *testing.T) {
	knn := NewKNN(5)

	if err := knn.Train([]string{"a", "b"}, [][]float32{make([]float32, Dim)}); err == nil {
		t.Error("expected error for mismatched labels and vectors")
	}
	if err := knn.Train([]string{"a"}, [][]float32{{1, 2, 3}}); err == nil {
		t.Error("expected error for wrong vector dimension")
	}
}

func TestTrainReplacesIndex(t *testing.T) {
	knn := trainOn(t, 5, map[string]color.RGBA{"alice": red}, 4)
	if knn.Count() != 4 {
		t.Fatalf("expected 4 samples, got %d", knn.Count())
	}

	if err := knn.Train([]string{"bob"}, [][]float32{Vectorize(solidImage(green))}); err != nil {
		t.Fatalf("retrain failed: %v", err)
	}
	if knn.Count() != 1 {
		t.Fatalf("expected retrain to replace index, got %d samples", knn.Count())
	}

	result, err := knn.Classify(solidImage(green))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Label != "bob" {
		t.Errorf("expected label bob after retrain, got %q", result.Label)
	}
}

func TestClassifyFewerSamplesThanK(t *testing.T) {
	knn := trainOn(t, 5, map[string]color.RGBA{"alice": red}, 2)

	result, err := knn.Classify(solidImage(red))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(result.Neighbors) != 2 {
		t.Errorf("expected 2 neighbors, got %d", len(result.Neighbors))
	}
	if result.Label != "alice" {
		t.Errorf("expected label alice, got %q", result.Label)
	}
}
