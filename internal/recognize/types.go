// Package recognize implements identity classification of normalized face
// crops against the enrolled training set using k-nearest-neighbor search.
package recognize

import (
	"errors"
	"image"
)

// InputSize is the side length of the normalized square crop the classifier
// expects. Feature vectors are flattened RGB pixels of this crop.
const InputSize = 50

// Dim is the feature vector dimensionality.
const Dim = InputSize * InputSize * 3

// ErrNoModel indicates the classifier has no trained samples. Fatal at
// session start, never retried mid-session.
var ErrNoModel = errors.New("recognize: no training samples loaded")

// Neighbor is one near-neighbor vote from the training set.
type Neighbor struct {
	Label    string
	Distance float64
}

// Result is the structured classification outcome for a single face crop:
// the predicted label, the nearest-neighbor distance, and the full set of
// near-neighbor evidence.
type Result struct {
	Label     string
	Distance  float64
	Neighbors []Neighbor
}

// Classifier classifies a face crop against the enrolled identities.
type Classifier interface {
	Classify(crop image.Image) (Result, error)
}
