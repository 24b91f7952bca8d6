package recognize

import (
	"fmt"
	"image"
	"sync"

	"github.com/coder/hnsw"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// voteK is how many nearest training samples vote on the predicted label.
const voteK = 3

// KNN is a Classifier backed by an HNSW graph over the enrolled training
// vectors. Distances are Euclidean in the flattened crop space, matching
// the enrollment pipeline.
type KNN struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[int]
	labels map[int]string
	k      int
}

// NewKNN creates an empty classifier that reports k near neighbors per query.
func NewKNN(k int) *KNN {
	if k < voteK {
		k = voteK
	}
	return &KNN{
		labels: make(map[int]string),
		k:      k,
	}
}

// Train replaces the index with the given training set. Labels and vectors
// are parallel slices; every vector must have the classifier dimensionality.
func (c *KNN) Train(labels []string, vectors [][]float32) error {
	if len(labels) != len(vectors) {
		return fmt.Errorf("recognize: %d labels for %d vectors", len(labels), len(vectors))
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	idx := make(map[int]string, len(labels))
	for i, vec := range vectors {
		if len(vec) != Dim {
			return fmt.Errorf("recognize: sample %d has dimension %d, want %d", i, len(vec), Dim)
		}
		g.Add(hnsw.MakeNode(i, vec))
		idx[i] = labels[i]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.graph = g
	c.labels = idx
	return nil
}

// Ready reports whether the classifier has trained samples.
func (c *KNN) Ready() bool {
	return c.Count() > 0
}

// Count returns the number of indexed training samples.
func (c *KNN) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.labels)
}

// Classify finds the k nearest training samples to the crop's feature
// vector. The predicted label is the majority among the voteK nearest
// samples, ties broken by the single nearest.
func (c *KNN) Classify(crop image.Image) (Result, error) {
	query := Vectorize(crop)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.graph == nil || len(c.labels) == 0 {
		return Result{}, ErrNoModel
	}

	k := c.k
	if n := len(c.labels); k > n {
		k = n
	}
	nodes := c.graph.Search(query, k)
	if len(nodes) == 0 {
		return Result{}, fmt.Errorf("recognize: index search returned no neighbors")
	}

	neighbors := make([]Neighbor, len(nodes))
	for i, n := range nodes {
		neighbors[i] = Neighbor{
			Label:    c.labels[n.Key],
			Distance: float64(hnsw.EuclideanDistance(query, n.Value)),
		}
	}

	return Result{
		Label:     vote(neighbors),
		Distance:  neighbors[0].Distance,
		Neighbors: neighbors,
	}, nil
}

// vote returns the most common label among the voteK nearest neighbors.
// The nearest neighbor wins ties because counts are checked in distance
// order and only strictly greater counts displace the leader.
func vote(neighbors []Neighbor) string {
	n := voteK
	if n > len(neighbors) {
		n = len(neighbors)
	}
	counts := make(map[string]int, n)
	best := neighbors[0].Label
	for _, nb := range neighbors[:n] {
		counts[nb.Label]++
		if counts[nb.Label] > counts[best] {
			best = nb.Label
		}
	}
	return best
}
