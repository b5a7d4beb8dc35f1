package analysis

import (
	"context"
	"math"
	"math/rand"
)

const (
	DefaultTrees         = 100
	DefaultMaxSamples    = 256
	DefaultContamination = 0.1
	DefaultSeed          = 42
)

const eulerGamma = 0.5772156649015329

type ForestConfig struct {
	Trees         int
	MaxSamples    int
	Contamination float64
	Seed          int64
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:         DefaultTrees,
		MaxSamples:    DefaultMaxSamples,
		Contamination: DefaultContamination,
		Seed:          DefaultSeed,
	}
}

type isoNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	size      int
}

type isoTree struct {
	nodes []isoNode
}

// IsolationForest scores points by how quickly random axis-aligned splits isolate them.
type IsolationForest struct {
	cfg        ForestConfig
	trees      []isoTree
	sampleSize int
	offset     float64
}

// FitIsolationForest fits the forest and derives the outlier threshold from the training scores.
func FitIsolationForest(ctx context.Context, X [][]float64, cfg ForestConfig) (*IsolationForest, error) {
	n := len(X)
	if n == 0 {
		return nil, insufficient("empty population")
	}
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultTrees
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}

	psi := cfg.MaxSamples
	if psi > n {
		psi = n
	}
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))

	//nolint:gosec // reproducible partitions, not security sensitive
	rng := rand.New(rand.NewSource(cfg.Seed))
	f := &IsolationForest{cfg: cfg, sampleSize: psi, trees: make([]isoTree, 0, cfg.Trees)}

	for t := 0; t < cfg.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := rng.Perm(n)[:psi]
		var tree isoTree
		tree.grow(X, idx, 0, maxDepth, rng)
		f.trees = append(f.trees, tree)
	}

	scores := f.ScoreSamples(X)
	f.offset = percentile(scores, 100*cfg.Contamination)
	return f, nil
}

func (t *isoTree) grow(X [][]float64, idx []int, depth, maxDepth int, rng *rand.Rand) int {
	nodeID := len(t.nodes)
	t.nodes = append(t.nodes, isoNode{feature: -1, left: -1, right: -1, size: len(idx)})
	if depth >= maxDepth || len(idx) <= 1 {
		return nodeID
	}

	dims := len(X[idx[0]])
	for _, feat := range rng.Perm(dims) {
		lo, hi := X[idx[0]][feat], X[idx[0]][feat]
		for _, i := range idx[1:] {
			v := X[i][feat]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if lo == hi {
			continue
		}

		threshold := lo + rng.Float64()*(hi-lo)
		left := make([]int, 0, len(idx))
		right := make([]int, 0, len(idx))
		for _, i := range idx {
			if X[i][feat] < threshold {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}

		t.nodes[nodeID].feature = feat
		t.nodes[nodeID].threshold = threshold
		l := t.grow(X, left, depth+1, maxDepth, rng)
		r := t.grow(X, right, depth+1, maxDepth, rng)
		t.nodes[nodeID].left = l
		t.nodes[nodeID].right = r
		return nodeID
	}

	// every feature is constant in this partition
	return nodeID
}

func (t *isoTree) pathLength(x []float64) float64 {
	node := 0
	depth := 0
	for {
		nd := t.nodes[node]
		if nd.feature < 0 {
			return float64(depth) + averagePathLength(nd.size)
		}
		if x[nd.feature] < nd.threshold {
			node = nd.left
		} else {
			node = nd.right
		}
		depth++
	}
}

// averagePathLength is the expected path length of an unsuccessful BST search over n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

// AnomalyScore is in (0,1]; values near 1 are isolated quickly.
func (f *IsolationForest) AnomalyScore(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	var total float64
	for i := range f.trees {
		total += f.trees[i].pathLength(x)
	}
	mean := total / float64(len(f.trees))
	norm := averagePathLength(f.sampleSize)
	if norm == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/norm)
}

// ScoreSamples returns the negated anomaly score; lower is more abnormal.
func (f *IsolationForest) ScoreSamples(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = -f.AnomalyScore(x)
	}
	return out
}

func (f *IsolationForest) Offset() float64 {
	return f.offset
}

// IsOutlier reports whether x scores strictly below the contamination threshold.
func (f *IsolationForest) IsOutlier(x []float64) bool {
	return -f.AnomalyScore(x) < f.offset
}
