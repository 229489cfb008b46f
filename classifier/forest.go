package classifier

import (
	"errors"
	"fmt"
	"math"

	"water-quality-api/models"
)

// Node is either a leaf (Leaf set) or a split sending x[Feature] <= Threshold
// to Left and everything else to Right. Children always sit after their
// parent in the node slice.
type Node struct {
	Feature   int          `json:"feature"`
	Threshold float64      `json:"threshold"`
	Left      int          `json:"left"`
	Right     int          `json:"right"`
	Leaf      models.Label `json:"leaf,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type ForestParams struct {
	Trees []Tree `json:"trees"`
}

type forest struct {
	trees []Tree
}

func newForest(p ForestParams) (*forest, error) {
	if len(p.Trees) == 0 {
		return nil, errors.New("forest: no trees")
	}
	for ti, tree := range p.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("forest: tree %d is empty", ti)
		}
		for ni, n := range tree.Nodes {
			if n.Leaf != "" {
				if !n.Leaf.Valid() {
					return nil, fmt.Errorf("forest: tree %d node %d has unknown leaf %q", ti, ni, n.Leaf)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(FeatureOrder) {
				return nil, fmt.Errorf("forest: tree %d node %d splits on feature %d", ti, ni, n.Feature)
			}
			if math.IsNaN(n.Threshold) || math.IsInf(n.Threshold, 0) {
				return nil, fmt.Errorf("forest: tree %d node %d has non-finite threshold", ti, ni)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(tree.Nodes) {
					return nil, fmt.Errorf("forest: tree %d node %d has child %d out of order", ti, ni, child)
				}
			}
		}
	}
	return &forest{trees: p.Trees}, nil
}

func (f *forest) predict(x []float64) (models.Label, error) {
	var safe, unsafe int
	for _, tree := range f.trees {
		switch walk(tree, x) {
		case models.LabelSafe:
			safe++
		default:
			unsafe++
		}
	}
	// ties go to Unsafe
	if safe > unsafe {
		return models.LabelSafe, nil
	}
	return models.LabelUnsafe, nil
}

func walk(t Tree, x []float64) models.Label {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf != "" {
			return n.Leaf
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}
