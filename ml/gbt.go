package ml

import (
	"errors"
	"fmt"
	"math"
)

// TreeNode is one node of a regression tree, stored as an index into the
// flat node array of its tree.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	LeafValue  float64 `json:"leaf_value"`
	IsLeaf     bool    `json:"is_leaf"`
	// DefaultLeft routes missing values at this split. When absent the
	// tree does not tolerate a missing value here and prediction fails.
	DefaultLeft *bool `json:"default_left,omitempty"`
}

// Booster is the native gradient-boosted-tree interface: an ensemble of
// regression trees whose leaf values are summed on top of a base score.
// It carries no feature names and predicts from the dense matrix form.
type Booster struct {
	trees       [][]TreeNode
	baseScore   float64
	numFeatures int
}

// NumFeatures returns the expected input column count.
func (b *Booster) NumFeatures() int {
	return b.numFeatures
}

// FeatureNames returns nil: the native interface has no name metadata.
func (b *Booster) FeatureNames() []string {
	return nil
}

// Predict builds the native matrix from the frame and scores it.
func (b *Booster) Predict(f *Frame) ([]float64, error) {
	m, err := MatrixFromFrame(f)
	if err != nil {
		return nil, err
	}
	return b.PredictMatrix(m)
}

// PredictMatrix scores a prepared matrix, one prediction per row.
func (b *Booster) PredictMatrix(m *Matrix) ([]float64, error) {
	if m.Rows() > 0 && m.Cols() != b.numFeatures {
		return nil, fmt.Errorf("feature count mismatch: got %d columns, model expects %d",
			m.Cols(), b.numFeatures)
	}
	preds := make([]float64, m.Rows())
	for i := 0; i < m.Rows(); i++ {
		score, err := b.predictRow(m.Row(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		preds[i] = score
	}
	return preds, nil
}

func (b *Booster) predictRow(row []float64) (float64, error) {
	score := b.baseScore
	for t, tree := range b.trees {
		leaf, err := walkTree(tree, row)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", t, err)
		}
		score += leaf
	}
	return score, nil
}

func walkTree(tree []TreeNode, row []float64) (float64, error) {
	idx := 0
	for {
		node := tree[idx]
		if node.IsLeaf {
			return node.LeafValue, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(row) {
			return 0, errors.New("feature index out of range")
		}
		value := row[node.FeatureIdx]
		if math.IsNaN(value) {
			if node.DefaultLeft == nil {
				return 0, fmt.Errorf("missing value for feature %d", node.FeatureIdx)
			}
			if *node.DefaultLeft {
				idx = node.LeftChild
			} else {
				idx = node.RightChild
			}
		} else if value <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(tree) {
			return 0, errors.New("invalid tree state")
		}
	}
}

// Estimator is the high-level variant: a booster plus the ordered feature
// names the model was trained on.
type Estimator struct {
	booster      *Booster
	featureNames []string
}

// NumFeatures returns the expected input column count.
func (e *Estimator) NumFeatures() int {
	return e.booster.NumFeatures()
}

// FeatureNames returns the ordered expected feature names.
func (e *Estimator) FeatureNames() []string {
	return append([]string(nil), e.featureNames...)
}

// Predict scores a frame whose columns have been reindexed to the
// estimator's feature order.
func (e *Estimator) Predict(f *Frame) ([]float64, error) {
	return e.booster.Predict(f)
}
