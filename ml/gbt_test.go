package ml

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

// testTrees returns one regression tree splitting on the given feature:
// value <= 1 yields leaf 0.5, otherwise leaf 2.5.
func testTrees(featureIdx int) [][]TreeNode {
	return [][]TreeNode{{
		{FeatureIdx: featureIdx, Threshold: 1, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, LeafValue: 0.5},
		{IsLeaf: true, LeafValue: 2.5},
	}}
}

func writeModelFile(t *testing.T, artifact modelArtifact) string {
	t.Helper()
	payload, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestBoosterPredictMatrix(t *testing.T) {
	b := &Booster{trees: testTrees(0), baseScore: 10, numFeatures: 2}
	m := &Matrix{rows: 2, cols: 2, data: []float64{0.5, 99, 2, 99}}

	preds, err := b.PredictMatrix(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(preds))
	}
	if preds[0] != 10.5 || preds[1] != 12.5 {
		t.Fatalf("unexpected predictions: %v", preds)
	}
}

func TestBoosterSumsTrees(t *testing.T) {
	trees := append(testTrees(0), testTrees(1)...)
	b := &Booster{trees: trees, baseScore: 1, numFeatures: 2}
	m := &Matrix{rows: 1, cols: 2, data: []float64{0, 2}}

	preds, err := b.PredictMatrix(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 + 0.5 (left of tree 0) + 2.5 (right of tree 1)
	if preds[0] != 4 {
		t.Fatalf("expected 4, got %v", preds[0])
	}
}

func TestBoosterDimensionMismatch(t *testing.T) {
	b := &Booster{trees: testTrees(0), numFeatures: 3}
	m := &Matrix{rows: 1, cols: 2, data: []float64{1, 2}}
	if _, err := b.PredictMatrix(m); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestBoosterMissingValueWithoutDefaultFails(t *testing.T) {
	b := &Booster{trees: testTrees(0), numFeatures: 1}
	m := &Matrix{rows: 1, cols: 1, data: []float64{math.NaN()}}
	_, err := b.PredictMatrix(m)
	if err == nil {
		t.Fatal("expected error for missing value")
	}
	if !strings.Contains(err.Error(), "missing value") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBoosterMissingValueFollowsDefaultRoute(t *testing.T) {
	trees := [][]TreeNode{{
		{FeatureIdx: 0, Threshold: 1, LeftChild: 1, RightChild: 2, DefaultLeft: boolPtr(false)},
		{IsLeaf: true, LeafValue: 0.5},
		{IsLeaf: true, LeafValue: 2.5},
	}}
	b := &Booster{trees: trees, numFeatures: 1}
	m := &Matrix{rows: 1, cols: 1, data: []float64{math.NaN()}}

	preds, err := b.PredictMatrix(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preds[0] != 2.5 {
		t.Fatalf("expected default-right leaf 2.5, got %v", preds[0])
	}
}

func TestEstimatorPredictsFromFrame(t *testing.T) {
	e := &Estimator{
		booster:      &Booster{trees: testTrees(0), baseScore: 10, numFeatures: 2},
		featureNames: []string{"a", "b"},
	}
	f, err := NormalizePayload(decodePayload(t, `{"a": 0.5, "b": 1}`), e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	preds, err := e.Predict(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(preds) != 1 || preds[0] != 10.5 {
		t.Fatalf("unexpected predictions: %v", preds)
	}
}
