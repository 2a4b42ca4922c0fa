package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifact format tags. The tag decides the handle variant once at load
// time; artifacts without a tag are classified by the presence of feature
// names.
const (
	FormatEstimator = "estimator"
	FormatBooster   = "booster"
)

type modelArtifact struct {
	Format       string       `json:"format"`
	BaseScore    float64      `json:"base_score"`
	NumFeatures  int          `json:"num_features"`
	FeatureNames []string     `json:"feature_names,omitempty"`
	Trees        [][]TreeNode `json:"trees"`
}

// LoadModel reads and validates a model artifact, returning the handle
// variant selected by the artifact format.
func LoadModel(path string) (Handle, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrModelCorrupt, err)
	}

	var artifact modelArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelCorrupt, err)
	}

	if err := validateArtifact(&artifact); err != nil {
		return nil, err
	}

	booster := &Booster{
		trees:       artifact.Trees,
		baseScore:   artifact.BaseScore,
		numFeatures: artifact.NumFeatures,
	}

	format := artifact.Format
	if format == "" {
		if len(artifact.FeatureNames) > 0 {
			format = FormatEstimator
		} else {
			format = FormatBooster
		}
	}

	switch format {
	case FormatEstimator:
		return &Estimator{booster: booster, featureNames: artifact.FeatureNames}, nil
	case FormatBooster:
		return booster, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrModelInvalid, format)
	}
}

func validateArtifact(artifact *modelArtifact) error {
	if len(artifact.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrModelInvalid)
	}
	if artifact.NumFeatures <= 0 {
		return fmt.Errorf("%w: num_features must be positive", ErrModelInvalid)
	}
	if len(artifact.FeatureNames) > 0 && len(artifact.FeatureNames) != artifact.NumFeatures {
		return fmt.Errorf("%w: %d feature names for %d features",
			ErrModelInvalid, len(artifact.FeatureNames), artifact.NumFeatures)
	}
	if artifact.Format == FormatEstimator && len(artifact.FeatureNames) == 0 {
		return fmt.Errorf("%w: estimator artifact without feature names", ErrModelInvalid)
	}
	for t, tree := range artifact.Trees {
		if len(tree) == 0 {
			return fmt.Errorf("%w: tree %d is empty", ErrModelInvalid, t)
		}
		for n, node := range tree {
			if node.IsLeaf {
				continue
			}
			if node.FeatureIdx < 0 || node.FeatureIdx >= artifact.NumFeatures {
				return fmt.Errorf("%w: tree %d node %d references feature %d",
					ErrModelInvalid, t, n, node.FeatureIdx)
			}
			// children must point forward in the flat array so every
			// walk terminates
			if node.LeftChild <= n || node.LeftChild >= len(tree) ||
				node.RightChild <= n || node.RightChild >= len(tree) {
				return fmt.Errorf("%w: tree %d node %d has out-of-range children",
					ErrModelInvalid, t, n)
			}
		}
	}
	return nil
}
