package ml

// Handle is the capability interface of a loaded model. The concrete
// variant is fixed once at load time from the artifact format: an
// Estimator carries its feature names and a bare Booster exposes only the
// native matrix interface, adapted through its Predict method.
type Handle interface {
	// NumFeatures returns the number of input columns the model expects.
	NumFeatures() int
	// FeatureNames returns the ordered expected feature names, or nil when
	// the model does not carry them (native booster artifacts).
	FeatureNames() []string
	// Predict produces one numeric prediction per row of the frame, in
	// row order.
	Predict(f *Frame) ([]float64, error)
}
