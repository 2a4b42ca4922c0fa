package ml

import "fmt"

// Predict runs the model over a normalized frame and returns one numeric
// prediction per input row, in input order. Any failure inside the model
// call surfaces as ErrPredictionFailed.
func Predict(h Handle, f *Frame) ([]float64, error) {
	preds, err := h.Predict(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}
	return preds, nil
}
