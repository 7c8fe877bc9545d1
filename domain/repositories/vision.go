package repositories

import "context"

// ExpressionClassifier abstracts the facial-expression model. Every frame
// is classified independently; there is no temporal smoothing here.
type ExpressionClassifier interface {
	// Classify returns an expression label and its confidence for one
	// encoded image.
	Classify(ctx context.Context, image []byte) (label string, confidence float64, err error)
}
