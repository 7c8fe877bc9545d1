package vision

import (
	"context"

	"github.com/ihub-ai/character-server/domain/repositories"
)

// MockClassifier is a placeholder classifier for development. It cycles
// through a few labels so the frontend has something to react to.
type MockClassifier struct {
	calls int
}

// NewMockClassifier creates a new mock classifier
func NewMockClassifier() repositories.ExpressionClassifier {
	return &MockClassifier{}
}

var mockLabels = []string{"neutral", "happy", "surprise", "sad"}

// Classify implements repositories.ExpressionClassifier
func (m *MockClassifier) Classify(ctx context.Context, image []byte) (string, float64, error) {
	label := mockLabels[m.calls%len(mockLabels)]
	m.calls++
	return label, 0.9, nil
}
