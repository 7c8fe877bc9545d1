// Package vision provides facial-expression classification adapters.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ihub-ai/character-server/domain/repositories"
)

const (
	defaultInferenceURL = "https://api-inference.huggingface.co/models"
	defaultModelName    = "dima806/facial_emotions_image_detection"
)

// HuggingFaceClassifier implements ExpressionClassifier against the
// Hugging Face inference API. One request per frame; frames are
// independent.
type HuggingFaceClassifier struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

var _ repositories.ExpressionClassifier = (*HuggingFaceClassifier)(nil)

// NewHuggingFaceClassifier creates the adapter. Requires HF_API_TOKEN;
// HF_EMOTION_MODEL overrides the default model.
func NewHuggingFaceClassifier(logger *zap.Logger) (*HuggingFaceClassifier, error) {
	apiKey := os.Getenv("HF_API_TOKEN")
	if apiKey == "" {
		return nil, fmt.Errorf("HF_API_TOKEN environment variable is required")
	}

	model := os.Getenv("HF_EMOTION_MODEL")
	if model == "" {
		model = defaultModelName
	}

	return &HuggingFaceClassifier{
		apiKey:  apiKey,
		baseURL: defaultInferenceURL,
		model:   model,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}, nil
}

type classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify returns the top expression label for one encoded image.
func (h *HuggingFaceClassifier) Classify(ctx context.Context, image []byte) (string, float64, error) {
	url := fmt.Sprintf("%s/%s", h.baseURL, h.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("inference API returned %d: %s", resp.StatusCode, string(errorBody))
	}

	var results []classification
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", 0, fmt.Errorf("failed to decode classification response: %w", err)
	}
	if len(results) == 0 {
		return "", 0, fmt.Errorf("empty classification response")
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}

	h.logger.Debug("Classified expression",
		zap.String("label", best.Label),
		zap.Float64("confidence", best.Score))

	return best.Label, best.Score, nil
}
