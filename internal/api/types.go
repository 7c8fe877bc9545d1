package api

import (
	"time"

	"github.com/ihub-ai/character-server/domain/entities"
)

// AdminAuthRequest represents the request payload for admin authentication
type AdminAuthRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AdminAuthResponse represents the response payload for admin authentication
type AdminAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConversationEntry is one row of the merged history listing: user
// messages and assistant replies interleaved newest first.
type ConversationEntry struct {
	ID         int64                    `json:"id"`
	Role       string                   `json:"role"`
	Text       string                   `json:"text"`
	Expression string                   `json:"expression,omitempty"`
	Timeline   []entities.TimelineEvent `json:"timeline,omitempty"`
	AudioID    string                   `json:"audio_id,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

// ConversationsResponse wraps the merged history listing
type ConversationsResponse struct {
	Conversations []ConversationEntry `json:"conversations"`
	Count         int                 `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
