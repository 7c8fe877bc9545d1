package entities

import (
	"strings"
	"time"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ResponseMode selects how a reply is delivered back to the client
type ResponseMode string

const (
	ResponseModeAudio ResponseMode = "audio"
	ResponseModeText  ResponseMode = "text"
)

// Text box placements relative to the character
const (
	PositionTopLeft = iota
	PositionTopRight
	PositionLeft
	PositionRight
)

// Text bubble shapes
const (
	StyleCircle = iota
	StyleRectangle
	StyleSpike
	StyleCloud
)

// TextBoxSegment is one displayable reply fragment. Segments are presented
// sequentially; each stays on screen for Duration seconds before the next
// one appears.
type TextBoxSegment struct {
	Text     string  `json:"sentence" bson:"sentence"`
	Duration float64 `json:"duration" bson:"duration"`
	Position int     `json:"pos" bson:"pos"`
	Style    int     `json:"type" bson:"type"`
}

// TimelineEvent is one animation keyframe. Expressions apply with
// last-wins semantics at each time; triggers are one-shot cues.
type TimelineEvent struct {
	Time         float64  `json:"time" bson:"time"`
	Expressions  []string `json:"expressions" bson:"expressions"`
	Triggers     []string `json:"triggers" bson:"triggers"`
	TriggerSpeed float64  `json:"trigger_speed" bson:"trigger_speed"`
}

// Reply is the structured output of the reply generator: dialogue fragments
// plus the animation timeline synchronized to their display.
type Reply struct {
	Segments []TextBoxSegment `json:"segments"`
	Timeline []TimelineEvent  `json:"timeline"`
}

// PlainText joins all segment texts with single spaces.
func (r *Reply) PlainText() string {
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

// FallbackReplyText is the segment text used when reply generation fails.
const FallbackReplyText = "Sorry, I had trouble coming up with a response."

// FallbackReply returns the degraded single-segment reply used when the
// generator fails: apology text, minimum duration, default placement and
// bubble shape, no animation.
func FallbackReply() *Reply {
	return &Reply{
		Segments: []TextBoxSegment{
			{
				Text:     FallbackReplyText,
				Duration: 1.0,
				Position: PositionTopLeft,
				Style:    StyleCircle,
			},
		},
		Timeline: []TimelineEvent{},
	}
}

// MessageRecord is one persisted user message. Records are append-only;
// they are never updated or deleted.
type MessageRecord struct {
	ID         int64       `json:"id" bson:"_id"`
	Role       MessageRole `json:"role" bson:"role"`
	Text       string      `json:"text" bson:"text"`
	Expression string      `json:"expression,omitempty" bson:"expression,omitempty"`
	AudioID    string      `json:"audio_id,omitempty" bson:"audio_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at" bson:"created_at"`
}

// ReplyRecord is one persisted assistant reply, paired with the user
// message that produced it. Same append-only discipline as MessageRecord.
type ReplyRecord struct {
	ID        int64           `json:"id" bson:"_id"`
	Text      string          `json:"text" bson:"text"`
	Timeline  []TimelineEvent `json:"timeline" bson:"timeline"`
	AudioID   string          `json:"audio_id,omitempty" bson:"audio_id,omitempty"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
}
