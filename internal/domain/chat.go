package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxMessageLen = 2000

var (
	ErrEmptyMessage   = errors.New("chat message empty")
	ErrMessageTooLong = errors.New("chat message too long")
)

type MessageID string

type MessageType string

const (
	MessagePublic  MessageType = "PUBLIC"
	MessagePrivate MessageType = "PRIVATE"
	MessageSystem  MessageType = "SYSTEM"
)

type ChatMessage struct {
	ID          MessageID     `json:"id"`
	SenderID    ParticipantID `json:"senderId"`
	SenderName  string        `json:"senderName"`
	RecipientID ParticipantID `json:"recipientId,omitempty"`
	Body        string        `json:"body"`
	Type        MessageType   `json:"type"`
	Timestamp   time.Time     `json:"timestamp"`
}

// NormalizeBody trims the body and enforces the length cap in runes.
func NormalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxMessageLen {
		return "", ErrMessageTooLong
	}
	return body, nil
}

type ReactionID string

type ReactionKind string

type Reaction struct {
	ID        ReactionID    `json:"id"`
	Emitter   ParticipantID `json:"emitterId"`
	Kind      ReactionKind  `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
}
