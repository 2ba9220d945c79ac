package core

import (
	"fmt"

	"github.com/dkeye/Seminar/internal/domain"
	"github.com/goccy/go-json"
)

type CommandType string

const (
	CmdJoinRoom          CommandType = "join-room"
	CmdLeaveRoom         CommandType = "leave-room"
	CmdSendChat          CommandType = "send-chat"
	CmdDeleteChat        CommandType = "delete-chat"
	CmdSendReaction      CommandType = "send-reaction"
	CmdToggleHand        CommandType = "toggle-hand"
	CmdUpdateMediaState  CommandType = "update-media-state"
	CmdUpdateLayout      CommandType = "update-layout"
	CmdAdmitParticipant  CommandType = "admit-participant"
	CmdRemoveParticipant CommandType = "remove-participant"
	CmdWhiteboardAdd     CommandType = "whiteboard-add-element"
	CmdWhiteboardUpdate  CommandType = "whiteboard-update-element"
	CmdWhiteboardRemove  CommandType = "whiteboard-remove-element"
	CmdWhiteboardClear   CommandType = "whiteboard-clear"
	CmdCursorMove        CommandType = "cursor-move"
)

// HostOnly reports commands the server accepts only from HOST or CO_HOST.
func (c CommandType) HostOnly() bool {
	switch c {
	case CmdUpdateLayout, CmdAdmitParticipant, CmdRemoveParticipant:
		return true
	}
	return false
}

// Confirmed reports commands that expect an echo event carrying the
// same correlation id.
func (c CommandType) Confirmed() bool { return c != CmdCursorMove }

type EventType string

const (
	EvtJoined              EventType = "room-joined"
	EvtLeft                EventType = "room-left"
	EvtRoomStarted         EventType = "room-started"
	EvtRoomEnded           EventType = "room-ended"
	EvtParticipantJoined   EventType = "participant-joined"
	EvtParticipantLeft     EventType = "participant-left"
	EvtParticipantAdmitted EventType = "participant-admitted"
	EvtParticipantRemoved  EventType = "participant-removed"
	EvtRoleChanged         EventType = "role-changed"
	EvtChatMessage         EventType = "chat-message"
	EvtChatDeleted         EventType = "chat-deleted"
	EvtReaction            EventType = "reaction"
	EvtHandToggled         EventType = "hand-toggled"
	EvtMediaStateUpdated   EventType = "media-state-updated"
	EvtLayoutUpdated       EventType = "layout-updated"
	EvtScreenShareStarted  EventType = "screen-share-started"
	EvtScreenShareStopped  EventType = "screen-share-stopped"
	EvtElementAdded        EventType = "whiteboard-element-added"
	EvtElementUpdated      EventType = "whiteboard-element-updated"
	EvtElementRemoved      EventType = "whiteboard-element-removed"
	EvtWhiteboardCleared   EventType = "whiteboard-cleared"
	EvtCursorMoved         EventType = "cursor-moved"
	EvtCommandError        EventType = "command-error"
	EvtPong                EventType = "pong"
)

// Command is an outbound client intent.
type Command struct {
	Type          CommandType `json:"type"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Payload       any         `json:"payload,omitempty"`
}

// Event is an inbound, server-confirmed state change.
type Event struct {
	Type          EventType       `json:"type"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

func EncodeCommand(cmd Command) (Frame, error) {
	b, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Type, err)
	}
	return b, nil
}

func DecodeEvent(f Frame) (Event, error) {
	var ev Event
	if err := json.Unmarshal(f, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return ev, nil
}

// NewEvent builds an event with an encoded payload. Used by tests and fakes.
func NewEvent(t EventType, cid string, payload any) (Event, error) {
	ev := Event{Type: t, CorrelationID: cid}
	if payload == nil {
		return ev, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev.Payload = b
	return ev, nil
}

func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", e.Type, err)
	}
	return nil
}

// Command payloads.

type JoinRoomPayload struct {
	RoomID      domain.RoomID `json:"roomId"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

type SendChatPayload struct {
	Content     string               `json:"content"`
	RecipientID domain.ParticipantID `json:"recipientId,omitempty"`
}

type MessageRefPayload struct {
	ID domain.MessageID `json:"id"`
}

type SendReactionPayload struct {
	Kind domain.ReactionKind `json:"kind"`
}

type HandPayload struct {
	ParticipantID domain.ParticipantID `json:"participantId,omitempty"`
	IsRaised      bool                 `json:"isRaised"`
}

type MediaStatePayload struct {
	ParticipantID   domain.ParticipantID `json:"participantId,omitempty"`
	IsMuted         *bool                `json:"isMuted,omitempty"`
	IsVideoOn       *bool                `json:"isVideoOn,omitempty"`
	IsScreenSharing *bool                `json:"isScreenSharing,omitempty"`
}

type LayoutPayload struct {
	Layout domain.LayoutMode `json:"layout"`
}

type ParticipantRefPayload struct {
	ID domain.ParticipantID `json:"id"`
}

type ElementPayload struct {
	Element domain.DrawingElement `json:"element"`
}

type UpdateElementPayload struct {
	ID      domain.ElementID      `json:"id"`
	Updates domain.DrawingElement `json:"updates"`
}

type ElementRefPayload struct {
	ID domain.ElementID `json:"id"`
}

type CursorPayload struct {
	UserID domain.UserID `json:"userId,omitempty"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
}

// Event-only payloads.

type ParticipantPayload struct {
	Participant domain.Participant `json:"participant"`
}

type RoleChangedPayload struct {
	ID   domain.ParticipantID `json:"id"`
	Role domain.Role          `json:"role"`
}

type ScreenSharePayload struct {
	PresenterID domain.ParticipantID `json:"presenterId"`
}

type JoinedPayload struct {
	Participant domain.Participant `json:"participant"`
}

type CommandErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Err converts a command-error payload into the session error taxonomy.
func (p CommandErrorPayload) Err(op string) error {
	return domain.NewError(domain.KindFromCode(p.Code), op, fmt.Errorf("%s", p.Message))
}
