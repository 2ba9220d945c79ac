package core

import (
	"errors"
	"testing"

	"github.com/dkeye/Seminar/internal/domain"
)

func TestEventRoundTrip(t *testing.T) {
	ev, err := NewEvent(EvtScreenShareStarted, "c1", ScreenSharePayload{PresenterID: "p1"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	frame, err := EncodeCommand(Command{Type: CmdSendChat, CorrelationID: "c2", Payload: SendChatPayload{Content: "hi"}})
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	if len(frame) == 0 {
		t.Fatal("empty frame")
	}

	raw := Frame(`{"type":"screen-share-started","correlationId":"c1","payload":` + string(ev.Payload) + `}`)
	got, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	var p ScreenSharePayload
	if err := got.Decode(&p); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.PresenterID != "p1" || got.CorrelationID != "c1" {
		t.Fatalf("unexpected event %+v / %+v", got, p)
	}
}

func TestDecodeEventRejectsMissingType(t *testing.T) {
	if _, err := DecodeEvent(Frame(`{"payload":{}}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
	if _, err := DecodeEvent(Frame(`not json`)); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}

func TestCommandErrorPayload(t *testing.T) {
	err := CommandErrorPayload{Code: "permission-denied", Message: "host only"}.Err("update-layout")
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestHostOnly(t *testing.T) {
	for _, c := range []CommandType{CmdUpdateLayout, CmdAdmitParticipant, CmdRemoveParticipant} {
		if !c.HostOnly() {
			t.Errorf("%s should be host-only", c)
		}
	}
	if CmdSendChat.HostOnly() {
		t.Error("send-chat is not host-only")
	}
	if CmdCursorMove.Confirmed() {
		t.Error("cursor-move is fire-and-forget")
	}
}
