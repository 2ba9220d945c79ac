package app

import (
	"errors"
	"testing"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

func TestSimplePolicyAuthorize(t *testing.T) {
	p := SimplePolicy{}
	tests := []struct {
		role    domain.Role
		cmd     core.CommandType
		allowed bool
	}{
		{domain.RoleHost, core.CmdUpdateLayout, true},
		{domain.RoleCoHost, core.CmdRemoveParticipant, true},
		{domain.RoleAttendee, core.CmdUpdateLayout, false},
		{domain.RoleAttendee, core.CmdAdmitParticipant, false},
		{domain.RoleAttendee, core.CmdSendChat, true},
		{"", core.CmdToggleHand, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.cmd), func(t *testing.T) {
			err := p.Authorize(tt.role, tt.cmd)
			if tt.allowed && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tt.allowed && !errors.Is(err, domain.ErrPermissionDenied) {
				t.Fatalf("err = %v, want permission denied", err)
			}
		})
	}
}

func TestSimplePolicyBackpressure(t *testing.T) {
	p := SimplePolicy{}
	if p.OnBackpressure(core.CmdCursorMove) != DropFrame {
		t.Fatal("cursor moves are droppable")
	}
	if p.OnBackpressure(core.CmdSendChat) != FailCommand {
		t.Fatal("chat must fail under backpressure")
	}
}
