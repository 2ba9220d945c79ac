package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

func TestPendingResolve(t *testing.T) {
	tbl := NewPendingTable(time.Minute)
	cmd := core.Command{Type: core.CmdSendChat}
	call, err := tbl.Add(&cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.CorrelationID == "" || call.ID != cmd.CorrelationID {
		t.Fatalf("correlation id not assigned: %q", cmd.CorrelationID)
	}
	if _, err := tbl.Add(&cmd); !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("duplicate add err = %v", err)
	}

	ev := core.Event{Type: core.EvtChatMessage, CorrelationID: cmd.CorrelationID}
	if !tbl.Resolve(cmd.CorrelationID, ev) {
		t.Fatal("resolve failed")
	}
	if tbl.Resolve(cmd.CorrelationID, ev) {
		t.Fatal("resolved twice")
	}
	got, err := call.Wait(context.Background())
	if err != nil || got.Type != core.EvtChatMessage {
		t.Fatalf("wait = %v, %v", got.Type, err)
	}
	if tbl.Len() != 0 {
		t.Fatalf("len = %d", tbl.Len())
	}
}

func TestPendingRejectWithCommandError(t *testing.T) {
	tbl := NewPendingTable(time.Minute)
	cmd := core.Command{Type: core.CmdUpdateLayout, CorrelationID: "c1"}
	call, _ := tbl.Add(&cmd)

	perr := core.CommandErrorPayload{Code: "permission-denied", Message: "hosts only"}
	tbl.Reject("c1", perr.Err(string(cmd.Type)))
	_, err := call.Result()
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want permission denied", err)
	}
}

func TestPendingDrainOnDisconnect(t *testing.T) {
	tbl := NewPendingTable(time.Minute)
	var calls []*Call
	for i := 0; i < 3; i++ {
		cmd := core.Command{Type: core.CmdToggleHand}
		c, _ := tbl.Add(&cmd)
		calls = append(calls, c)
	}
	if n := tbl.Drain(domain.ErrChannelDisconnected); n != 3 {
		t.Fatalf("drained %d", n)
	}
	for _, c := range calls {
		if _, err := c.Wait(context.Background()); !errors.Is(err, domain.ErrChannelDisconnected) {
			t.Fatalf("err = %v", err)
		}
	}
}

func TestPendingTimeout(t *testing.T) {
	tbl := NewPendingTable(10 * time.Millisecond)
	cmd := core.Command{Type: core.CmdSendReaction}
	call, _ := tbl.Add(&cmd)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := call.Wait(ctx)
	if !errors.Is(err, ErrCommandTimeout) || !errors.Is(err, domain.ErrCommandRejected) {
		t.Fatalf("err = %v", err)
	}
	if tbl.Len() != 0 {
		t.Fatal("timed out call still pending")
	}
}

func TestPendingWaitHonoursContext(t *testing.T) {
	tbl := NewPendingTable(time.Minute)
	cmd := core.Command{Type: core.CmdSendChat}
	call, _ := tbl.Add(&cmd)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := call.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatal("abandoned wait must not drop the call")
	}
}
