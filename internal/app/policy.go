package app

import (
	"fmt"

	"github.com/dkeye/Seminar/internal/core"
	"github.com/dkeye/Seminar/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	FailCommand
)

// Policy decides who may issue which command and what happens when the
// outbound queue is full.
type Policy interface {
	Authorize(role domain.Role, cmd core.CommandType) error
	OnBackpressure(cmd core.CommandType) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) Authorize(role domain.Role, cmd core.CommandType) error {
	if cmd.HostOnly() && !role.Privileged() {
		return domain.NewError(domain.KindPermissionDenied, string(cmd), fmt.Errorf("role %s", role))
	}
	return nil
}

// OnBackpressure drops cursor updates silently; every other command fails
// so the caller can surface it.
func (SimplePolicy) OnBackpressure(cmd core.CommandType) BackpressureAction {
	if cmd == core.CmdCursorMove {
		return DropFrame
	}
	return FailCommand
}
