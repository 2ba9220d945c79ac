package domain

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPermissionDenied
	KindChannelDisconnected
	KindDeviceUnavailable
	KindSnapshotFetchFailed
	KindStaleParticipantReference
	KindCommandRejected
	KindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindChannelDisconnected:
		return "channel_disconnected"
	case KindDeviceUnavailable:
		return "device_unavailable"
	case KindSnapshotFetchFailed:
		return "snapshot_fetch_failed"
	case KindStaleParticipantReference:
		return "stale_participant_reference"
	case KindCommandRejected:
		return "command_rejected"
	case KindInvalidArgument:
		return "invalid_argument"
	}
	return "unknown"
}

// Error is the session error taxonomy. Two Errors match under errors.Is
// when their kinds match, so the sentinels below work for any Op.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

var (
	ErrPermissionDenied          = &Error{Kind: KindPermissionDenied}
	ErrChannelDisconnected       = &Error{Kind: KindChannelDisconnected}
	ErrDeviceUnavailable         = &Error{Kind: KindDeviceUnavailable}
	ErrSnapshotFetchFailed       = &Error{Kind: KindSnapshotFetchFailed}
	ErrStaleParticipantReference = &Error{Kind: KindStaleParticipantReference}
	ErrCommandRejected           = &Error{Kind: KindCommandRejected}
	ErrInvalidArgument           = &Error{Kind: KindInvalidArgument}
)

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// KindFromCode maps a server error code onto the taxonomy.
func KindFromCode(code string) ErrorKind {
	switch code {
	case "permission-denied", "forbidden":
		return KindPermissionDenied
	case "stale-participant", "unknown-participant":
		return KindStaleParticipantReference
	case "invalid-argument", "bad-payload":
		return KindInvalidArgument
	}
	return KindCommandRejected
}
