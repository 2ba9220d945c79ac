// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen      = 64
	MaxDisplayNameLen = 64
)

var (
	ErrUserIDEmpty        = errors.New("user id empty")
	ErrUserIDTooLong      = errors.New("user id too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

type UserID string

// Identity is what the auth collaborator hands us at join time.
// The core never interprets it beyond these two fields.
type Identity struct {
	UserID      UserID `json:"userId"`
	DisplayName string `json:"displayName"`
}

func NewIdentity(id, displayName string) (Identity, error) {
	id = strings.TrimSpace(id)
	displayName = strings.TrimSpace(displayName)
	switch {
	case id == "":
		return Identity{}, ErrUserIDEmpty
	case len(id) > MaxUserIDLen:
		return Identity{}, ErrUserIDTooLong
	case displayName == "":
		return Identity{}, ErrDisplayNameEmpty
	case len(displayName) > MaxDisplayNameLen:
		return Identity{}, ErrDisplayNameTooLong
	}
	return Identity{UserID: UserID(id), DisplayName: displayName}, nil
}
