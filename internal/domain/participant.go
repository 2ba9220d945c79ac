package domain

type ParticipantID string

type Role string

const (
	RoleHost     Role = "HOST"
	RoleCoHost   Role = "CO_HOST"
	RoleAttendee Role = "ATTENDEE"
)

// Privileged reports whether the role may issue host-only commands.
func (r Role) Privileged() bool { return r == RoleHost || r == RoleCoHost }

type MembershipStatus string

const (
	StatusWaiting MembershipStatus = "WAITING"
	StatusJoined  MembershipStatus = "JOINED"
	StatusLeft    MembershipStatus = "LEFT"
)

// CanTransition encodes WAITING -> JOINED -> LEFT. LEFT is terminal.
func (s MembershipStatus) CanTransition(to MembershipStatus) bool {
	switch s {
	case StatusWaiting:
		return to == StatusJoined || to == StatusLeft
	case StatusJoined:
		return to == StatusLeft
	}
	return false
}

type MediaFlags struct {
	Muted         bool `json:"isMuted"`
	VideoOn       bool `json:"isVideoOn"`
	ScreenSharing bool `json:"isScreenSharing"`
	HandRaised    bool `json:"isHandRaised"`
}

type Participant struct {
	ID          ParticipantID    `json:"id"`
	UserID      UserID           `json:"userId"`
	DisplayName string           `json:"displayName"`
	Role        Role             `json:"role"`
	Status      MembershipStatus `json:"status"`
	Media       MediaFlags       `json:"media"`
}
