package domain

type RoomID string

type RoomStatus string

const (
	RoomScheduled RoomStatus = "SCHEDULED"
	RoomLive      RoomStatus = "LIVE"
	RoomEnded     RoomStatus = "ENDED"
)

type LayoutMode string

const (
	LayoutGallery LayoutMode = "GALLERY"
	LayoutSpeaker LayoutMode = "SPEAKER"
	LayoutSidebar LayoutMode = "SIDEBAR"
)

func (l LayoutMode) Valid() bool {
	switch l {
	case LayoutGallery, LayoutSpeaker, LayoutSidebar:
		return true
	}
	return false
}

type Room struct {
	ID     RoomID     `json:"id"`
	Title  string     `json:"title"`
	HostID UserID     `json:"hostId"`
	Status RoomStatus `json:"status"`
	Layout LayoutMode `json:"layout"`
}
