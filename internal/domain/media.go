package domain

type DeviceKind string

const (
	DeviceAudioIn  DeviceKind = "audioinput"
	DeviceVideoIn  DeviceKind = "videoinput"
	DeviceAudioOut DeviceKind = "audiooutput"
)

type DeviceID string

type DeviceInfo struct {
	ID    DeviceID   `json:"deviceId"`
	Kind  DeviceKind `json:"kind"`
	Label string     `json:"label"`
}

type TrackKind string

const (
	TrackAudio  TrackKind = "audio"
	TrackVideo  TrackKind = "video"
	TrackScreen TrackKind = "screen"
)

// MediaSettings is local configuration; it only reaches other participants
// once translated into MediaFlags by an update-media-state command.
type MediaSettings struct {
	AudioEnabled bool     `json:"audioEnabled" mapstructure:"audio_enabled"`
	VideoEnabled bool     `json:"videoEnabled" mapstructure:"video_enabled"`
	AudioInput   DeviceID `json:"audioInput,omitempty" mapstructure:"audio_input"`
	VideoInput   DeviceID `json:"videoInput,omitempty" mapstructure:"video_input"`
	AudioOutput  DeviceID `json:"audioOutput,omitempty" mapstructure:"audio_output"`
}
