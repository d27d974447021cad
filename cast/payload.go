package cast

var (
	// Known Payload headers
	ConnectHeader   = PayloadHeader{Type: "CONNECT"}
	CloseHeader     = PayloadHeader{Type: "CLOSE"}
	GetStatusHeader = PayloadHeader{Type: "GET_STATUS"}
	PongHeader      = PayloadHeader{Type: "PONG"}       // Response to PING payload
	LaunchHeader    = PayloadHeader{Type: "LAUNCH"}     // Launches a new chromecast app
	StopHeader      = PayloadHeader{Type: "STOP"}       // Stops the running app, or the media when sent on the media namespace
	PlayHeader      = PayloadHeader{Type: "PLAY"}       // Plays / unpauses the running app
	PauseHeader     = PayloadHeader{Type: "PAUSE"}      // Pauses the running app
	VolumeHeader    = PayloadHeader{Type: "SET_VOLUME"} // Sets the volume
	LoadHeader      = PayloadHeader{Type: "LOAD"}       // Loads media onto the running app

	loadFailedTypes = []string{"LOAD_FAILED", "LOAD_CANCELLED", "INVALID_REQUEST"}
)

// Names of message types sent by the receiver.
const (
	TypePing           = "PING"
	TypeMediaStatus    = "MEDIA_STATUS"
	TypeReceiverStatus = "RECEIVER_STATUS"
)

// IsLoadFailure reports whether messageType is a reply rejecting a LOAD.
func IsLoadFailure(messageType string) bool {
	for _, t := range loadFailedTypes {
		if t == messageType {
			return true
		}
	}
	return false
}

type Payload interface {
	SetRequestId(id int)
}

type PayloadHeader struct {
	Type      string `json:"type"`
	RequestId int    `json:"requestId,omitempty"`
}

func (p *PayloadHeader) SetRequestId(id int) {
	p.RequestId = id
}

type MediaHeader struct {
	PayloadHeader
	MediaSessionId int `json:"mediaSessionId"`
}

type StopRequest struct {
	PayloadHeader
	SessionId string `json:"sessionId,omitempty"`
}

type Volume struct {
	Level *float32 `json:"level,omitempty"`
	Muted *bool    `json:"muted,omitempty"`
}

// LevelOrZero returns the volume level, or 0 when the receiver did not report one.
func (v *Volume) LevelOrZero() float32 {
	if v == nil || v.Level == nil {
		return 0
	}
	return *v.Level
}

// IsMuted reports whether the receiver reported itself as muted.
func (v *Volume) IsMuted() bool {
	return v != nil && v.Muted != nil && *v.Muted
}

type SetVolume struct {
	PayloadHeader
	Volume Volume `json:"volume"`
}

type ReceiverStatusResponse struct {
	PayloadHeader
	Status struct {
		Applications []Application `json:"applications"`
		Volume       Volume        `json:"volume"`
	} `json:"status"`
}

type Application struct {
	AppId        string `json:"appId"`
	DisplayName  string `json:"displayName"`
	IsIdleScreen bool   `json:"isIdleScreen"`
	SessionId    string `json:"sessionId"`
	StatusText   string `json:"statusText"`
	TransportId  string `json:"transportId"`
}

type LaunchRequest struct {
	PayloadHeader
	AppId string `json:"appId"`
}

type LoadMediaCommand struct {
	PayloadHeader
	Media       MediaItem   `json:"media"`
	CurrentTime int         `json:"currentTime"`
	Autoplay    bool        `json:"autoplay"`
	CustomData  interface{} `json:"customData,omitempty"`
}

type MediaItem struct {
	ContentId   string  `json:"contentId"`
	ContentType string  `json:"contentType"`
	StreamType  string  `json:"streamType"`
	Duration    float32 `json:"duration,omitempty"`
}

type Media struct {
	MediaSessionId int     `json:"mediaSessionId"`
	PlayerState    string  `json:"playerState"`
	CurrentTime    float32 `json:"currentTime"`
	IdleReason     string  `json:"idleReason"`
	Volume         Volume  `json:"volume"`

	Media MediaItem `json:"media"`
}

type MediaStatusResponse struct {
	PayloadHeader
	Status []Media `json:"status"`
}
