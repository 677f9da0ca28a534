package main

import "encoding/json"

// Client -> Server message types
const (
	MsgHello      = "hello"   // identify with a saved token, or get a guest identity
	MsgStart      = "start"   // start a run
	MsgKeys       = "keys"    // held keyboard state
	MsgTap        = "tap"     // pointer press on the play field
	MsgPad        = "pad"     // phone touch-pad state
	MsgControl    = "control" // phone controller attach
	MsgLeave      = "leave"
	MsgAlbum      = "album" // request album, also the album reply
	MsgPick       = "pick"  // add a place fragment to the album
	MsgAlbumClear = "album_clear"
	MsgVisit      = "visit" // scanned partner QR payload
	MsgProfile    = "profile"
)

// Server -> Client message types
const (
	MsgWelcome     = "welcome"
	MsgStarted     = "started"
	MsgState       = "state" // binary msgpack RunSnapshot
	MsgEvent       = "event"
	MsgResult      = "result"
	MsgAchievement = "achievement"
	MsgLaunch      = "launch"
	MsgVisited     = "visited"
	MsgProfileData = "profile_data"
	MsgError       = "error"
	MsgControlOK   = "control_ok" // controller attach confirmed
	MsgCtrlOn      = "ctrl_on"    // notify runner: controller attached
	MsgCtrlOff     = "ctrl_off"   // notify runner: controller detached
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// HelloMsg carries a token from a previous visit, empty for a new guest
type HelloMsg struct {
	Token string `json:"token"`
}

// WelcomeMsg confirms the player identity
type WelcomeMsg struct {
	PlayerID int64  `json:"pid"`
	Name     string `json:"name"`
	Token    string `json:"token"`
}

// StartMsg starts a run for one companion at one place
type StartMsg struct {
	Character string `json:"character"`
	Title     string `json:"title"`
}

// StartedMsg tells the runner which run it owns
type StartedMsg struct {
	RunID      string `json:"rid"`
	Character  string `json:"character"`
	Title      string `json:"title"`
	Background string `json:"bg"`
}

// KeysMsg is the held keyboard state
type KeysMsg struct {
	Left  bool `json:"l"`
	Right bool `json:"r"`
	Jump  bool `json:"j"`
}

// PadMsg is the phone touch-pad state; Jump is a counter increased on every press
type PadMsg struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Jump  int  `json:"jump"`
}

// ControlMsg is sent by a phone controller to attach to a run
type ControlMsg struct {
	RunID string `json:"rid"`
}

// EventMsg mirrors one engine event for client-side effects
type EventMsg struct {
	Kind  string  `json:"k"`
	Tick  uint64  `json:"tick"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score int     `json:"sc"`
	HP    int     `json:"hp"`
	Bonus bool    `json:"bonus,omitempty"`
}

// ResultMsg is the terminal outcome of a run
type ResultMsg struct {
	RunID  string  `json:"rid"`
	Won    bool    `json:"won"`
	Score  int     `json:"score"`
	Time   float64 `json:"time"`
	Reason string  `json:"reason"`
}

// AchievementMsg announces a newly unlocked badge
type AchievementMsg struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}

// PickMsg adds a place to the album, credited to one companion
type PickMsg struct {
	PoiID string `json:"poiId"`
	Title string `json:"title"`
	Who   string `json:"who"`
}

// LaunchMsg asks the client to open the mini-game for a landmark
type LaunchMsg struct {
	Character string `json:"character"`
	Title     string `json:"title"`
}

// VisitMsg carries a scanned partner QR payload
type VisitMsg struct {
	Payload string `json:"payload"`
}

// VisitedMsg confirms a partner visit
type VisitedMsg struct {
	PartnerID int64  `json:"partner"`
	Name      string `json:"name"`
	New       bool   `json:"new"`
	Receipt   string `json:"receipt"`
}

// ProfileDataMsg summarizes a player
type ProfileDataMsg struct {
	Name         string     `json:"name"`
	Runs         int        `json:"runs"`
	Wins         int        `json:"wins"`
	BestScore    int        `json:"best"`
	TotalScore   int        `json:"total"`
	Album        AlbumState `json:"album"`
	Achievements []string   `json:"achievements"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// PlayerState is the runner body in a snapshot
type PlayerState struct {
	X      float64 `msgpack:"x" json:"x"`
	Y      float64 `msgpack:"y" json:"y"`
	VX     float64 `msgpack:"vx" json:"vx"`
	VY     float64 `msgpack:"vy" json:"vy"`
	Facing int8    `msgpack:"f" json:"f"`
	Ground bool    `msgpack:"g" json:"g"`
}

// EnemyState is one live hazard in a snapshot
type EnemyState struct {
	Kind uint8   `msgpack:"k" json:"k"`
	X    float64 `msgpack:"x" json:"x"`
	Y    float64 `msgpack:"y" json:"y"`
	W    float64 `msgpack:"w" json:"w"`
	H    float64 `msgpack:"h" json:"h"`
}

// ItemState is one collectible in a snapshot
type ItemState struct {
	Kind uint8   `msgpack:"k" json:"k"`
	X    float64 `msgpack:"x" json:"x"`
	Y    float64 `msgpack:"y" json:"y"`
	R    float64 `msgpack:"r" json:"r"`
}

// RunSnapshot is broadcast as a binary msgpack frame
type RunSnapshot struct {
	Tick      uint64       `msgpack:"tick" json:"tick"`
	Phase     string       `msgpack:"ph" json:"ph"`
	Player    PlayerState  `msgpack:"p" json:"p"`
	Enemies   []EnemyState `msgpack:"e" json:"e"`
	Items     []ItemState  `msgpack:"i" json:"i"`
	Score     int          `msgpack:"sc" json:"sc"`
	HP        int          `msgpack:"hp" json:"hp"`
	Remaining float64      `msgpack:"rem" json:"rem"`
	Countdown float64      `msgpack:"cd" json:"cd"`
	Slowed    bool         `msgpack:"slow" json:"slow"`
	Invuln    bool         `msgpack:"inv" json:"inv"`
}
