package main

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"kikitoby/game"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 80 // held-key updates plus a touch-pad at full speed
	maxTitleLen       = 60
)

// Binary input flags: [0x01, flags, jump_hi, jump_lo]
const (
	inputLeft  = 0x01
	inputRight = 0x02
	inputJump  = 0x04
	inputTouch = 0x08 // flags and counter come from a touch-pad, not the keyboard
)

// Client represents a WebSocket connection
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	remoteAddr   string
	runID        string
	isController bool
	msgCount     int
	msgResetAt   time.Time
	// Identity, set by hello
	playerID int64
	username string
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		if msgType == websocket.BinaryMessage && len(message) == 4 && message[0] == 0x01 {
			c.handleBinaryInput(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }() // send may be closed by unregister while a run loop still broadcasts
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgHello:
		c.handleHello(env.D)
	case MsgStart:
		c.handleStart(env.D)
	case MsgKeys:
		c.handleKeys(env.D)
	case MsgTap:
		c.handleTap()
	case MsgPad:
		c.handlePad(env.D)
	case MsgControl:
		c.handleControl(env.D)
	case MsgLeave:
		c.hub.leaveRun(c)
	case MsgAlbum:
		c.handleAlbum()
	case MsgPick:
		c.handlePick(env.D)
	case MsgAlbumClear:
		c.handleAlbumClear()
	case MsgVisit:
		c.handleVisit(env.D)
	case MsgProfile:
		c.handleProfile()
	}
}

// currentRun returns the live run this connection plays or controls
func (c *Client) currentRun() *Run {
	if c.runID == "" {
		return nil
	}
	return c.hub.runs.Get(c.runID)
}

func (c *Client) handleHello(data json.RawMessage) {
	if c.hub.db == nil {
		return
	}
	var msg HelloMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}

	if msg.Token != "" {
		id, username, err := c.hub.auth.ValidateToken(msg.Token)
		if err == nil {
			if p, err := c.hub.db.GetPlayerByID(id); err == nil && p != nil {
				c.playerID = id
				c.username = username
				c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{PlayerID: id, Name: username, Token: msg.Token}})
				c.hub.analytics.Track(EvtSessionStart, id, "", nil)
				return
			}
		}
	}

	id, name, token, err := c.hub.auth.Guest()
	if err != nil {
		log.Printf("guest error: %v", err)
		c.sendError("internal error")
		return
	}
	c.playerID = id
	c.username = name
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{PlayerID: id, Name: name, Token: token}})
	c.hub.analytics.Track(EvtSessionStart, id, "", nil)
}

func (c *Client) handleStart(data json.RawMessage) {
	if c.playerID == 0 {
		c.sendError("not identified")
		return
	}
	if c.currentRun() != nil {
		c.sendError("run in progress")
		return
	}
	var msg StartMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	ch, err := game.ParseCharacter(msg.Character)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	title := truncate(msg.Title, maxTitleLen)

	run, err := c.hub.runs.Create(c.playerID, c, RunOptions{
		Character: ch,
		Title:     title,
		Tuning:    c.hub.tuning,
	}, c.hub.finishRun)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.runID = run.ID
	c.isController = false

	c.hub.analytics.SetActiveRuns(c.hub.runs.Count())
	c.hub.analytics.Track(EvtRunStart, c.playerID, run.ID, map[string]string{"character": string(ch), "title": title})
	c.SendJSON(Envelope{T: MsgStarted, Data: StartedMsg{
		RunID:      run.ID,
		Character:  string(ch),
		Title:      title,
		Background: game.BackgroundFor(title),
	}})
}

// handleBinaryInput decodes a compact 4-byte binary input message
func (c *Client) handleBinaryInput(msg []byte) {
	run := c.currentRun()
	if run == nil {
		return
	}
	flags := msg[1]
	left := flags&inputLeft != 0
	right := flags&inputRight != 0
	if flags&inputTouch != 0 {
		run.SetTouch(c, game.Touch{Left: left, Right: right, JumpTick: int(uint16(msg[2])<<8 | uint16(msg[3]))})
		return
	}
	if c.isController {
		return
	}
	run.SetKeys(game.Keys{Left: left, Right: right, Jump: flags&inputJump != 0})
}

func (c *Client) handleKeys(data json.RawMessage) {
	run := c.currentRun()
	if run == nil || c.isController {
		return
	}
	var msg KeysMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	run.SetKeys(game.Keys{Left: msg.Left, Right: msg.Right, Jump: msg.Jump})
}

func (c *Client) handleTap() {
	if run := c.currentRun(); run != nil && !c.isController {
		run.Tap()
	}
}

func (c *Client) handlePad(data json.RawMessage) {
	run := c.currentRun()
	if run == nil {
		return
	}
	var msg PadMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	run.SetTouch(c, game.Touch{Left: msg.Left, Right: msg.Right, JumpTick: msg.Jump})
}

func (c *Client) handleControl(data json.RawMessage) {
	var msg ControlMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.runID != "" && !c.isController {
		c.sendError("run in progress")
		return
	}
	run := c.hub.runs.Get(msg.RunID)
	if run == nil {
		c.sendError("run not found")
		return
	}
	if prev := c.currentRun(); prev != nil {
		prev.RemoveController(c)
	}
	if !run.AddController(c) {
		c.sendError("run already has a controller")
		return
	}
	c.runID = run.ID
	c.isController = true
	c.SendJSON(Envelope{T: MsgControlOK, Data: map[string]string{"rid": run.ID, "character": string(run.Character)}})
}

func (c *Client) handleAlbum() {
	if c.hub.db == nil || c.playerID == 0 {
		c.sendError("not identified")
		return
	}
	album, err := c.hub.db.GetAlbum(c.playerID)
	if err != nil {
		log.Printf("album error: %v", err)
		c.sendError("internal error")
		return
	}
	c.SendJSON(Envelope{T: MsgAlbum, Data: album})
}

func (c *Client) handlePick(data json.RawMessage) {
	if c.hub.db == nil || c.playerID == 0 {
		c.sendError("not identified")
		return
	}
	var msg PickMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	album, launch, err := PickFragment(c.hub.db, c.playerID, msg)
	if err != nil {
		if errors.Is(err, ErrBadFragment) {
			c.sendError(err.Error())
			return
		}
		log.Printf("pick error: %v", err)
		c.sendError("internal error")
		return
	}
	c.hub.analytics.Track(EvtAlbumPick, c.playerID, "", map[string]string{"poi": msg.PoiID, "who": msg.Who})
	c.SendJSON(Envelope{T: MsgAlbum, Data: album})
	if launch != nil {
		c.SendJSON(Envelope{T: MsgLaunch, Data: launch})
	}
}

func (c *Client) handleAlbumClear() {
	if c.hub.db == nil || c.playerID == 0 {
		c.sendError("not identified")
		return
	}
	if err := c.hub.db.ClearAlbum(c.playerID); err != nil {
		log.Printf("album clear error: %v", err)
		c.sendError("internal error")
		return
	}
	c.SendJSON(Envelope{T: MsgAlbum, Data: AlbumState{Fragments: []Fragment{}}})
}

func (c *Client) handleVisit(data json.RawMessage) {
	if c.hub.db == nil || c.playerID == 0 {
		c.sendError("not identified")
		return
	}
	var msg VisitMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	visited, err := RecordPartnerVisit(c.hub.db, c.hub.auth, c.playerID, msg.Payload, time.Now())
	switch {
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrUnknownPartner):
		c.sendError(err.Error())
		return
	case err != nil:
		log.Printf("visit error: %v", err)
		c.sendError("internal error")
		return
	}
	c.SendJSON(Envelope{T: MsgVisited, Data: visited})
	if !visited.New {
		return
	}
	c.hub.analytics.Track(EvtPartnerVisit, c.playerID, "", map[string]int64{"partner": visited.PartnerID})
	for _, a := range CheckAchievements(c.hub.db, c.playerID, nil) {
		c.SendJSON(Envelope{T: MsgAchievement, Data: AchievementMsg{ID: a.ID, Name: a.Name, Description: a.Description}})
	}
}

func (c *Client) handleProfile() {
	if c.hub.db == nil || c.playerID == 0 {
		c.sendError("not identified")
		return
	}
	stats, err := c.hub.db.GetStats(c.playerID)
	if err != nil {
		c.sendError("profile not found")
		return
	}
	album, err := c.hub.db.GetAlbum(c.playerID)
	if err != nil {
		c.sendError("profile not found")
		return
	}
	achievements, err := c.hub.db.GetAchievements(c.playerID)
	if err != nil {
		c.sendError("profile not found")
		return
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Name:         c.username,
		Runs:         stats.Runs,
		Wins:         stats.Wins,
		BestScore:    stats.BestScore,
		TotalScore:   stats.TotalScore,
		Album:        album,
		Achievements: achievements,
	}})
}
