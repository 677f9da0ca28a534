package main

import (
	"log"
	"sync"

	"kikitoby/game"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients and routes them to runs
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	runs       *RunManager
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	// Persistence
	db        *DB
	auth      *Auth
	analytics *Analytics
	// Engine tuning for every run, nil uses defaults
	tuning *game.Tuning
}

// NewHub creates a new Hub with database
func NewHub(db *DB, analytics *Analytics, tuning *game.Tuning) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		runs:       NewRunManager(),
		ipConns:    make(map[string]int),
		db:         db,
		auth:       NewAuth(db),
		analytics:  analytics,
		tuning:     tuning,
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.analytics.SetConcurrentPeers(n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.analytics.SetConcurrentPeers(n)
			h.leaveRun(client)
		}
	}
}

// leaveRun detaches a controller, or tears down the run a runner owns
func (h *Hub) leaveRun(c *Client) {
	if c.runID == "" {
		return
	}
	if c.isController {
		if run := h.runs.Get(c.runID); run != nil {
			run.RemoveController(c)
		}
	} else {
		h.runs.Remove(c.runID)
		h.analytics.SetActiveRuns(h.runs.Count())
	}
	c.runID = ""
	c.isController = false
}

// finishRun persists a delivered result. Called from the run loop.
func (h *Hub) finishRun(run *Run, res game.Result, out RunOutcome) {
	h.runs.Remove(run.ID)
	h.analytics.SetActiveRuns(h.runs.Count())

	h.analytics.Track(EvtRunEnd, run.PlayerID, run.ID, map[string]interface{}{
		"character": run.Character,
		"title":     run.Title,
		"won":       res.Won,
		"score":     res.Score,
		"time":      res.Time,
	})

	if h.db == nil {
		return
	}
	if err := h.db.RecordRun(RunRow{
		PlayerID:  run.PlayerID,
		RunID:     run.ID,
		Character: string(run.Character),
		Title:     run.Title,
		Won:       res.Won,
		Score:     res.Score,
		Time:      res.Time,
		Stomps:    out.Stomps,
		Hits:      out.Hits,
		Collected: out.Collected,
	}); err != nil {
		log.Printf("record run error: %v", err)
		return
	}
	for _, a := range CheckAchievements(h.db, run.PlayerID, &out) {
		run.owner.SendJSON(Envelope{T: MsgAchievement, Data: AchievementMsg{ID: a.ID, Name: a.Name, Description: a.Description}})
		h.analytics.Track(EvtAchievement, run.PlayerID, run.ID, map[string]string{"id": a.ID})
	}
}

// Shutdown stops every run
func (h *Hub) Shutdown() {
	h.runs.StopAll()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
