package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gorilla/websocket"
)

// Controller links are /<run uuid>, served the SPA which then sends "control"
var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorMsg{Msg: msg})
}

// SetupRoutes configures HTTP routes. assetDir may be empty to disable /assets/.
func SetupRoutes(hub *Hub, clientDir, assetDir string) *http.ServeMux {
	mux := http.NewServeMux()

	// Serve static files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(clientDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		// SPA: serve index.html for root and controller links
		if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
			http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}))

	// Sprites and backgrounds, fetched by game.HTTPFetcher and browser clients
	if assetDir != "" {
		mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(assetDir))))
	}

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /api/leaderboard", handleLeaderboard(hub))
	mux.HandleFunc("GET /api/stats", handleStats(hub))
	mux.HandleFunc("POST /api/partners", handleRegisterPartner(hub))
	mux.HandleFunc("GET /api/partners/{id}/qr.png", handlePartnerQR(hub))
	mux.HandleFunc("GET /api/receipts/{token}", handleReceipt(hub))

	return mux
}

// handleLeaderboard returns the best scores: GET /api/leaderboard?limit=
func handleLeaderboard(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
			limit = n
		}
		entries, err := hub.db.GetLeaderboard(limit)
		if err != nil {
			log.Printf("leaderboard error: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// handleStats returns live metrics and event counts: GET /api/stats?days=
func handleStats(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if n, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && n > 0 && n <= 365 {
			days = n
		}
		a := hub.analytics
		peers, runs := a.GetLiveMetrics()
		events, err := a.EventCounts(days)
		if err != nil {
			log.Printf("stats error: %v", err)
		}
		characters, err := a.CharacterStats(days)
		if err != nil {
			log.Printf("stats error: %v", err)
		}
		dau, _ := a.DAUCount()
		wau, _ := a.WAUCount()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"peers":      peers,
			"clients":    hub.ClientCount(),
			"conns":      hub.TotalConns(),
			"runs":       runs,
			"dau":        dau,
			"wau":        wau,
			"events":     events,
			"characters": characters,
		})
	}
}
