package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// PartnerNamespace prefixes every partner QR payload
const PartnerNamespace = "KT-PARTNER"

const qrSize = 512

var (
	ErrInvalidPayload = errors.New("not a partner code")
	ErrUnknownPartner = errors.New("unknown partner")
)

// PartnerScan is a decoded partner QR payload
type PartnerScan struct {
	PartnerID string
	At        time.Time
}

// ParsePartnerPayload decodes "KT-PARTNER|<id>|<ts>". Fewer than three parts or
// another namespace is invalid. A missing or non-numeric timestamp (unix millis) means now.
func ParsePartnerPayload(raw string, now time.Time) (PartnerScan, error) {
	parts := strings.Split(strings.TrimSpace(raw), "|")
	if len(parts) < 3 || parts[0] != PartnerNamespace {
		return PartnerScan{}, ErrInvalidPayload
	}
	scan := PartnerScan{PartnerID: parts[1], At: now}
	if ms, err := strconv.ParseInt(parts[2], 10, 64); err == nil && ms != 0 {
		scan.At = time.UnixMilli(ms)
	}
	return scan, nil
}

// PartnerPayload encodes the QR payload for a partner
func PartnerPayload(id int64, at time.Time) string {
	return fmt.Sprintf("%s|%d|%d", PartnerNamespace, id, at.UnixMilli())
}

// PartnerQR renders the partner payload as a PNG QR code
func PartnerQR(id int64, at time.Time, size int) ([]byte, error) {
	return qrcode.Encode(PartnerPayload(id, at), qrcode.Medium, size)
}

// RecordPartnerVisit validates a scanned payload, records the visit once per day
// and signs a receipt
func RecordPartnerVisit(db *DB, auth *Auth, playerID int64, raw string, now time.Time) (*VisitedMsg, error) {
	scan, err := ParsePartnerPayload(raw, now)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(scan.PartnerID, 10, 64)
	if err != nil {
		return nil, ErrUnknownPartner
	}
	partner, err := db.GetPartner(id)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, ErrUnknownPartner
	}

	// The scan timestamp is when the code was printed; the visit counts today
	fresh, err := db.RecordVisit(playerID, partner.ID, now)
	if err != nil {
		return nil, err
	}
	receipt, err := auth.IssueReceipt(VisitReceipt{PlayerID: playerID, PartnerID: partner.ID, Day: DayKey(now)})
	if err != nil {
		return nil, err
	}
	return &VisitedMsg{PartnerID: partner.ID, Name: partner.Name, New: fresh, Receipt: receipt}, nil
}

// handleRegisterPartner creates a partner account: POST {name, password}
func handleRegisterPartner(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request")
			return
		}
		id, err := hub.auth.RegisterPartner(req.Name, req.Password)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("partner %d registered: %s", id, req.Name)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":      id,
			"payload": PartnerPayload(id, time.Now()),
		})
	}
}

// handlePartnerQR serves the partner QR PNG: GET /api/partners/{id}/qr.png?password=
func handlePartnerQR(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, ErrUnknownPartner.Error())
			return
		}
		p, err := hub.auth.CheckPartner(id, r.URL.Query().Get("password"), extractIP(r))
		switch {
		case errors.Is(err, ErrTooManyAttempts):
			writeJSONError(w, http.StatusTooManyRequests, err.Error())
			return
		case err != nil:
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		png, err := PartnerQR(p.ID, time.Now(), qrSize)
		if err != nil {
			log.Printf("qr error: %v", err)
			writeJSONError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(png)
	}
}

// handleReceipt lets a partner check a visit receipt: GET /api/receipts/{token}
func handleReceipt(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, err := hub.auth.ValidateReceipt(r.PathValue("token"))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid receipt")
			return
		}
		writeJSON(w, http.StatusOK, rc)
	}
}
