package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 30 * 24 * time.Hour // guest identities live on the phone
	receiptExpiry    = 24 * time.Hour
	bcryptCost       = 12
	minPasswordLen   = 6
	maxPartnerName   = 40
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrBadCredentials  = errors.New("invalid partner or password")
	ErrTooManyAttempts = errors.New("too many attempts, try again later")
)

// Auth issues guest identities, partner accounts and visit receipts
type Auth struct {
	db        *DB
	jwtSecret []byte

	// Rate limiting for partner password checks (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// VisitReceipt is the signed proof of a partner visit shown at the counter
type VisitReceipt struct {
	PlayerID  int64  `json:"pid"`
	PartnerID int64  `json:"partner"`
	Day       string `json:"day"`
}

// NewAuth creates a new Auth handler
func NewAuth(db *DB) *Auth {
	secret := loadOrCreateSecret(db)
	return &Auth{
		db:        db,
		jwtSecret: secret,
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// Guest creates a guest player and returns its identity token
func (a *Auth) Guest() (int64, string, string, error) {
	name := GenerateGuestName()
	id, err := a.db.CreateGuest(name)
	if err != nil {
		return 0, "", "", fmt.Errorf("create guest: %w", err)
	}
	token, err := a.sign(jwt.MapClaims{
		"typ": "player",
		"pid": id,
		"usr": name,
		"exp": time.Now().Add(jwtExpiry).Unix(),
		"iat": time.Now().Unix(),
	})
	if err != nil {
		return 0, "", "", err
	}
	return id, name, token, nil
}

// ValidateToken validates an identity token and returns (playerID, username, error)
func (a *Auth) ValidateToken(tokenStr string) (int64, string, error) {
	claims, err := a.parse(tokenStr, "player")
	if err != nil {
		return 0, "", err
	}
	pidFloat, ok := claims["pid"].(float64)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	return int64(pidFloat), username, nil
}

// RegisterPartner creates a partner account with a bcrypt password
func (a *Auth) RegisterPartner(name, password string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxPartnerName {
		return 0, fmt.Errorf("name must be 1-%d characters", maxPartnerName)
	}
	if len(password) < minPasswordLen {
		return 0, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("internal error")
	}
	id, err := a.db.CreatePartner(name, string(hash))
	if err != nil {
		return 0, fmt.Errorf("failed to create partner")
	}
	return id, nil
}

// CheckPartner verifies a partner password, rate limited per IP
func (a *Auth) CheckPartner(id int64, password, ip string) (*PartnerRow, error) {
	if !a.checkRate(ip) {
		return nil, ErrTooManyAttempts
	}
	p, err := a.db.GetPartner(id)
	if err != nil {
		return nil, fmt.Errorf("database error")
	}
	if p == nil {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PassHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return p, nil
}

// IssueReceipt signs a visit receipt
func (a *Auth) IssueReceipt(r VisitReceipt) (string, error) {
	return a.sign(jwt.MapClaims{
		"typ":     "visit",
		"pid":     r.PlayerID,
		"partner": r.PartnerID,
		"day":     r.Day,
		"exp":     time.Now().Add(receiptExpiry).Unix(),
		"iat":     time.Now().Unix(),
	})
}

// ValidateReceipt checks a visit receipt signature and expiry
func (a *Auth) ValidateReceipt(tokenStr string) (VisitReceipt, error) {
	claims, err := a.parse(tokenStr, "visit")
	if err != nil {
		return VisitReceipt{}, err
	}
	pid, ok1 := claims["pid"].(float64)
	partner, ok2 := claims["partner"].(float64)
	day, ok3 := claims["day"].(string)
	if !ok1 || !ok2 || !ok3 {
		return VisitReceipt{}, ErrInvalidToken
	}
	return VisitReceipt{PlayerID: int64(pid), PartnerID: int64(partner), Day: day}, nil
}

func (a *Auth) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// parse validates a token and checks its type claim
func (a *Auth) parse(tokenStr, typ string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims["typ"] != typ {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}

// GenerateGuestName creates a guest name like "Flaneur_a3f2c1"
func GenerateGuestName() string {
	return "Flaneur_" + GenerateID(3)
}
