package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// PlayerRow represents a player record in the database
type PlayerRow struct {
	ID        int64
	Username  string
	IsGuest   bool
	CreatedAt time.Time
}

// RunRow is one finished run
type RunRow struct {
	PlayerID  int64
	RunID     string
	Character string
	Title     string
	Won       bool
	Score     int
	Time      float64
	Stomps    int
	Hits      int
	Collected int
}

// StatsRow aggregates a player's runs
type StatsRow struct {
	Runs       int
	Wins       int
	BestScore  int
	TotalScore int
}

// PartnerRow is a venue that prints a visit QR code
type PartnerRow struct {
	ID        int64
	Name      string
	PassHash  string
	CreatedAt time.Time
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	// Per-connection pragmas go in the DSN so every pooled connection gets them
	conn, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		is_guest INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		player_id INTEGER NOT NULL REFERENCES players(id),
		character TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		won INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		time REAL NOT NULL DEFAULT 0,
		stomps INTEGER NOT NULL DEFAULT 0,
		hits INTEGER NOT NULL DEFAULT 0,
		collected INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS album (
		player_id INTEGER PRIMARY KEY REFERENCES players(id),
		moustaches INTEGER NOT NULL DEFAULT 0,
		pattes INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS album_fragments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id INTEGER NOT NULL REFERENCES players(id),
		poi_id TEXT NOT NULL,
		who TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS partners (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		pass_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS visits (
		player_id INTEGER NOT NULL REFERENCES players(id),
		partner_id INTEGER NOT NULL REFERENCES partners(id),
		day TEXT NOT NULL,
		scanned_at INTEGER NOT NULL,
		PRIMARY KEY (player_id, partner_id, day)
	);

	CREATE TABLE IF NOT EXISTS achievements (
		player_id INTEGER NOT NULL REFERENCES players(id),
		achievement_id TEXT NOT NULL,
		unlocked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (player_id, achievement_id)
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		player_id INTEGER,
		run_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_player ON runs(player_id);
	CREATE INDEX IF NOT EXISTS idx_fragments_player ON album_fragments(player_id);
	CREATE INDEX IF NOT EXISTS idx_analytics_event ON analytics_events(event_type, created_at);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// CreateGuest creates a guest player
func (db *DB) CreateGuest(username string) (int64, error) {
	res, err := db.conn.Exec("INSERT INTO players (username, is_guest) VALUES (?, 1)", username)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPlayerByID returns a player by ID
func (db *DB) GetPlayerByID(id int64) (*PlayerRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, is_guest, created_at FROM players WHERE id = ?",
		id,
	)
	p := &PlayerRow{}
	err := row.Scan(&p.ID, &p.Username, &p.IsGuest, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// RecordRun stores a finished run
func (db *DB) RecordRun(r RunRow) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (run_id, player_id, character, title, won, score, time, stomps, hits, collected)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.PlayerID, r.Character, r.Title, r.Won, r.Score, r.Time, r.Stomps, r.Hits, r.Collected,
	)
	return err
}

// GetStats aggregates a player's runs
func (db *DB) GetStats(playerID int64) (*StatsRow, error) {
	s := &StatsRow{}
	err := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(won), 0), COALESCE(MAX(score), 0), COALESCE(SUM(score), 0)
		FROM runs WHERE player_id = ?`,
		playerID,
	).Scan(&s.Runs, &s.Wins, &s.BestScore, &s.TotalScore)
	return s, err
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	BestScore int    `json:"best"`
	Wins      int    `json:"wins"`
	Runs      int    `json:"runs"`
}

// GetLeaderboard returns players ranked by their best score
func (db *DB) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := db.conn.Query(`
		SELECT p.username, MAX(r.score) AS best, SUM(r.won), COUNT(*)
		FROM runs r JOIN players p ON p.id = r.player_id
		GROUP BY r.player_id
		ORDER BY best DESC, p.id ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []LeaderboardEntry{}
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.BestScore, &e.Wins, &e.Runs); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// AddFragment appends an album fragment and bumps the companion counter in one transaction
func (db *DB) AddFragment(playerID int64, poiID, who string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO album_fragments (player_id, poi_id, who) VALUES (?, ?, ?)",
		playerID, poiID, who,
	); err != nil {
		return err
	}
	col := "moustaches"
	if who == "toby" {
		col = "pattes"
	}
	if _, err := tx.Exec(
		`INSERT INTO album (player_id, `+col+`) VALUES (?, 1)
		 ON CONFLICT(player_id) DO UPDATE SET `+col+` = `+col+` + 1`,
		playerID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAlbum returns counters and fragments in pick order
func (db *DB) GetAlbum(playerID int64) (AlbumState, error) {
	a := AlbumState{Fragments: []Fragment{}}
	err := db.conn.QueryRow(
		"SELECT moustaches, pattes FROM album WHERE player_id = ?", playerID,
	).Scan(&a.Moustaches, &a.Pattes)
	if err != nil && err != sql.ErrNoRows {
		return a, err
	}

	rows, err := db.conn.Query(
		"SELECT poi_id, who FROM album_fragments WHERE player_id = ? ORDER BY id",
		playerID,
	)
	if err != nil {
		return a, err
	}
	defer rows.Close()
	for rows.Next() {
		var f Fragment
		if err := rows.Scan(&f.PoiID, &f.Who); err != nil {
			return a, err
		}
		a.Fragments = append(a.Fragments, f)
	}
	return a, rows.Err()
}

// ClearAlbum resets counters and fragments
func (db *DB) ClearAlbum(playerID int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM album_fragments WHERE player_id = ?", playerID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM album WHERE player_id = ?", playerID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreatePartner stores a partner account (returns partner ID)
func (db *DB) CreatePartner(name, passHash string) (int64, error) {
	res, err := db.conn.Exec("INSERT INTO partners (name, pass_hash) VALUES (?, ?)", name, passHash)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPartner returns a partner by ID, nil if unknown
func (db *DB) GetPartner(id int64) (*PartnerRow, error) {
	p := &PartnerRow{}
	err := db.conn.QueryRow(
		"SELECT id, name, pass_hash, created_at FROM partners WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.PassHash, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// RecordVisit stores a partner visit once per player, partner and day.
// Returns true if this is the first visit of the day.
func (db *DB) RecordVisit(playerID, partnerID int64, at time.Time) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT OR IGNORE INTO visits (player_id, partner_id, day, scanned_at) VALUES (?, ?, ?, ?)",
		playerID, partnerID, DayKey(at), at.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountVisits returns the number of distinct days a player visited partners
func (db *DB) CountVisits(playerID int64) (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM visits WHERE player_id = ?", playerID).Scan(&n)
	return n, err
}

// GetAchievements returns unlocked achievement IDs for a player
func (db *DB) GetAchievements(playerID int64) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT achievement_id FROM achievements WHERE player_id = ? ORDER BY unlocked_at, achievement_id",
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UnlockAchievement records an achievement. Returns true if it was newly unlocked.
func (db *DB) UnlockAchievement(playerID int64, id string) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT OR IGNORE INTO achievements (player_id, achievement_id) VALUES (?, ?)",
		playerID, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetSetting returns a stored setting, empty if missing
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting stores a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
