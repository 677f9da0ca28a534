package main

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBGuest(t *testing.T) {
	db := openTestDB(t)
	id, err := db.CreateGuest("Flaneur_1")
	if err != nil {
		t.Fatal(err)
	}
	p, err := db.GetPlayerByID(id)
	if err != nil || p == nil {
		t.Fatalf("expected player, got %v %v", p, err)
	}
	if p.Username != "Flaneur_1" || !p.IsGuest {
		t.Errorf("unexpected player %+v", p)
	}
	if p, _ := db.GetPlayerByID(id + 100); p != nil {
		t.Error("expected nil for unknown player")
	}
	if _, err := db.CreateGuest("Flaneur_1"); err == nil {
		t.Error("expected duplicate username rejected")
	}
}

func TestDBRunsAndLeaderboard(t *testing.T) {
	db := openTestDB(t)
	a, _ := db.CreateGuest("a")
	b, _ := db.CreateGuest("b")

	runs := []RunRow{
		{PlayerID: a, RunID: "r1", Character: "kiki", Won: true, Score: 12, Time: 20},
		{PlayerID: a, RunID: "r2", Character: "kiki", Won: false, Score: 30, Time: 7.5},
		{PlayerID: b, RunID: "r3", Character: "toby", Won: true, Score: 18, Time: 20},
	}
	for _, r := range runs {
		if err := db.RecordRun(r); err != nil {
			t.Fatalf("record run: %v", err)
		}
	}
	if err := db.RecordRun(runs[0]); err == nil {
		t.Error("expected duplicate run ID rejected")
	}

	s, err := db.GetStats(a)
	if err != nil {
		t.Fatal(err)
	}
	if s.Runs != 2 || s.Wins != 1 || s.BestScore != 30 || s.TotalScore != 42 {
		t.Errorf("unexpected stats %+v", s)
	}
	empty, _ := db.CreateGuest("c")
	if s, _ := db.GetStats(empty); s.Runs != 0 || s.BestScore != 0 {
		t.Errorf("expected zero stats, got %+v", s)
	}

	lb, err := db.GetLeaderboard(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(lb) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lb))
	}
	if lb[0].Username != "a" || lb[0].BestScore != 30 || lb[0].Rank != 1 {
		t.Errorf("unexpected first entry %+v", lb[0])
	}
	if lb[1].Username != "b" || lb[1].Rank != 2 || lb[1].Wins != 1 {
		t.Errorf("unexpected second entry %+v", lb[1])
	}
}

func TestDBAlbum(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreateGuest("a")

	album, err := db.GetAlbum(id)
	if err != nil {
		t.Fatal(err)
	}
	if album.Moustaches != 0 || len(album.Fragments) != 0 {
		t.Errorf("expected empty album, got %+v", album)
	}

	db.AddFragment(id, "poi-1", "kiki")
	db.AddFragment(id, "poi-2", "toby")
	db.AddFragment(id, "poi-3", "kiki")
	album, _ = db.GetAlbum(id)
	if album.Moustaches != 2 || album.Pattes != 1 {
		t.Errorf("expected 2/1, got %d/%d", album.Moustaches, album.Pattes)
	}
	if len(album.Fragments) != 3 || album.Fragments[1] != (Fragment{PoiID: "poi-2", Who: "toby"}) {
		t.Errorf("unexpected fragments %+v", album.Fragments)
	}

	if err := db.ClearAlbum(id); err != nil {
		t.Fatal(err)
	}
	album, _ = db.GetAlbum(id)
	if album.Moustaches != 0 || album.Pattes != 0 || len(album.Fragments) != 0 {
		t.Errorf("expected cleared album, got %+v", album)
	}
}

func TestDBVisitOncePerDay(t *testing.T) {
	db := openTestDB(t)
	player, _ := db.CreateGuest("a")
	partner, err := db.CreatePartner("Café de Flore", "hash")
	if err != nil {
		t.Fatal(err)
	}

	day := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	if fresh, err := db.RecordVisit(player, partner, day); err != nil || !fresh {
		t.Fatalf("expected first visit, got %v %v", fresh, err)
	}
	if fresh, _ := db.RecordVisit(player, partner, day.Add(8*time.Hour)); fresh {
		t.Error("expected second visit on the same day ignored")
	}
	if fresh, _ := db.RecordVisit(player, partner, day.Add(24*time.Hour)); !fresh {
		t.Error("expected a visit on the next day recorded")
	}
	if n, _ := db.CountVisits(player); n != 2 {
		t.Errorf("expected 2 visits, got %d", n)
	}
	if _, err := db.RecordVisit(player, partner+50, day); err == nil {
		t.Error("expected foreign key error for unknown partner")
	}
}

func TestDBAchievementsAndSettings(t *testing.T) {
	db := openTestDB(t)
	id, _ := db.CreateGuest("a")

	if ok, _ := db.UnlockAchievement(id, "first_run"); !ok {
		t.Error("expected first unlock")
	}
	if ok, _ := db.UnlockAchievement(id, "first_run"); ok {
		t.Error("expected repeated unlock ignored")
	}
	ids, _ := db.GetAchievements(id)
	if len(ids) != 1 || ids[0] != "first_run" {
		t.Errorf("unexpected achievements %v", ids)
	}

	if v := db.GetSetting("missing"); v != "" {
		t.Errorf("expected empty setting, got %q", v)
	}
	db.SetSetting("k", "1")
	db.SetSetting("k", "2")
	if v := db.GetSetting("k"); v != "2" {
		t.Errorf("expected 2, got %q", v)
	}
}
