package main

// AchievementDef describes one badge
type AchievementDef struct {
	ID          string
	Name        string
	Description string
}

var Achievements = []AchievementDef{
	{"first_run", "Premiers pas", "Finish your first run"},
	{"first_win", "Bravo !", "Survive a whole run"},
	{"stomper", "Chasseur de rats", "Stomp 3 rats in a single run"},
	{"flawless", "Sans une égratignure", "Win a run without getting hit"},
	{"gourmet", "Gourmet", "Collect 10 treats in a single run"},
	{"regular", "Habitué", "Finish 10 runs"},
	{"explorer", "Flâneur", "Visit a partner venue"},
}

// RunOutcome is what achievements look at after a run
type RunOutcome struct {
	Won       bool
	Score     int
	Stomps    int
	Hits      int
	Collected int
}

// CheckAchievements unlocks badges earned by a finished run (or nil outcome for
// non-run triggers such as visits). Returns newly unlocked achievements.
func CheckAchievements(db *DB, playerID int64, run *RunOutcome) []AchievementDef {
	if db == nil {
		return nil
	}

	stats, err := db.GetStats(playerID)
	if err != nil || stats == nil {
		return nil
	}
	visits, err := db.CountVisits(playerID)
	if err != nil {
		return nil
	}

	existing, err := db.GetAchievements(playerID)
	if err != nil {
		return nil
	}
	has := make(map[string]bool, len(existing))
	for _, a := range existing {
		has[a] = true
	}

	var unlocked []AchievementDef

	check := func(id string) bool {
		if has[id] {
			return false
		}
		switch id {
		case "first_run":
			return stats.Runs >= 1
		case "first_win":
			return stats.Wins >= 1
		case "stomper":
			return run != nil && run.Stomps >= 3
		case "flawless":
			return run != nil && run.Won && run.Hits == 0
		case "gourmet":
			return run != nil && run.Collected >= 10
		case "regular":
			return stats.Runs >= 10
		case "explorer":
			return visits >= 1
		}
		return false
	}

	for _, def := range Achievements {
		if check(def.ID) {
			if newlyUnlocked, err := db.UnlockAchievement(playerID, def.ID); err == nil && newlyUnlocked {
				unlocked = append(unlocked, def)
			}
		}
	}

	return unlocked
}
