package main

import (
	"errors"
	"fmt"

	"kikitoby/game"
)

const maxPoiIDLen = 64

var ErrBadFragment = errors.New("invalid album fragment")

// Fragment is one place added to the album, credited to a companion
type Fragment struct {
	PoiID string `json:"poiId"`
	Who   string `json:"who"`
}

// AlbumState is the album counters plus fragments in pick order
type AlbumState struct {
	Moustaches int        `json:"moustaches"` // Kiki picks
	Pattes     int        `json:"pattes"`     // Toby picks
	Fragments  []Fragment `json:"album"`
}

// PickFragment adds a place to the player's album. When the place is the
// themed landmark it also returns the mini-game launch for that companion.
func PickFragment(db *DB, playerID int64, p PickMsg) (AlbumState, *LaunchMsg, error) {
	who, err := game.ParseCharacter(p.Who)
	if err != nil {
		return AlbumState{}, nil, fmt.Errorf("%w: %v", ErrBadFragment, err)
	}
	poi := truncate(p.PoiID, maxPoiIDLen)
	if poi == "" {
		return AlbumState{}, nil, fmt.Errorf("%w: empty poi id", ErrBadFragment)
	}

	if err := db.AddFragment(playerID, poi, string(who)); err != nil {
		return AlbumState{}, nil, err
	}
	album, err := db.GetAlbum(playerID)
	if err != nil {
		return AlbumState{}, nil, err
	}

	var launch *LaunchMsg
	if game.IsLandmark(p.Title) {
		launch = &LaunchMsg{
			Character: string(who),
			Title:     truncate(p.Title, maxTitleLen) + " — Run",
		}
	}
	return album, launch, nil
}
