// Package parser turns raw match-v5 payloads into typed records.
//
// Every function here is pure: no I/O, no logging. Payloads that break the
// structural assumptions of the fixed ten-slot tables are rejected with
// ErrMalformedPayload and leave nothing behind.
package parser

import "errors"

// Slots is the number of participants in a classic match.
const Slots = 10

// ClassicGameMode is the game mode of standard 5v5 matches.
const ClassicGameMode = "CLASSIC"

// ErrMalformedPayload indicates a payload that does not have the expected shape.
var ErrMalformedPayload = errors.New("malformed payload")

// Position is a lane role. The zero value means no role was assigned.
type Position int

const (
	PositionNone Position = iota
	PositionTop
	PositionJungle
	PositionMiddle
	PositionBottom
	PositionUtility
)

var positionNames = map[Position]string{
	PositionTop:     "TOP",
	PositionJungle:  "JUNGLE",
	PositionMiddle:  "MIDDLE",
	PositionBottom:  "BOTTOM",
	PositionUtility: "UTILITY",
}

// ParsePosition maps a teamPosition value to a Position. Empty and unknown
// values map to PositionNone.
func ParsePosition(s string) Position {
	for p, name := range positionNames {
		if name == s {
			return p
		}
	}
	return PositionNone
}

// String returns the API spelling, or "" for PositionNone.
func (p Position) String() string {
	return positionNames[p]
}

// Team is the side a participant started on.
type Team int

const (
	// TeamUnresolved means the first frame did not place the participant in a base.
	TeamUnresolved Team = iota
	// TeamBlue started in the bottom-left base (team 0).
	TeamBlue
	// TeamRed started in the top-right base (team 1).
	TeamRed
)

// Index returns 0 for blue, 1 for red and false when unresolved.
func (t Team) Index() (int, bool) {
	switch t {
	case TeamBlue:
		return 0, true
	case TeamRed:
		return 1, true
	default:
		return 0, false
	}
}

func (t Team) String() string {
	switch t {
	case TeamBlue:
		return "0"
	case TeamRed:
		return "1"
	default:
		return ""
	}
}

// RoleRecord is one participant slot of a classic match.
type RoleRecord struct {
	PUUID    string
	MatchID  string
	Slot     int
	Role     Position
	Champion string
}

// Assigned reports whether the participant had a lane role. Champion is only
// set when it does.
func (r RoleRecord) Assigned() bool {
	return r.Role != PositionNone
}

// RoleSet is the result of role extraction for one match.
type RoleSet struct {
	MatchID string

	// Classic is false for any other game mode; Rows is then empty.
	Classic bool

	Rows []RoleRecord
}

// Point is a map position in game units.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// TrajectoryRecord is the path of one participant slot through a match.
type TrajectoryRecord struct {
	PUUID     string
	MatchID   string
	Slot      int
	Team      Team
	Positions []Point
}

// Base thresholds for team inference from the first frame.
const (
	blueBaseMax = 2000
	redBaseMin  = 13000
)

// inferTeam classifies a first-frame position.
func inferTeam(p Point) Team {
	switch {
	case p.X < blueBaseMax && p.Y < blueBaseMax:
		return TeamBlue
	case p.X > redBaseMin && p.Y > redBaseMin:
		return TeamRed
	default:
		return TeamUnresolved
	}
}
