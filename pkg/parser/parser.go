package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type metadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type matchPayload struct {
	Metadata *metadata `json:"metadata"`
	Info     *struct {
		GameMode     string `json:"gameMode"`
		Participants []struct {
			ParticipantID int     `json:"participantId"`
			PUUID         string  `json:"puuid"`
			TeamPosition  *string `json:"teamPosition"`
			ChampionName  *string `json:"championName"`
		} `json:"participants"`
	} `json:"info"`
}

type timelinePayload struct {
	Metadata *metadata `json:"metadata"`
	Info     *struct {
		Frames []struct {
			ParticipantFrames map[string]struct {
				Position *Point `json:"position"`
			} `json:"participantFrames"`
		} `json:"frames"`
	} `json:"info"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

func (m *metadata) validate() error {
	if m == nil {
		return malformed("missing metadata")
	}
	if m.MatchID == "" {
		return malformed("missing metadata.matchId")
	}
	if len(m.Participants) < Slots {
		return malformed("%s: metadata lists %d participants, want %d", m.MatchID, len(m.Participants), Slots)
	}
	return nil
}

// ParseMatchIDs decodes a player's match-id list. Blank ids are dropped.
func ParseMatchIDs(payload []byte) ([]string, error) {
	var raw []string
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, malformed("match id list: %v", err)
	}
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ParseRoles extracts the lane role and champion of every participant slot.
// A champion is kept even when the role is absent or unrecognised.
// Non-classic matches yield an empty set with Classic false.
func ParseRoles(payload []byte) (RoleSet, error) {
	var match matchPayload
	if err := json.Unmarshal(payload, &match); err != nil {
		return RoleSet{}, malformed("match: %v", err)
	}
	if match.Info == nil {
		return RoleSet{}, malformed("missing info")
	}
	if match.Metadata == nil || match.Metadata.MatchID == "" {
		return RoleSet{}, malformed("missing metadata.matchId")
	}

	set := RoleSet{MatchID: match.Metadata.MatchID}
	if match.Info.GameMode != ClassicGameMode {
		return set, nil
	}
	if err := match.Metadata.validate(); err != nil {
		return RoleSet{}, err
	}
	if len(match.Info.Participants) > Slots {
		return RoleSet{}, malformed("%s: %d participants in a classic match", set.MatchID, len(match.Info.Participants))
	}

	rows := make([]RoleRecord, Slots)
	for i := range rows {
		rows[i] = RoleRecord{
			PUUID:   match.Metadata.Participants[i],
			MatchID: set.MatchID,
			Slot:    i + 1,
		}
	}

	for i, p := range match.Info.Participants {
		if p.ChampionName != nil {
			rows[i].Champion = *p.ChampionName
		}
		if p.TeamPosition != nil {
			rows[i].Role = ParsePosition(*p.TeamPosition)
		}
	}

	set.Classic = true
	set.Rows = rows
	return set, nil
}

// ParseTrajectories collects the per-frame positions of every participant slot
// and infers each slot's team from the first frame only.
func ParseTrajectories(payload []byte) ([]TrajectoryRecord, error) {
	var timeline timelinePayload
	if err := json.Unmarshal(payload, &timeline); err != nil {
		return nil, malformed("timeline: %v", err)
	}
	if err := timeline.Metadata.validate(); err != nil {
		return nil, err
	}
	if timeline.Info == nil {
		return nil, malformed("%s: missing info", timeline.Metadata.MatchID)
	}
	matchID := timeline.Metadata.MatchID

	rows := make([]TrajectoryRecord, Slots)
	for i := range rows {
		rows[i] = TrajectoryRecord{
			PUUID:     timeline.Metadata.Participants[i],
			MatchID:   matchID,
			Slot:      i + 1,
			Positions: []Point{},
		}
	}

	for frameIdx, frame := range timeline.Info.Frames {
		keys := make([]string, 0, len(frame.ParticipantFrames))
		for key := range frame.ParticipantFrames {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			slot, err := strconv.Atoi(key)
			if err != nil {
				return nil, malformed("%s: frame %d: participant id %q is not numeric", matchID, frameIdx, key)
			}
			if slot < 1 || slot > Slots {
				return nil, malformed("%s: frame %d: participant id %d outside 1-%d", matchID, frameIdx, slot, Slots)
			}

			pos := frame.ParticipantFrames[key].Position
			if pos == nil {
				continue
			}
			row := &rows[slot-1]
			row.Positions = append(row.Positions, *pos)
			if frameIdx == 0 {
				row.Team = inferTeam(*pos)
			}
		}
	}

	return rows, nil
}
