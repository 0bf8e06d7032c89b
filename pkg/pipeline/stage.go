package pipeline

import (
	"fmt"

	"github.com/Sternrassler/lol-match-collector/pkg/aggregate"
	"github.com/Sternrassler/lol-match-collector/pkg/client"
	"github.com/Sternrassler/lol-match-collector/pkg/parser"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
)

// Stage is one kind of collection run: it names the request for a work item
// and turns the fetched payload into merged results.
type Stage interface {
	// Name identifies the stage in logs, metrics and reports.
	Name() string

	// Kind is the work item kind the stage accepts.
	Kind() routing.Kind

	// URL returns the request URL for an item.
	URL(item routing.WorkItem) string

	// Handle parses a payload and merges it into agg. It returns the number of
	// rows or ids contributed; parse failures wrap parser.ErrMalformedPayload.
	Handle(item routing.WorkItem, payload []byte, agg *aggregate.Aggregator) (int, error)

	// ProgressEvery is the number of items between progress log lines.
	ProgressEvery() int
}

// Stage names.
const (
	StageMatchIDs     = "match-ids"
	StageRoles        = "roles"
	StageTrajectories = "trajectories"
)

// DefaultMatchCount is the number of recent match ids requested per player.
const DefaultMatchCount = 10

// MatchIDStage collects the most recent match ids of players.
type MatchIDStage struct {
	endpoints client.Endpoints
	count     int
}

// NewMatchIDStage creates the match-id stage. A count below one uses DefaultMatchCount.
func NewMatchIDStage(endpoints client.Endpoints, count int) *MatchIDStage {
	if count < 1 {
		count = DefaultMatchCount
	}
	return &MatchIDStage{endpoints: endpoints, count: count}
}

func (s *MatchIDStage) Name() string { return StageMatchIDs }
func (s *MatchIDStage) Kind() routing.Kind { return routing.KindPlayer }
func (s *MatchIDStage) ProgressEvery() int { return 100 }

func (s *MatchIDStage) URL(item routing.WorkItem) string {
	return s.endpoints.MatchIDs(item.Domain, item.Key, s.count)
}

func (s *MatchIDStage) Handle(_ routing.WorkItem, payload []byte, agg *aggregate.Aggregator) (int, error) {
	ids, err := parser.ParseMatchIDs(payload)
	if err != nil {
		return 0, err
	}
	agg.MergeIDs(ids...)
	return len(ids), nil
}

// RoleStage extracts lane roles from classic matches and records them in the
// filtered match set.
type RoleStage struct {
	endpoints client.Endpoints
}

// NewRoleStage creates the role stage.
func NewRoleStage(endpoints client.Endpoints) *RoleStage {
	return &RoleStage{endpoints: endpoints}
}

func (s *RoleStage) Name() string { return StageRoles }
func (s *RoleStage) Kind() routing.Kind { return routing.KindMatch }
func (s *RoleStage) ProgressEvery() int { return 50 }

func (s *RoleStage) URL(item routing.WorkItem) string {
	return s.endpoints.Match(item.Domain, item.Key)
}

func (s *RoleStage) Handle(item routing.WorkItem, payload []byte, agg *aggregate.Aggregator) (int, error) {
	set, err := parser.ParseRoles(payload)
	if err != nil {
		return 0, err
	}
	if set.MatchID != item.Key {
		return 0, fmt.Errorf("%w: requested %s, payload is %s", parser.ErrMalformedPayload, item.Key, set.MatchID)
	}
	if !set.Classic {
		return 0, nil
	}
	agg.MergeRoles(set.Rows, set.MatchID)
	return len(set.Rows), nil
}

// TrajectoryStage extracts participant paths from match timelines.
type TrajectoryStage struct {
	endpoints client.Endpoints
}

// NewTrajectoryStage creates the trajectory stage.
func NewTrajectoryStage(endpoints client.Endpoints) *TrajectoryStage {
	return &TrajectoryStage{endpoints: endpoints}
}

func (s *TrajectoryStage) Name() string { return StageTrajectories }
func (s *TrajectoryStage) Kind() routing.Kind { return routing.KindMatch }
func (s *TrajectoryStage) ProgressEvery() int { return 100 }

func (s *TrajectoryStage) URL(item routing.WorkItem) string {
	return s.endpoints.Timeline(item.Domain, item.Key)
}

func (s *TrajectoryStage) Handle(item routing.WorkItem, payload []byte, agg *aggregate.Aggregator) (int, error) {
	rows, err := parser.ParseTrajectories(payload)
	if err != nil {
		return 0, err
	}
	if len(rows) > 0 && rows[0].MatchID != item.Key {
		return 0, fmt.Errorf("%w: requested %s, payload is %s", parser.ErrMalformedPayload, item.Key, rows[0].MatchID)
	}
	agg.MergeTrajectories(rows)
	return len(rows), nil
}

// NewStage returns the stage with the given name.
func NewStage(name string, endpoints client.Endpoints, matchCount int) (Stage, error) {
	switch name {
	case StageMatchIDs:
		return NewMatchIDStage(endpoints, matchCount), nil
	case StageRoles:
		return NewRoleStage(endpoints), nil
	case StageTrajectories:
		return NewTrajectoryStage(endpoints), nil
	default:
		return nil, fmt.Errorf("unknown stage %q", name)
	}
}
