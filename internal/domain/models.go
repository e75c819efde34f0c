package domain

import (
	"time"
)

type ChallengeStatus string

const (
	ChallengeActive  ChallengeStatus = "ACTIVE"
	ChallengeSuccess ChallengeStatus = "SUCCESS"
	ChallengeFailed  ChallengeStatus = "FAILED"
)

// ChallengeType is what a challenge's value counts: meters for DISTANCE,
// runs for STREAK. Crew challenges are always DISTANCE.
type ChallengeType string

const (
	ChallengeDistance ChallengeType = "DISTANCE"
	ChallengeStreak   ChallengeType = "STREAK"
)

type MatchStatus string

const (
	MatchOngoing  MatchStatus = "ONGOING"
	MatchFinished MatchStatus = "FINISHED"
	MatchDraw     MatchStatus = "DRAW"
)

// AggregateKind names the downstream aggregate a running fans out to.
type AggregateKind string

const (
	AggregateChallenge AggregateKind = "challenge"
	AggregateMatch     AggregateKind = "match"
)

type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Running is one accepted activity record. Distance is in meters.
type Running struct {
	ID              string // nanoid
	ContributorID   string
	GroupID         string
	Distance        int64
	DurationSeconds int64
	StartedAt       time.Time
	CreatedAt       time.Time
}

type Challenge struct {
	ID           string
	GroupID      string
	Title        string
	Description  string
	Type         ChallengeType
	GoalValue    int64
	CurrentValue int64
	Status       ChallengeStatus
	StartAt      time.Time
	EndAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Challenge) IsActive() bool {
	return c.Status == ChallengeActive
}

func (c *Challenge) GoalReached() bool {
	return c.CurrentValue >= c.GoalValue
}

// Expired reports whether the window closed before now without the goal met.
func (c *Challenge) Expired(now time.Time) bool {
	return c.IsActive() && c.EndAt.Before(now) && !c.GoalReached()
}

// ProgressPercent is display-only: rounded and capped at 100.
func (c *Challenge) ProgressPercent() int {
	return progressPercent(c.CurrentValue, c.GoalValue)
}

func progressPercent(current, goal int64) int {
	if goal <= 0 {
		return 0
	}
	pct := (current*100 + goal/2) / goal
	if pct > 100 {
		pct = 100
	}
	return int(pct)
}

// ChallengeContribution is one contributor's cumulative share of a challenge.
type ChallengeContribution struct {
	ID            string
	ChallengeID   string
	ContributorID string
	Value         int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Match struct {
	ID            string
	Title         string
	Description   string
	GroupAID      string
	GroupBID      string
	Status        MatchStatus
	WinnerGroupID string // empty unless FINISHED
	StartAt       time.Time
	EndAt         time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Participants  []MatchParticipant
}

// HasGroup reports whether groupID is one of the two registered participants.
func (m *Match) HasGroup(groupID string) bool {
	return groupID == m.GroupAID || groupID == m.GroupBID
}

func (m *Match) Within(now time.Time) bool {
	return !now.Before(m.StartAt) && !now.After(m.EndAt)
}

type MatchParticipant struct {
	ID        string
	MatchID   string
	GroupID   string
	Value     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemberContribution ranks a contributor inside a group for a time window.
type MemberContribution struct {
	ContributorID string
	Distance      int64
	Rank          int
}

// PersonalChallenge is a contributor's monthly goal computed on read from
// their runnings. Nothing about it is stored.
type PersonalChallenge struct {
	Title         string
	Description   string
	Type          ChallengeType
	GoalValue     int64
	CurrentValue  int64
	DaysRemaining int64
	StartAt       time.Time
	EndAt         time.Time
}

func (p *PersonalChallenge) ProgressPercent() int {
	return progressPercent(p.CurrentValue, p.GoalValue)
}

// AggregateFailure is a dead-lettered aggregate update for a persisted running.
type AggregateFailure struct {
	ID        string
	RunningID string
	Aggregate AggregateKind
	LastError string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
