package db

import (
	"database/sql"
	"time"
)

type CrewGroup struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Running struct {
	ID              string
	ContributorID   string
	GroupID         string
	Distance        int64
	DurationSeconds int64
	StartedAt       time.Time
	CreatedAt       time.Time
}

type Challenge struct {
	ID            string
	GroupID       string
	Title         string
	Description   string
	ChallengeType string
	GoalValue     int64
	CurrentValue  int64
	Status        string
	StartAt       time.Time
	EndAt         time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

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
	Status        string
	WinnerGroupID sql.NullString
	StartAt       time.Time
	EndAt         time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type MatchParticipant struct {
	ID        string
	MatchID   string
	GroupID   string
	Value     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AggregateFailure struct {
	ID        string
	RunningID string
	Aggregate string
	LastError string
	Attempts  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
