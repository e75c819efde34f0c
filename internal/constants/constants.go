package constants

import "time"

const (
	RequestTimeout  = 30 * time.Second
	DatabaseTimeout = 5 * time.Second
	WebhookTimeout  = 10 * time.Second
	SnapshotTimeout = 2 * time.Second
)

const (
	WebhookWorkers   = 8
	WebhookQueueSize = 256
)

const (
	DBMaxOpenConns    = 20
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	ChallengeListLimit    = 50
	ContributionListLimit = 100
	FailureListLimit      = 100
	MonthlyChallengeTitle = "Monthly 100km challenge"
	MonthlyChallengeDesc  = "Run together as a crew and reach the monthly goal"
)

const (
	PersonalDistanceGoal  = 50000
	PersonalDistanceTitle = "Run 50km this month"
	PersonalDistanceDesc  = "Consistency wins. Reach your monthly distance goal."
	PersonalRunCountGoal  = 12
	PersonalRunCountTitle = "Run 12 times this month"
	PersonalRunCountDesc  = "Get out for a run twelve times before the month ends."
)
