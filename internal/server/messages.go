package server

import (
	"time"

	"runcrew/internal/domain"
)

type Group struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type Running struct {
	ID              string `json:"id"`
	ContributorID   string `json:"contributor_id"`
	GroupID         string `json:"group_id"`
	Distance        int64  `json:"distance"`
	DurationSeconds int64  `json:"duration_seconds"`
	StartedAt       string `json:"started_at"`
	CreatedAt       string `json:"created_at"`
}

type Challenge struct {
	ID              string `json:"id"`
	GroupID         string `json:"group_id"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Type            string `json:"type"`
	GoalValue       int64  `json:"goal_value"`
	CurrentValue    int64  `json:"current_value"`
	ProgressPercent int    `json:"progress_percent"`
	Status          string `json:"status"`
	StartAt         string `json:"start_at"`
	EndAt           string `json:"end_at"`
	UpdatedAt       string `json:"updated_at"`
}

type Contribution struct {
	ContributorID string `json:"contributor_id"`
	Value         int64  `json:"value"`
	Rank          int    `json:"rank"`
}

type Participant struct {
	GroupID string `json:"group_id"`
	Value   int64  `json:"value"`
}

type Match struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	GroupAID      string        `json:"group_a_id"`
	GroupBID      string        `json:"group_b_id"`
	Status        string        `json:"status"`
	WinnerGroupID string        `json:"winner_group_id,omitempty"`
	StartAt       string        `json:"start_at"`
	EndAt         string        `json:"end_at"`
	Participants  []Participant `json:"participants"`
}

type MemberContribution struct {
	ContributorID string `json:"contributor_id"`
	Distance      int64  `json:"distance"`
	Rank          int    `json:"rank"`
}

type PersonalChallenge struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Type            string `json:"type"`
	GoalValue       int64  `json:"goal_value"`
	CurrentValue    int64  `json:"current_value"`
	ProgressPercent int    `json:"progress_percent"`
	DaysRemaining   int64  `json:"days_remaining"`
	StartAt         string `json:"start_at"`
	EndAt           string `json:"end_at"`
}

type Failure struct {
	ID        string `json:"id"`
	RunningID string `json:"running_id"`
	Aggregate string `json:"aggregate"`
	LastError string `json:"last_error"`
	Attempts  int    `json:"attempts"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type RegisterGroupRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type RegisterGroupResponse struct {
	Group Group `json:"group"`
}

type SubmitRunningRequest struct {
	ContributorID   string `json:"contributor_id"`
	GroupID         string `json:"group_id"`
	Distance        int64  `json:"distance"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	StartedAt       string `json:"started_at,omitempty"`
}

type SubmitRunningResponse struct {
	Running   Running    `json:"running"`
	Challenge *Challenge `json:"challenge,omitempty"`
	Match     *Match     `json:"match,omitempty"`
}

type StartChallengeRequest struct {
	GroupID     string `json:"group_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	GoalValue   int64  `json:"goal_value"`
	EndAt       string `json:"end_at"`
}

type GetActiveChallengeRequest struct {
	GroupID string `json:"group_id"`
}

type ChallengeResponse struct {
	Challenge *Challenge `json:"challenge,omitempty"`
}

type ListChallengesRequest struct {
	GroupID string `json:"group_id"`
}

type ListChallengesResponse struct {
	Challenges []Challenge `json:"challenges"`
}

type ListContributionsRequest struct {
	ChallengeID string `json:"challenge_id"`
}

type ListContributionsResponse struct {
	Contributions []Contribution `json:"contributions"`
}

type FormMatchRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	GroupAID    string `json:"group_a_id"`
	GroupBID    string `json:"group_b_id"`
	StartAt     string `json:"start_at"`
	EndAt       string `json:"end_at"`
}

type FinishMatchRequest struct {
	MatchID string `json:"match_id"`
}

type GetOngoingMatchRequest struct{}

type GetMatchRequest struct {
	MatchID string `json:"match_id"`
}

type MatchResponse struct {
	Match *Match `json:"match,omitempty"`
}

type ListMemberContributionsRequest struct {
	MatchID string `json:"match_id"`
	GroupID string `json:"group_id"`
}

type ListMemberContributionsResponse struct {
	Members []MemberContribution `json:"members"`
}

type RunSweepRequest struct{}

type RunSweepResponse struct {
	Failed     int   `json:"failed"`
	Created    int   `json:"created"`
	DurationMs int64 `json:"duration_ms"`
}

type ListFailuresRequest struct{}

type ListFailuresResponse struct {
	Failures []Failure `json:"failures"`
}

type ReplayFailureRequest struct {
	FailureID string `json:"failure_id"`
}

type ReplayFailureResponse struct {
	Failure Failure `json:"failure"`
}

type ListPersonalChallengesRequest struct {
	ContributorID string `json:"contributor_id"`
}

type ListPersonalChallengesResponse struct {
	Challenges []PersonalChallenge `json:"challenges"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime reads an RFC3339 field. Empty input yields the zero time.
func parseTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Message: "must be an RFC3339 timestamp"}
	}
	return t.UTC(), nil
}

func toGroup(g *domain.Group) Group {
	return Group{ID: g.ID, Name: g.Name, CreatedAt: formatTime(g.CreatedAt)}
}

func toRunning(r *domain.Running) Running {
	return Running{
		ID:              r.ID,
		ContributorID:   r.ContributorID,
		GroupID:         r.GroupID,
		Distance:        r.Distance,
		DurationSeconds: r.DurationSeconds,
		StartedAt:       formatTime(r.StartedAt),
		CreatedAt:       formatTime(r.CreatedAt),
	}
}

func toChallenge(c *domain.Challenge) *Challenge {
	if c == nil {
		return nil
	}
	return &Challenge{
		ID:              c.ID,
		GroupID:         c.GroupID,
		Title:           c.Title,
		Description:     c.Description,
		Type:            string(c.Type),
		GoalValue:       c.GoalValue,
		CurrentValue:    c.CurrentValue,
		ProgressPercent: c.ProgressPercent(),
		Status:          string(c.Status),
		StartAt:         formatTime(c.StartAt),
		EndAt:           formatTime(c.EndAt),
		UpdatedAt:       formatTime(c.UpdatedAt),
	}
}

func toMatch(m *domain.Match) *Match {
	if m == nil {
		return nil
	}
	participants := make([]Participant, len(m.Participants))
	for i, p := range m.Participants {
		participants[i] = Participant{GroupID: p.GroupID, Value: p.Value}
	}
	return &Match{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		GroupAID:      m.GroupAID,
		GroupBID:      m.GroupBID,
		Status:        string(m.Status),
		WinnerGroupID: m.WinnerGroupID,
		StartAt:       formatTime(m.StartAt),
		EndAt:         formatTime(m.EndAt),
		Participants:  participants,
	}
}

func toFailure(f *domain.AggregateFailure) Failure {
	return Failure{
		ID:        f.ID,
		RunningID: f.RunningID,
		Aggregate: string(f.Aggregate),
		LastError: f.LastError,
		Attempts:  f.Attempts,
		CreatedAt: formatTime(f.CreatedAt),
		UpdatedAt: formatTime(f.UpdatedAt),
	}
}

func toPersonalChallenge(p *domain.PersonalChallenge) PersonalChallenge {
	return PersonalChallenge{
		Title:           p.Title,
		Description:     p.Description,
		Type:            string(p.Type),
		GoalValue:       p.GoalValue,
		CurrentValue:    p.CurrentValue,
		ProgressPercent: p.ProgressPercent(),
		DaysRemaining:   p.DaysRemaining,
		StartAt:         formatTime(p.StartAt),
		EndAt:           formatTime(p.EndAt),
	}
}
