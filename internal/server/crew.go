package server

import (
	"context"
	"net/http"

	"runcrew/internal/service"
	"runcrew/internal/sweeper"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

const CrewServiceName = "runcrew.v1.CrewService"

const (
	CrewServicePath = "/" + CrewServiceName + "/"

	RegisterGroupProcedure           = CrewServicePath + "RegisterGroup"
	SubmitRunningProcedure           = CrewServicePath + "SubmitRunning"
	StartChallengeProcedure          = CrewServicePath + "StartChallenge"
	GetActiveChallengeProcedure      = CrewServicePath + "GetActiveChallenge"
	ListChallengesProcedure          = CrewServicePath + "ListChallenges"
	ListContributionsProcedure       = CrewServicePath + "ListContributions"
	FormMatchProcedure               = CrewServicePath + "FormMatch"
	FinishMatchProcedure             = CrewServicePath + "FinishMatch"
	GetOngoingMatchProcedure         = CrewServicePath + "GetOngoingMatch"
	GetMatchProcedure                = CrewServicePath + "GetMatch"
	ListMemberContributionsProcedure = CrewServicePath + "ListMemberContributions"
	RunSweepProcedure                = CrewServicePath + "RunSweep"
	ListFailuresProcedure            = CrewServicePath + "ListFailures"
	ReplayFailureProcedure           = CrewServicePath + "ReplayFailure"
	ListPersonalChallengesProcedure  = CrewServicePath + "ListPersonalChallenges"
)

// Procedures lists every procedure path served by CrewServer.
var Procedures = []string{
	RegisterGroupProcedure,
	SubmitRunningProcedure,
	StartChallengeProcedure,
	GetActiveChallengeProcedure,
	ListChallengesProcedure,
	ListContributionsProcedure,
	FormMatchProcedure,
	FinishMatchProcedure,
	GetOngoingMatchProcedure,
	GetMatchProcedure,
	ListMemberContributionsProcedure,
	RunSweepProcedure,
	ListFailuresProcedure,
	ReplayFailureProcedure,
	ListPersonalChallengesProcedure,
}

type CrewServer struct {
	groupSvc     *service.GroupService
	challengeSvc *service.ChallengeService
	matchSvc     *service.MatchService
	runningSvc   *service.RunningService
	sweeper      *sweeper.Sweeper
	logger       zerolog.Logger
}

func NewCrewServer(
	groupSvc *service.GroupService,
	challengeSvc *service.ChallengeService,
	matchSvc *service.MatchService,
	runningSvc *service.RunningService,
	sw *sweeper.Sweeper,
	logger zerolog.Logger,
) *CrewServer {
	return &CrewServer{
		groupSvc:     groupSvc,
		challengeSvc: challengeSvc,
		matchSvc:     matchSvc,
		runningSvc:   runningSvc,
		sweeper:      sw,
		logger:       logger,
	}
}

func unary[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts ...connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// Handler returns the service path prefix and a handler serving every
// procedure with the JSON codec.
func (s *CrewServer) Handler() (string, http.Handler) {
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(errorInterceptor(s.logger)),
	}

	mux := http.NewServeMux()
	unary(mux, RegisterGroupProcedure, s.RegisterGroup, opts...)
	unary(mux, SubmitRunningProcedure, s.SubmitRunning, opts...)
	unary(mux, StartChallengeProcedure, s.StartChallenge, opts...)
	unary(mux, GetActiveChallengeProcedure, s.GetActiveChallenge, opts...)
	unary(mux, ListChallengesProcedure, s.ListChallenges, opts...)
	unary(mux, ListContributionsProcedure, s.ListContributions, opts...)
	unary(mux, FormMatchProcedure, s.FormMatch, opts...)
	unary(mux, FinishMatchProcedure, s.FinishMatch, opts...)
	unary(mux, GetOngoingMatchProcedure, s.GetOngoingMatch, opts...)
	unary(mux, GetMatchProcedure, s.GetMatch, opts...)
	unary(mux, ListMemberContributionsProcedure, s.ListMemberContributions, opts...)
	unary(mux, RunSweepProcedure, s.RunSweep, opts...)
	unary(mux, ListFailuresProcedure, s.ListFailures, opts...)
	unary(mux, ReplayFailureProcedure, s.ReplayFailure, opts...)
	unary(mux, ListPersonalChallengesProcedure, s.ListPersonalChallenges, opts...)
	return CrewServicePath, mux
}

func (s *CrewServer) RegisterGroup(ctx context.Context, req *connect.Request[RegisterGroupRequest]) (*connect.Response[RegisterGroupResponse], error) {
	group, err := s.groupSvc.RegisterGroup(ctx, req.Msg.ID, req.Msg.Name)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&RegisterGroupResponse{Group: toGroup(group)}), nil
}

func (s *CrewServer) SubmitRunning(ctx context.Context, req *connect.Request[SubmitRunningRequest]) (*connect.Response[SubmitRunningResponse], error) {
	startedAt, err := parseTime("started_at", req.Msg.StartedAt)
	if err != nil {
		return nil, err
	}

	result, err := s.runningSvc.SubmitRunning(ctx, service.SubmitRunningInput{
		ContributorID:   req.Msg.ContributorID,
		GroupID:         req.Msg.GroupID,
		Distance:        req.Msg.Distance,
		DurationSeconds: req.Msg.DurationSeconds,
		StartedAt:       startedAt,
	})
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&SubmitRunningResponse{
		Running:   toRunning(result.Running),
		Challenge: toChallenge(result.Challenge),
		Match:     toMatch(result.Match),
	}), nil
}

func (s *CrewServer) StartChallenge(ctx context.Context, req *connect.Request[StartChallengeRequest]) (*connect.Response[ChallengeResponse], error) {
	endAt, err := parseTime("end_at", req.Msg.EndAt)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challengeSvc.StartChallenge(ctx, service.StartChallengeInput{
		GroupID:     req.Msg.GroupID,
		Title:       req.Msg.Title,
		Description: req.Msg.Description,
		GoalValue:   req.Msg.GoalValue,
		EndAt:       endAt,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&ChallengeResponse{Challenge: toChallenge(challenge)}), nil
}

func (s *CrewServer) GetActiveChallenge(ctx context.Context, req *connect.Request[GetActiveChallengeRequest]) (*connect.Response[ChallengeResponse], error) {
	challenge, err := s.challengeSvc.GetActive(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&ChallengeResponse{Challenge: toChallenge(challenge)}), nil
}

func (s *CrewServer) ListChallenges(ctx context.Context, req *connect.Request[ListChallengesRequest]) (*connect.Response[ListChallengesResponse], error) {
	challenges, err := s.challengeSvc.ListByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	resp := &ListChallengesResponse{Challenges: make([]Challenge, len(challenges))}
	for i := range challenges {
		resp.Challenges[i] = *toChallenge(&challenges[i])
	}
	return connect.NewResponse(resp), nil
}

func (s *CrewServer) ListContributions(ctx context.Context, req *connect.Request[ListContributionsRequest]) (*connect.Response[ListContributionsResponse], error) {
	contributions, err := s.challengeSvc.Contributions(ctx, req.Msg.ChallengeID)
	if err != nil {
		return nil, err
	}

	resp := &ListContributionsResponse{Contributions: make([]Contribution, len(contributions))}
	for i, c := range contributions {
		resp.Contributions[i] = Contribution{ContributorID: c.ContributorID, Value: c.Value, Rank: i + 1}
	}
	return connect.NewResponse(resp), nil
}

func (s *CrewServer) FormMatch(ctx context.Context, req *connect.Request[FormMatchRequest]) (*connect.Response[MatchResponse], error) {
	startAt, err := parseTime("start_at", req.Msg.StartAt)
	if err != nil {
		return nil, err
	}
	endAt, err := parseTime("end_at", req.Msg.EndAt)
	if err != nil {
		return nil, err
	}

	match, err := s.matchSvc.FormMatch(ctx, service.FormMatchInput{
		Title:       req.Msg.Title,
		Description: req.Msg.Description,
		GroupAID:    req.Msg.GroupAID,
		GroupBID:    req.Msg.GroupBID,
		StartAt:     startAt,
		EndAt:       endAt,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&MatchResponse{Match: toMatch(match)}), nil
}

func (s *CrewServer) FinishMatch(ctx context.Context, req *connect.Request[FinishMatchRequest]) (*connect.Response[MatchResponse], error) {
	match, err := s.matchSvc.Finish(ctx, req.Msg.MatchID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&MatchResponse{Match: toMatch(match)}), nil
}

func (s *CrewServer) GetOngoingMatch(ctx context.Context, _ *connect.Request[GetOngoingMatchRequest]) (*connect.Response[MatchResponse], error) {
	match, err := s.matchSvc.GetOngoing(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&MatchResponse{Match: toMatch(match)}), nil
}

func (s *CrewServer) GetMatch(ctx context.Context, req *connect.Request[GetMatchRequest]) (*connect.Response[MatchResponse], error) {
	match, err := s.matchSvc.Get(ctx, req.Msg.MatchID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&MatchResponse{Match: toMatch(match)}), nil
}

func (s *CrewServer) ListMemberContributions(ctx context.Context, req *connect.Request[ListMemberContributionsRequest]) (*connect.Response[ListMemberContributionsResponse], error) {
	members, err := s.matchSvc.MemberContributions(ctx, req.Msg.MatchID, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	resp := &ListMemberContributionsResponse{Members: make([]MemberContribution, len(members))}
	for i, m := range members {
		resp.Members[i] = MemberContribution{ContributorID: m.ContributorID, Distance: m.Distance, Rank: m.Rank}
	}
	return connect.NewResponse(resp), nil
}

func (s *CrewServer) RunSweep(ctx context.Context, _ *connect.Request[RunSweepRequest]) (*connect.Response[RunSweepResponse], error) {
	result, err := s.sweeper.RunOnce(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&RunSweepResponse{
		Failed:     result.Failed,
		Created:    result.Created,
		DurationMs: result.Duration.Milliseconds(),
	}), nil
}

func (s *CrewServer) ListFailures(ctx context.Context, _ *connect.Request[ListFailuresRequest]) (*connect.Response[ListFailuresResponse], error) {
	failures, err := s.runningSvc.ListFailures(ctx)
	if err != nil {
		return nil, err
	}

	resp := &ListFailuresResponse{Failures: make([]Failure, len(failures))}
	for i := range failures {
		resp.Failures[i] = toFailure(&failures[i])
	}
	return connect.NewResponse(resp), nil
}

func (s *CrewServer) ReplayFailure(ctx context.Context, req *connect.Request[ReplayFailureRequest]) (*connect.Response[ReplayFailureResponse], error) {
	failure, err := s.runningSvc.ReplayFailure(ctx, req.Msg.FailureID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&ReplayFailureResponse{Failure: toFailure(failure)}), nil
}

func (s *CrewServer) ListPersonalChallenges(ctx context.Context, req *connect.Request[ListPersonalChallengesRequest]) (*connect.Response[ListPersonalChallengesResponse], error) {
	challenges, err := s.runningSvc.PersonalChallenges(ctx, req.Msg.ContributorID)
	if err != nil {
		return nil, err
	}

	resp := &ListPersonalChallengesResponse{Challenges: make([]PersonalChallenge, len(challenges))}
	for i := range challenges {
		resp.Challenges[i] = toPersonalChallenge(&challenges[i])
	}
	return connect.NewResponse(resp), nil
}
