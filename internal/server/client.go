package server

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls CrewService over the Connect protocol with the JSON codec.
type Client struct {
	registerGroup           *connect.Client[RegisterGroupRequest, RegisterGroupResponse]
	submitRunning           *connect.Client[SubmitRunningRequest, SubmitRunningResponse]
	startChallenge          *connect.Client[StartChallengeRequest, ChallengeResponse]
	getActiveChallenge      *connect.Client[GetActiveChallengeRequest, ChallengeResponse]
	listChallenges          *connect.Client[ListChallengesRequest, ListChallengesResponse]
	listContributions       *connect.Client[ListContributionsRequest, ListContributionsResponse]
	formMatch               *connect.Client[FormMatchRequest, MatchResponse]
	finishMatch             *connect.Client[FinishMatchRequest, MatchResponse]
	getOngoingMatch         *connect.Client[GetOngoingMatchRequest, MatchResponse]
	getMatch                *connect.Client[GetMatchRequest, MatchResponse]
	listMemberContributions *connect.Client[ListMemberContributionsRequest, ListMemberContributionsResponse]
	runSweep                *connect.Client[RunSweepRequest, RunSweepResponse]
	listFailures            *connect.Client[ListFailuresRequest, ListFailuresResponse]
	replayFailure           *connect.Client[ReplayFailureRequest, ReplayFailureResponse]
	listPersonalChallenges  *connect.Client[ListPersonalChallengesRequest, ListPersonalChallengesResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		registerGroup:           connect.NewClient[RegisterGroupRequest, RegisterGroupResponse](httpClient, baseURL+RegisterGroupProcedure, opts...),
		submitRunning:           connect.NewClient[SubmitRunningRequest, SubmitRunningResponse](httpClient, baseURL+SubmitRunningProcedure, opts...),
		startChallenge:          connect.NewClient[StartChallengeRequest, ChallengeResponse](httpClient, baseURL+StartChallengeProcedure, opts...),
		getActiveChallenge:      connect.NewClient[GetActiveChallengeRequest, ChallengeResponse](httpClient, baseURL+GetActiveChallengeProcedure, opts...),
		listChallenges:          connect.NewClient[ListChallengesRequest, ListChallengesResponse](httpClient, baseURL+ListChallengesProcedure, opts...),
		listContributions:       connect.NewClient[ListContributionsRequest, ListContributionsResponse](httpClient, baseURL+ListContributionsProcedure, opts...),
		formMatch:               connect.NewClient[FormMatchRequest, MatchResponse](httpClient, baseURL+FormMatchProcedure, opts...),
		finishMatch:             connect.NewClient[FinishMatchRequest, MatchResponse](httpClient, baseURL+FinishMatchProcedure, opts...),
		getOngoingMatch:         connect.NewClient[GetOngoingMatchRequest, MatchResponse](httpClient, baseURL+GetOngoingMatchProcedure, opts...),
		getMatch:                connect.NewClient[GetMatchRequest, MatchResponse](httpClient, baseURL+GetMatchProcedure, opts...),
		listMemberContributions: connect.NewClient[ListMemberContributionsRequest, ListMemberContributionsResponse](httpClient, baseURL+ListMemberContributionsProcedure, opts...),
		runSweep:                connect.NewClient[RunSweepRequest, RunSweepResponse](httpClient, baseURL+RunSweepProcedure, opts...),
		listFailures:            connect.NewClient[ListFailuresRequest, ListFailuresResponse](httpClient, baseURL+ListFailuresProcedure, opts...),
		replayFailure:           connect.NewClient[ReplayFailureRequest, ReplayFailureResponse](httpClient, baseURL+ReplayFailureProcedure, opts...),
		listPersonalChallenges:  connect.NewClient[ListPersonalChallengesRequest, ListPersonalChallengesResponse](httpClient, baseURL+ListPersonalChallengesProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) RegisterGroup(ctx context.Context, req *RegisterGroupRequest) (*RegisterGroupResponse, error) {
	return call(ctx, c.registerGroup, req)
}

func (c *Client) SubmitRunning(ctx context.Context, req *SubmitRunningRequest) (*SubmitRunningResponse, error) {
	return call(ctx, c.submitRunning, req)
}

func (c *Client) StartChallenge(ctx context.Context, req *StartChallengeRequest) (*ChallengeResponse, error) {
	return call(ctx, c.startChallenge, req)
}

func (c *Client) GetActiveChallenge(ctx context.Context, req *GetActiveChallengeRequest) (*ChallengeResponse, error) {
	return call(ctx, c.getActiveChallenge, req)
}

func (c *Client) ListChallenges(ctx context.Context, req *ListChallengesRequest) (*ListChallengesResponse, error) {
	return call(ctx, c.listChallenges, req)
}

func (c *Client) ListContributions(ctx context.Context, req *ListContributionsRequest) (*ListContributionsResponse, error) {
	return call(ctx, c.listContributions, req)
}

func (c *Client) FormMatch(ctx context.Context, req *FormMatchRequest) (*MatchResponse, error) {
	return call(ctx, c.formMatch, req)
}

func (c *Client) FinishMatch(ctx context.Context, req *FinishMatchRequest) (*MatchResponse, error) {
	return call(ctx, c.finishMatch, req)
}

func (c *Client) GetOngoingMatch(ctx context.Context) (*MatchResponse, error) {
	return call(ctx, c.getOngoingMatch, &GetOngoingMatchRequest{})
}

func (c *Client) GetMatch(ctx context.Context, req *GetMatchRequest) (*MatchResponse, error) {
	return call(ctx, c.getMatch, req)
}

func (c *Client) ListMemberContributions(ctx context.Context, req *ListMemberContributionsRequest) (*ListMemberContributionsResponse, error) {
	return call(ctx, c.listMemberContributions, req)
}

func (c *Client) RunSweep(ctx context.Context) (*RunSweepResponse, error) {
	return call(ctx, c.runSweep, &RunSweepRequest{})
}

func (c *Client) ListFailures(ctx context.Context) (*ListFailuresResponse, error) {
	return call(ctx, c.listFailures, &ListFailuresRequest{})
}

func (c *Client) ReplayFailure(ctx context.Context, req *ReplayFailureRequest) (*ReplayFailureResponse, error) {
	return call(ctx, c.replayFailure, req)
}

func (c *Client) ListPersonalChallenges(ctx context.Context, req *ListPersonalChallengesRequest) (*ListPersonalChallengesResponse, error) {
	return call(ctx, c.listPersonalChallenges, req)
}
