package main

import (
	"encoding/json"
	"net/http"
	"time"

	"runcrew/internal/server"

	"github.com/spf13/cobra"
)

const defaultAddr = "http://localhost:8080"

type cli struct {
	addr       string
	httpClient *http.Client
}

func (c *cli) client() *server.Client {
	return server.NewClient(c.httpClient, c.addr)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	c := &cli{httpClient: &http.Client{Timeout: 30 * time.Second}}

	root := &cobra.Command{
		Use:           "crewctl",
		Short:         "Operate a runcrew server",
		Long:          "crewctl registers groups, submits runnings and manages challenges and matches on a runcrew server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.addr, "addr", defaultAddr, "base URL of the runcrew server")

	root.AddCommand(
		newGroupCmd(c),
		newRunCmd(c),
		newChallengeCmd(c),
		newMatchCmd(c),
		newSweepCmd(c),
		newFailuresCmd(c),
	)
	return root
}

func newGroupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "group", Short: "Manage groups"}

	var id string
	register := &cobra.Command{
		Use:   "register [name]",
		Short: "Register a group, or rename an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().RegisterGroup(cmd.Context(), &server.RegisterGroupRequest{ID: id, Name: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	register.Flags().StringVar(&id, "id", "", "group id (generated when empty)")

	cmd.AddCommand(register)
	return cmd
}

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "run", Short: "Submit runnings"}

	var req server.SubmitRunningRequest
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Record a completed run and credit it to the group's challenge and match",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().SubmitRunning(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	submit.Flags().StringVar(&req.ContributorID, "contributor", "", "contributor id")
	submit.Flags().StringVar(&req.GroupID, "group", "", "group id")
	submit.Flags().Int64Var(&req.Distance, "distance", 0, "distance in meters")
	submit.Flags().Int64Var(&req.DurationSeconds, "duration", 0, "duration in seconds")
	submit.Flags().StringVar(&req.StartedAt, "started-at", "", "RFC3339 start time (defaults to now)")
	_ = submit.MarkFlagRequired("contributor")
	_ = submit.MarkFlagRequired("group")
	_ = submit.MarkFlagRequired("distance")

	personal := &cobra.Command{
		Use:   "personal [contributor]",
		Short: "Show a contributor's monthly distance and run-count goals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().ListPersonalChallenges(cmd.Context(), &server.ListPersonalChallengesRequest{ContributorID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.AddCommand(submit, personal)
	return cmd
}

func newChallengeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "challenge", Short: "Manage group challenges"}

	var start server.StartChallengeRequest
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a challenge for a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().StartChallenge(cmd.Context(), &start)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	startCmd.Flags().StringVar(&start.GroupID, "group", "", "group id")
	startCmd.Flags().StringVar(&start.Title, "title", "", "challenge title")
	startCmd.Flags().StringVar(&start.Description, "description", "", "challenge description")
	startCmd.Flags().Int64Var(&start.GoalValue, "goal", 0, "goal distance in meters")
	startCmd.Flags().StringVar(&start.EndAt, "end-at", "", "RFC3339 end time")
	_ = startCmd.MarkFlagRequired("group")
	_ = startCmd.MarkFlagRequired("goal")
	_ = startCmd.MarkFlagRequired("end-at")

	list := &cobra.Command{
		Use:   "list [group]",
		Short: "List a group's challenges, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().ListChallenges(cmd.Context(), &server.ListChallengesRequest{GroupID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	active := &cobra.Command{
		Use:   "active [group]",
		Short: "Show a group's active challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().GetActiveChallenge(cmd.Context(), &server.GetActiveChallengeRequest{GroupID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	contributions := &cobra.Command{
		Use:   "contributions [challenge]",
		Short: "Rank contributors of a challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().ListContributions(cmd.Context(), &server.ListContributionsRequest{ChallengeID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.AddCommand(startCmd, list, active, contributions)
	return cmd
}

func newMatchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "match", Short: "Manage group-versus-group matches"}

	var form server.FormMatchRequest
	formCmd := &cobra.Command{
		Use:   "form",
		Short: "Form a match between two groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().FormMatch(cmd.Context(), &form)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	formCmd.Flags().StringVar(&form.Title, "title", "", "match title")
	formCmd.Flags().StringVar(&form.Description, "description", "", "match description")
	formCmd.Flags().StringVar(&form.GroupAID, "group-a", "", "first group id")
	formCmd.Flags().StringVar(&form.GroupBID, "group-b", "", "second group id")
	formCmd.Flags().StringVar(&form.StartAt, "start-at", "", "RFC3339 start time")
	formCmd.Flags().StringVar(&form.EndAt, "end-at", "", "RFC3339 end time")
	for _, f := range []string{"group-a", "group-b", "start-at", "end-at"} {
		_ = formCmd.MarkFlagRequired(f)
	}

	finish := &cobra.Command{
		Use:   "finish [match]",
		Short: "Finish a match and decide the winner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().FinishMatch(cmd.Context(), &server.FinishMatchRequest{MatchID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	show := &cobra.Command{
		Use:   "show [match]",
		Short: "Show a match with its participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().GetMatch(cmd.Context(), &server.GetMatchRequest{MatchID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	ongoing := &cobra.Command{
		Use:   "ongoing",
		Short: "Show the match in progress, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().GetOngoingMatch(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	members := &cobra.Command{
		Use:   "members [match] [group]",
		Short: "Rank a group's members within a match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().ListMemberContributions(cmd.Context(), &server.ListMemberContributionsRequest{MatchID: args[0], GroupID: args[1]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.AddCommand(formCmd, finish, show, ongoing, members)
	return cmd
}

func newSweepCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Fail expired challenges and create this month's challenges now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().RunSweep(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newFailuresCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "failures", Short: "Inspect and replay failed aggregate updates"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded aggregate update failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().ListFailures(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	replay := &cobra.Command{
		Use:   "replay [failure]",
		Short: "Re-apply a failed aggregate update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.client().ReplayFailure(cmd.Context(), &server.ReplayFailureRequest{FailureID: args[0]})
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.AddCommand(list, replay)
	return cmd
}
