package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/groupme/pkg/groupme"
)

func membersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Group membership management",
	}
	cmd.AddCommand(membersAddCmd(), membersRemoveCmd())
	return cmd
}

func membersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <group-id> <nickname:user-id>...",
		Short: "Add members to a group",
		Long: `Add one or more members to a group. Each member is given as
nickname:user-id. Adds are asynchronous on the server; pass --wait to poll
until the results are in.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := newSession(cmd)
			if err != nil {
				return err
			}

			var reqs []groupme.MemberRequest
			for _, arg := range args[1:] {
				nickname, userID, ok := strings.Cut(arg, ":")
				if !ok {
					return fmt.Errorf("invalid member %q, want nickname:user-id", arg)
				}
				reqs = append(reqs, groupme.MemberRequest{Nickname: nickname, UserID: userID})
			}

			memberships := groupme.NewMemberships(session, args[0])
			request, err := memberships.Add(cmd.Context(), reqs...)
			if err != nil {
				return err
			}

			wait, _ := cmd.Flags().GetBool("wait")
			if !wait {
				fmt.Printf("Submitted, results id %s\n", request.ResultsID())
				return nil
			}

			timeout, _ := cmd.Flags().GetDuration("timeout")
			interval, _ := cmd.Flags().GetDuration("interval")

			results, err := request.Poll(cmd.Context(), timeout, interval)
			if err != nil {
				if errors.Is(err, groupme.ErrResultsNotReady) {
					return fmt.Errorf("results not ready after %s, retry with results id %s: %w",
						timeout, request.ResultsID(), err)
				}
				if errors.Is(err, groupme.ErrResultsExpired) {
					return fmt.Errorf("results expired before they could be fetched: %w", err)
				}
				return err
			}

			for _, m := range results.Members {
				fmt.Printf("added  %s (membership %s)\n", m.Nickname, m.ID)
			}
			for _, f := range results.Failures {
				fmt.Printf("failed %s\n", f.Nickname)
			}
			return nil
		},
	}
	cmd.Flags().Bool("wait", false, "Poll until the add results are available")
	cmd.Flags().Duration("timeout", groupme.DefaultPollTimeout, "How long to poll with --wait")
	cmd.Flags().Duration("interval", groupme.DefaultPollInterval, "Delay between polls with --wait")
	return cmd
}

func membersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <group-id> <membership-id>",
		Short: "Remove a member from a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := newSession(cmd)
			if err != nil {
				return err
			}

			ok, err := groupme.NewMemberships(session, args[0]).Remove(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("could not remove membership %s", args[1])
			}

			fmt.Println("Removed.")
			return nil
		},
	}
}
