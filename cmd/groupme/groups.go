package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flemzord/groupme/pkg/groupme"
)

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List the groups you belong to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, _, err := newSession(cmd)
			if err != nil {
				return err
			}

			perPage, _ := cmd.Flags().GetInt("per-page")
			groups, err := groupme.NewGroups(session).List(cmd.Context(), groupme.ListGroupsOptions{
				PerPage: perPage,
			})
			if err != nil {
				return err
			}

			for _, g := range groups {
				fmt.Printf("%s  %s (%d members)\n", g.ID, g.Name, len(g.Members))
			}
			return nil
		},
	}
	cmd.Flags().Int("per-page", 100, "Groups per page")
	return cmd
}

func postCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post <group-id> <text>",
		Short: "Post a message to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := newSession(cmd)
			if err != nil {
				return err
			}

			msg, err := groupme.NewMessages(session, args[0]).Create(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			fmt.Printf("Posted message %s\n", msg.ID)
			return nil
		},
	}
}
