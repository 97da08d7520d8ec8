package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/groupme/internal/config"
	"github.com/flemzord/groupme/internal/scheduler"
	"github.com/flemzord/groupme/pkg/archive"
	"github.com/flemzord/groupme/pkg/groupme"
)

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Local message archive with full-text search",
	}
	cmd.PersistentFlags().String("db", "", "Archive database path (overrides config)")
	cmd.AddCommand(archiveSyncCmd(), archiveSearchCmd(), archiveWatchCmd())
	return cmd
}

func archivePath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		return path, nil
	}
	if cfg.Archive.Path != "" {
		return cfg.Archive.Path, nil
	}
	return "", errors.New("no archive path: set archive.path in the config or pass --db")
}

func archiveGroups(cfg *config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(cfg.Archive.Groups) > 0 {
		return cfg.Archive.Groups, nil
	}
	return nil, errors.New("no groups: set archive.groups in the config or pass group ids")
}

func archiveSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [group-id]...",
		Short: "Pull new messages into the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cfg, err := newSession(cmd)
			if err != nil {
				return err
			}

			path, err := archivePath(cmd, cfg)
			if err != nil {
				return err
			}
			groups, err := archiveGroups(cfg, args)
			if err != nil {
				return err
			}

			store, err := archive.Open(path, newLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			for _, groupID := range groups {
				stored, err := store.Sync(cmd.Context(), groupme.NewMessages(session, groupID), groupID)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d new messages\n", groupID, stored)
			}
			return nil
		},
	}
}

func archiveSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over archived messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path, err := archivePath(cmd, cfg)
			if err != nil {
				return err
			}

			store, err := archive.Open(path, newLogger())
			if err != nil {
				return err
			}
			defer store.Close()

			groupID, _ := cmd.Flags().GetString("group")
			limit, _ := cmd.Flags().GetInt("limit")

			hits, err := store.Search(cmd.Context(), groupID, args[0], limit)
			if err != nil {
				return err
			}

			for _, m := range hits {
				fmt.Printf("[%s] %s %s: %s\n", m.GroupID, m.Created().Format("2006-01-02 15:04"), m.Name, m.Text)
			}
			return nil
		},
	}
	cmd.Flags().String("group", "", "Restrict to one group")
	cmd.Flags().Int("limit", 20, "Maximum results")
	return cmd
}

func archiveWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [group-id]...",
		Short: "Sync the archive on a schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, cfg, err := newSession(cmd)
			if err != nil {
				return err
			}

			path, err := archivePath(cmd, cfg)
			if err != nil {
				return err
			}
			groups, err := archiveGroups(cfg, args)
			if err != nil {
				return err
			}

			logger := newLogger()
			store, err := archive.Open(path, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			var targets []scheduler.Target
			for _, groupID := range groups {
				targets = append(targets, scheduler.Target{
					GroupID:  groupID,
					Messages: groupme.NewMessages(session, groupID),
					Schedule: cfg.Archive.Schedule,
				})
			}

			syncer := scheduler.NewSyncer(store, logger)
			if err := syncer.Start(targets...); err != nil {
				return err
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			return syncer.Stop(cmd.Context())
		},
	}
}
