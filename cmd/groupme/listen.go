package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/groupme/pkg/groupme"
	"github.com/flemzord/groupme/pkg/groupme/push"
)

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print real-time push events until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, cfg, err := newSession(cmd)
			if err != nil {
				return err
			}

			me, err := groupme.NewCurrentUser(session).Me(cmd.Context())
			if err != nil {
				return err
			}

			handler := func(channel string, data json.RawMessage) {
				var event struct {
					Type    string           `json:"type"`
					Alert   string           `json:"alert"`
					Subject *groupme.Message `json:"subject"`
				}
				if err := json.Unmarshal(data, &event); err != nil {
					fmt.Printf("%s: %s\n", channel, data)
					return
				}
				switch {
				case event.Subject != nil && event.Subject.Text != "":
					fmt.Printf("[%s] %s: %s\n", event.Subject.GroupID, event.Subject.Name, event.Subject.Text)
				case event.Alert != "":
					fmt.Printf("(%s) %s\n", event.Type, event.Alert)
				default:
					fmt.Printf("(%s)\n", event.Type)
				}
			}

			listener := push.NewListener(cfg.PushURL, cfg.Token, me.ID, handler, newLogger())
			listener.Start()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			listener.Stop()
			return nil
		},
	}
}
