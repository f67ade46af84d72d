/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/productcatalog/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var watchPattern string

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect catalog change events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log catalog events as they are published",
	Long: `Subscribes to the configured broker and logs every event whose type
matches the pattern. "*" matches one word, "#" matches any number. Usage:

	catalog events watch --pattern "product.*"
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := mq.NewBackend(ctx, cfg)
		if err != nil {
			return err
		}
		publisher := mq.New(backend)
		defer publisher.Close()

		log.WithField("pattern", watchPattern).Info("watching events")
		err = publisher.Subscribe(ctx, watchPattern, func(_ context.Context, event mq.Event) error {
			log.WithFields(logrus.Fields{
				"event_id":     event.ID,
				"event_type":   event.Type,
				"resource":     event.Resource,
				"resource_ids": event.ResourceIDs,
				"occurred_at":  event.OccurredAt,
			}).Info("event received")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)

	eventsWatchCmd.Flags().StringVar(&watchPattern, "pattern", "#", "routing key pattern to match")
}
