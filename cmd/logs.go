/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adminpanel/apiserver/internal/archive"
	"github.com/adminpanel/apiserver/internal/db"
	"github.com/adminpanel/apiserver/internal/events"
	"github.com/adminpanel/apiserver/internal/services"
	"github.com/adminpanel/apiserver/internal/store"
	"github.com/adminpanel/apiserver/types"
	"github.com/spf13/cobra"
)

// logsCmd groups audit log maintenance commands.
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Audit log tools",
}

var logsArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Upload a snapshot of the audit log to object storage",
	Long: `Writes every audit log entry, newest first, as one JSON document to
<ARCHIVE_PREFIX>/logs-<UTC timestamp>.json in the configured bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadRuntime()
		ctx := cmd.Context()

		objects, err := archive.NewObjectStore(ctx, cfg.Archive)
		if errors.Is(err, archive.ErrNoBackend) {
			return errors.New("set ARCHIVE_BACKEND to minio or gcs")
		}
		if err != nil {
			return err
		}

		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		audit := services.NewAuditService(store.NewLogRepository(conn), nil, log)
		key, count, err := audit.Archive(ctx, archive.NewArchiver(objects, cfg.Archive.Prefix))
		if err != nil {
			return err
		}

		log.Info().Str("bucket", objects.Bucket()).Str("key", key).Int("entries", count).Msg("audit log archived")
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var logsFollowCmd = &cobra.Command{
	Use:   "follow",
	Short: "Print audit entries as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadRuntime()
		ctx := cmd.Context()

		backend, err := events.NewBackend(ctx, cfg.Events)
		if errors.Is(err, events.ErrNoBackend) {
			return errors.New("set EVENTS_BACKEND to rabbitmq or pubsub")
		}
		if err != nil {
			return err
		}
		bus := events.NewBus(backend, cfg.Events.Channel)
		defer bus.Close()

		log.Info().Str("channel", bus.Channel()).Msg("following audit events")
		enc := json.NewEncoder(cmd.OutOrStdout())
		err = bus.Follow(ctx, func(_ context.Context, entry types.LogEntry) error {
			return enc.Encode(entry)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsArchiveCmd)
	logsCmd.AddCommand(logsFollowCmd)
}
