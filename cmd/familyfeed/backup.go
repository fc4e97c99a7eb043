package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dukerupert/familyfeed/internal/backup"
	"github.com/dukerupert/familyfeed/internal/blob"
	"github.com/dukerupert/familyfeed/internal/config"
	"github.com/dukerupert/familyfeed/internal/database"
	"github.com/dukerupert/familyfeed/internal/logging"
)

func newBackupCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the database to S3, or decrypt a downloaded snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, closer := logging.New(cfg.LogOptions())
			defer closer.Close()

			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			snap := newSnapshotter(db, cfg, logger)
			if snap == nil {
				return errors.New("backup needs s3.bucket and credentials")
			}
			location, err := snap.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}

	var passphrase string
	decrypt := &cobra.Command{
		Use:   "decrypt <snapshot.db.enc> <out.db>",
		Short: "Decrypt a snapshot into a plain SQLite file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				passphrase = cfg.Backup.Passphrase
			}
			if passphrase == "" {
				return errors.New("a passphrase is required (--passphrase or backup.passphrase)")
			}
			if err := backup.Decrypt(args[0], args[1], passphrase); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
			return nil
		},
	}
	decrypt.Flags().StringVar(&passphrase, "passphrase", "", "overrides backup.passphrase")

	cmd.AddCommand(decrypt)
	return cmd
}

// newSnapshotter returns nil when S3 is not configured.
func newSnapshotter(db *sql.DB, cfg config.Config, logger *slog.Logger) *backup.Snapshotter {
	store := blob.NewS3Store(cfg.BackupBlobConfig())
	if store == nil {
		return nil
	}
	return backup.NewSnapshotter(db, store, cfg.Backup.Passphrase, logger.With("component", "backup"))
}
