package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/acmap/internal/database"
	"github.com/spf13/cobra"
)

var snapshotTimeout time.Duration

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the offline accident snapshot",
	Long: `Manage the SQLite snapshot used when the accidents API is unreachable.

Enable the fallback with --snapshot-fallback or snapshot.enabled: true.`,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Fetch the accident list from the API and store it in the snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), snapshotTimeout)
		defer cancel()

		fmt.Fprintf(os.Stderr, "⚙️  Fetching accidents from %s...\n", cfg.API.BaseURL)
		accidents, err := newUncachedClient(cfg, logger).FetchAccidents(ctx)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}

		db, err := database.New(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.SaveSnapshot(ctx, accidents); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "✓ Saved %d accidents to %s\n", len(accidents), cfg.Snapshot.Path)
		return nil
	},
}

var snapshotInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show when the snapshot was saved and how many accidents it holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := database.New(cfg.Snapshot.Path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		info, err := db.SnapshotInfo(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Path:      %s\n", cfg.Snapshot.Path)
		fmt.Fprintf(out, "Saved at:  %s\n", info.SavedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "Accidents: %d\n", info.Count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotSaveCmd)
	snapshotCmd.AddCommand(snapshotInfoCmd)

	snapshotSaveCmd.Flags().DurationVar(&snapshotTimeout, "timeout", 2*time.Minute, "fetch timeout")
}
