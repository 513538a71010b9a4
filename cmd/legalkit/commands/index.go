package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/wudi/legalkit/checksum"
	"github.com/wudi/legalkit/syncfiles"
	"github.com/wudi/legalkit/table"
)

// ErrSyncFailed is returned when some files could not be synchronized.
var ErrSyncFailed = errors.New("some files failed to synchronize")

func newUpdateChecksumCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update-checksum",
		Short: "Store SHA-256 sums of documents and media files in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.requireTable()
			if err != nil {
				return err
			}
			defer t.Close()
			res, err := checksum.New(app.Fs, app.files(), app.Log).Run(cmd.Context(), t, checksum.Options{
				Keys:    app.Keys,
				Workers: app.Config.Checksum.Workers,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "documents: %d, media: %d, missing: %d\n", res.Documents, res.Media, res.Missing)
			return nil
		},
	}
}

func newSyncFilesCmd(app *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "sync-files",
		Short: "Download the files linked from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.requireTable()
			if err != nil {
				return err
			}
			defer t.Close()
			s := syncfiles.New(app.Fs, app.Config.Repository(), app.Log)
			res, err := s.Run(cmd.Context(), t, syncfiles.Options{
				Keys:               app.Keys,
				Dir:                dir,
				Workers:            app.Config.Sync.Workers,
				DownloadsPerSecond: app.Config.Sync.DownloadsPerSecond,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "downloaded: %d, up to date: %d, failed: %d\n", res.Downloaded, res.UpToDate, res.Failed)
			if res.Failed > 0 {
				return errors.Wrapf(ErrSyncFailed, "%d files", res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory receiving the files, the working directory when empty")
	return cmd
}

func newTabConfigToTextCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tab-config-to-text",
		Short: "Turn tab separated key/value lines from stdin into a config cell value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := table.ConfigToText(cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}
