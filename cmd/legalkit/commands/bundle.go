package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wudi/legalkit/archive"
	"github.com/wudi/legalkit/sizeformat"
	"github.com/wudi/legalkit/split"
	"github.com/wudi/legalkit/table"
)

func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return sizeformat.Parse(s)
}

func newPdfSplitCmd(app *App) *cobra.Command {
	var (
		maxSize string
		opts    split.Options
	)
	cmd := &cobra.Command{
		Use:   "pdf-split files...",
		Short: "Split documents into parts bounded by size and page count",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireOutput(); err != nil {
				return err
			}
			var err error
			if opts.MaxBytes, err = parseSize(maxSize); err != nil {
				return err
			}
			opts.Output = app.Output
			s, err := split.New(app.Fs, app.Log, app.Config.Split.CacheSize)
			if err != nil {
				return err
			}
			parts, err := s.Split(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			for _, p := range parts {
				fmt.Fprintln(cmd.OutOrStdout(), table.FormatTSV(p.Path, p.Start+1, p.End-p.Start, sizeformat.Format(p.Size)))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&maxSize, "max-size", "", "maximum part size, e.g. 20M")
	f.IntVarP(&opts.MaxPages, "max-pages", "p", 0, "maximum pages per part")
	f.IntVarP(&opts.GroupSize, "group", "g", split.DefaultGroupSize, "part boundaries fall on multiples of this many pages")
	return cmd
}

func newZipCmd(app *App) *cobra.Command {
	var maxPart, maxArchive string
	cmd := &cobra.Command{
		Use:   "zip",
		Short: "Archive the documents and media files of an index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.requireTable()
			if err != nil {
				return err
			}
			defer t.Close()
			if err := app.requireOutput(); err != nil {
				return err
			}
			opts := archive.Options{Keys: app.Keys, Output: app.Output}
			if opts.MaxPart, err = parseSize(maxPart); err != nil {
				return err
			}
			if opts.MaxArchive, err = parseSize(maxArchive); err != nil {
				return err
			}
			written, err := archive.New(app.Fs, app.files(), app.Log).Run(cmd.Context(), t, opts)
			if err != nil {
				return err
			}
			for _, w := range written {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&maxPart, "max-size", "", "maximum volume size of a split archive (unsupported)")
	f.StringVar(&maxArchive, "max-archive", "", "maximum size of each archive in a series")
	cmd.MarkFlagsMutuallyExclusive("max-size", "max-archive")
	return cmd
}
