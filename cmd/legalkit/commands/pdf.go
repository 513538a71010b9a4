package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/wudi/legalkit/assembly"
	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
)

func newPdfMetaCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pdf-meta",
		Short: "Print the document information of -o",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireOutput(); err != nil {
				return err
			}
			doc, err := pdf.Open(cmd.Context(), app.Fs, app.Output)
			if err != nil {
				return err
			}
			for _, k := range doc.InfoKeys() {
				v, _ := doc.Info(k)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k, v)
			}
			return nil
		},
	}
}

func newPdfEmptyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pdf-empty",
		Short: "Write a document without pages to -o",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireOutput(); err != nil {
				return err
			}
			return pdf.New().Save(cmd.Context(), app.Fs, app.Output)
		},
	}
}

func newPdfDecompressCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pdf-decompress input",
		Short: "Decompress every non-image stream of input into -o",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireOutput(); err != nil {
				return err
			}
			doc, err := pdf.Open(cmd.Context(), app.Fs, args[0])
			if err != nil {
				return err
			}
			err = doc.Decompress(cmd.Context(), func(ref raw.ObjectRef, err error) {
				app.Log.Warn("skip stream",
					observability.Int("object", ref.Num),
					observability.Int("generation", ref.Gen),
					observability.Error("error", err))
			})
			if err != nil {
				return err
			}
			return doc.Save(cmd.Context(), app.Fs, app.Output)
		},
	}
}

func newPdfReplaceCmd(app *App) *cobra.Command {
	var (
		opts                   assembly.ReplaceOptions
		moves, adds            []string
		title, author, subject string
		deleteMeta             []string
	)
	cmd := &cobra.Command{
		Use:   "pdf-replace",
		Short: "Replace pages and metadata of -o in place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Target = app.Output
			for _, m := range moves {
				op, err := parseMove(m)
				if err != nil {
					return err
				}
				opts.Ops = append(opts.Ops, op)
			}
			for _, a := range adds {
				n, err := strconv.Atoi(a)
				if err != nil {
					return errors.Wrapf(err, "-a %q", a)
				}
				opts.Ops = append(opts.Ops, assembly.PageOp{Dest: n})
			}
			for _, m := range []struct{ key, flag, value string }{
				{"Title", "title", title},
				{"Author", "author", author},
				{"Subject", "subject", subject},
			} {
				if cmd.Flags().Changed(m.flag) {
					opts.Meta = append(opts.Meta, assembly.MetaEdit{Key: m.key, Value: m.value})
				}
			}
			for _, k := range deleteMeta {
				opts.Meta = append(opts.Meta, assembly.MetaEdit{Key: k, Delete: true})
			}
			if opts.DeleteAllMeta {
				opts.ReplaceMeta = true
			}
			p, err := app.pipeline()
			if err != nil {
				return err
			}
			return p.Replace(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "input file for page operations")
	f.StringArrayVarP(&moves, "move", "m", nil, "destination[=source] page, same page when source is omitted")
	f.StringArrayVarP(&adds, "add", "a", nil, "insert a blank page at this index")
	f.StringVar(&title, "title", "", "document title")
	f.StringVar(&author, "author", "", "document author")
	f.StringVar(&subject, "subject", "", "document subject")
	f.StringArrayVar(&deleteMeta, "delete-meta", nil, "delete the meta field named key")
	f.BoolVar(&opts.DeleteAllMeta, "delete-all-meta", false, "delete all meta fields")
	f.BoolVar(&opts.ReplaceMeta, "replace-meta", false, "start from empty meta instead of the document's")
	f.StringVar(&opts.MetaFrom, "meta-from", "", "copy all meta from this document")
	return cmd
}

func parseMove(s string) (assembly.PageOp, error) {
	dst, src, ok := strings.Cut(s, "=")
	if !ok {
		src = dst
	}
	d, err := strconv.Atoi(dst)
	if err != nil {
		return assembly.PageOp{}, errors.Wrapf(err, "-m %q", s)
	}
	n, err := strconv.Atoi(src)
	if err != nil {
		return assembly.PageOp{}, errors.Wrapf(err, "-m %q", s)
	}
	if d < 1 || n < 1 {
		return assembly.PageOp{}, errors.Newf("-m %q: pages start at 1", s)
	}
	return assembly.PageOp{Dest: d, Source: n}, nil
}
