package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wudi/legalkit/assembly"
	"github.com/wudi/legalkit/exhibit"
	"github.com/wudi/legalkit/scripts"
	"github.com/wudi/legalkit/stamp"
	"github.com/wudi/legalkit/table"
)

// codeList is the --code value when the flag is given without a name.
const codeList = "-"

func newJoinExhibitCmd(app *App) *cobra.Command {
	var (
		code          string
		extract       []string
		base          string
		firstPage     int
		firstExhibit  string
		sworn         string
		swear, affirm bool
		substitutes   []string
		srcTable      bool
		srcTableDate  bool
		srcNone       bool
		ignoreMissing bool
		scriptOut     string
	)
	cmd := &cobra.Command{
		Use:   "join-exhibit [files...]",
		Short: "Stamp and join exhibits into one bundle",
		Long: `Stamps every exhibit with an exhibit notice on its first page and page
numbers on all pages, and appends the exhibits to the base document.

Exhibits are either the file arguments or the included rows of the -l index
for the -k keys. Index runs write page numbers and exhibit ids back to the
index.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("code") {
				return printCode(cmd, code, args)
			}
			if (len(args) == 0) == (app.List == "") {
				return errors.New("need one or more source files or -l index file")
			}
			if (app.List == "") != (len(app.Keys) == 0) {
				return errors.New("-l index file and -k keys go together")
			}
			opts := assembly.JoinOptions{
				Inputs:        args,
				Keys:          app.Keys,
				Output:        app.Output,
				Base:          base,
				Extract:       extract,
				IgnoreMissing: ignoreMissing,
				Substitutes:   make(map[string]string),
				Source:        assembly.SubstituteTableAndDate,
			}
			switch {
			case swear:
				opts.SwornText = assembly.SwearTemplate
			case affirm:
				opts.SwornText = assembly.AffirmTemplate
			default:
				opts.SwornText = sworn
			}
			switch {
			case srcTable:
				opts.Source = assembly.SubstituteTable
			case srcNone:
				opts.Source = assembly.SubstituteNone
			}
			for _, s := range substitutes {
				k, v, ok := strings.Cut(s, "=")
				if !ok {
					return errors.Newf("expecting key=value for -t, got %q", s)
				}
				if _, dup := opts.Substitutes[k]; dup {
					return errors.Newf("key already specified for -t: %s", k)
				}
				opts.Substitutes[k] = v
			}
			if cmd.Flags().Changed("first-page") {
				opts.FirstPage = &firstPage
			}
			if firstExhibit != "" {
				n, err := exhibit.Parse(firstExhibit)
				if err != nil {
					return err
				}
				opts.FirstExhibit = &n
			}

			t, err := app.openTable()
			if err != nil {
				return err
			}
			if t != nil {
				defer t.Close()
				opts.Table = t
				opts.Inputs = nil
			}
			p, err := app.pipeline()
			if err != nil {
				return err
			}
			res, err := p.JoinExhibit(cmd.Context(), opts)
			if err != nil {
				return err
			}
			summary := assembly.Summarize(res.Entries)
			if err := summary.Render(cmd.OutOrStdout()); err != nil {
				return err
			}
			if scriptOut != "" {
				return writeScript(app, cmd, scriptOut, summary)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&code, "code", "", "print supporting code, omit the name for a list")
	f.Lookup("code").NoOptDefVal = codeList
	f.StringArrayVar(&extract, "extract", nil, "pages to keep: first, last, exhibit-first, single, pair-even")
	f.StringVar(&base, "base", "", "base document the exhibits are appended to")
	f.IntVarP(&firstPage, "first-page", "a", 1, "number of the first page, base document included")
	f.StringVarP(&firstExhibit, "first-exhibit", "e", "", "first exhibit id")
	f.StringVar(&sworn, "sworn", "", "exhibit notice template")
	f.BoolVar(&swear, "ss", false, "use the sworn notice template")
	f.BoolVar(&affirm, "sa", false, "use the affirmed notice template")
	f.StringArrayVarP(&substitutes, "text", "t", nil, "template substitution key=value")
	f.BoolVar(&srcTable, "tt", false, "substitutions from the index text sheet")
	f.BoolVar(&srcTableDate, "ta", false, "substitutions from the text sheet and the key date (default)")
	f.BoolVar(&srcNone, "tn", false, "substitutions from -t only")
	f.BoolVarP(&ignoreMissing, "ignore-missing", "i", false, "skip missing files")
	f.StringVar(&scriptOut, "script-out", "", "write the exhibit update script with this run's exhibit map")
	cmd.MarkFlagsMutuallyExclusive("sworn", "ss", "sa")
	cmd.MarkFlagsMutuallyExclusive("tt", "ta", "tn")
	return cmd
}

func printCode(cmd *cobra.Command, name string, args []string) error {
	if name == codeList && len(args) == 1 {
		name = args[0]
	}
	out := cmd.OutOrStdout()
	if name == codeList {
		fmt.Fprintln(out, "The following codes are available:")
		for _, s := range scripts.List() {
			fmt.Fprintf(out, "%s - %s\n", s.Name, s.Description)
		}
		return nil
	}
	src, err := scripts.Source(name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, src)
	return err
}

func writeScript(app *App, cmd *cobra.Command, path string, summary *assembly.Summary) error {
	src, err := scripts.RenderExhibitMap(scripts.ExhibitUpdate, summary.ExhibitMap)
	if err != nil {
		return err
	}
	if err := scripts.Validate(cmd.Context(), src, len(summary.ExhibitMap)); err != nil {
		return err
	}
	return afero.WriteFile(app.Fs, path, []byte(src), 0o644)
}

func newDocIndexCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "doc-index",
		Short: "Build one tabbed document per index category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.requireTable()
			if err != nil {
				return err
			}
			defer t.Close()
			p, err := app.pipeline()
			if err != nil {
				return err
			}
			res, err := p.DocIndex(cmd.Context(), assembly.DocIndexOptions{
				Table:     t,
				Keys:      app.Keys,
				OutputDir: app.Output,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range res.Errors {
				fmt.Fprintf(out, "Error: %v\n", e)
			}
			for _, c := range res.Categories {
				fmt.Fprintln(out, table.FormatTSV(c.Code, c.Count, c.Pages))
			}
			if len(res.Errors) > 0 {
				return errors.Newf("%d entries with unknown category", len(res.Errors))
			}
			return nil
		},
	}
}

func newAddPageNumbersCmd(app *App) *cobra.Command {
	var (
		first        int
		pages, files []string
	)
	cmd := &cobra.Command{
		Use:   "add-page-numbers files...",
		Short: "Join files and number their pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireOutput(); err != nil {
				return err
			}
			opts := assembly.PageNumbersOptions{Inputs: args, Output: app.Output, FirstPage: first}
			var err error
			if opts.Pages, err = parseRangeList(pages); err != nil {
				return err
			}
			if opts.Files, err = parseRangeList(files); err != nil {
				return err
			}
			p, err := app.pipeline()
			if err != nil {
				return err
			}
			n, err := p.AddPageNumbers(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pages\n", app.Output, n)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&first, "first-page", "a", 1, "first page number")
	f.StringArrayVarP(&pages, "pages", "p", nil, "page numbers to stamp, e.g. 1,4-6")
	f.StringArrayVarP(&files, "files", "f", nil, "input positions to stamp, e.g. 2-3")
	return cmd
}

func parseRangeList(values []string) ([]int, error) {
	var out []int
	for _, v := range values {
		r, err := assembly.ParseRanges(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r...)
	}
	return out, nil
}

func newPdfJoinCmd(app *App) *cobra.Command {
	var (
		opts      assembly.PdfJoinOptions
		firstPage int
		position  string
	)
	cmd := &cobra.Command{
		Use:   "pdf-join files...",
		Short: "Concatenate documents, optionally numbering and aligning them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireOutput(); err != nil {
				return err
			}
			opts.Inputs, opts.Output = args, app.Output
			if cmd.Flags().Changed("first-page") {
				opts.FirstPage = &firstPage
			}
			if position != "" {
				x, y, ok := strings.Cut(position, ",")
				if !ok {
					return errors.Newf("expecting x,y for -p, got %q", position)
				}
				var pos [2]float64
				var err error
				if pos[0], err = strconv.ParseFloat(x, 64); err != nil {
					return errors.Wrap(err, "-p x")
				}
				if pos[1], err = strconv.ParseFloat(y, 64); err != nil {
					return errors.Wrap(err, "-p y")
				}
				opts.Position = &pos
			}
			p, err := app.pipeline()
			if err != nil {
				return err
			}
			placed, err := p.PdfJoin(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, in := range placed {
				fmt.Fprintln(cmd.OutOrStdout(), table.FormatTSV(in.File, in.Start+1, in.Size))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.Decompress, "decompress", false, "decompress inputs first")
	f.BoolVar(&opts.Append, "append", false, "append to the existing output")
	f.BoolVar(&opts.SkipFirst, "skip-first", false, "do not number the first input")
	f.IntVar(&opts.Align, "align", 0, "pad each input to a multiple of this many pages")
	f.IntVarP(&firstPage, "first-page", "a", 1, "number pages starting at this value")
	f.StringVarP(&position, "position", "p", "", "fractional page number position x,y")
	f.StringVarP(&opts.Pattern, "format", "f", stamp.DefaultPagePattern, "page number pattern")
	return cmd
}
