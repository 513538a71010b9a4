// Package commands implements the legalkit command line.
package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wudi/legalkit/assembly"
	"github.com/wudi/legalkit/config"
	"github.com/wudi/legalkit/filedb"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/stamp"
	"github.com/wudi/legalkit/table"
)

// App carries the global options and the services built from them.
type App struct {
	Fs   afero.Fs
	Root string

	Output     string
	List       string
	Sheet      string
	Keys       []string
	ConfigFile string
	Verbose    int

	Viper  *viper.Viper
	Config *config.Config
	Log    observability.Logger

	zap *observability.ZapLogger
}

// NewApp returns an App working on the OS file system in the current
// directory.
func NewApp() *App {
	return &App{Fs: afero.NewOsFs(), Root: ".", Viper: viper.New()}
}

func NewRoot(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "legalkit",
		Short: "Assemble legal document bundles",
		Long: `legalkit assembles PDF exhibit bundles for court filings.

It stamps exhibit notices and page numbers, builds tabbed document indexes,
splits bundles into size-limited parts and keeps an index spreadsheet in
sync with the files it lists.

Examples:
  legalkit join-exhibit -l index.xlsx -k Affidavit --ta
  legalkit pdf-split -o part.pdf --max-size 20M bundle.pdf
  legalkit sync-files -l index.xlsx -k Affidavit`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.zap != nil {
				_ = app.zap.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&app.Output, "output", "o", "", "output file or directory")
	flags.StringVarP(&app.List, "list", "l", "", "index file (.xlsx or .tsv)")
	flags.StringVarP(&app.Sheet, "sheet", "s", "", "index sheet name, the first sheet when empty")
	flags.StringArrayVarP(&app.Keys, "key", "k", nil, "exhibit key, repeatable")
	flags.StringVar(&app.ConfigFile, "config", "", "config file (default ./legalkit.toml)")
	flags.CountVarP(&app.Verbose, "verbose", "v", "increase verbosity")
	flags.Bool("log-json", false, "log as JSON")
	_ = app.Viper.BindPFlag("log.json", flags.Lookup("log-json"))

	root.AddCommand(
		newJoinExhibitCmd(app),
		newDocIndexCmd(app),
		newAddPageNumbersCmd(app),
		newPdfJoinCmd(app),
		newPdfSplitCmd(app),
		newUpdateChecksumCmd(app),
		newSyncFilesCmd(app),
		newZipCmd(app),
		newTabConfigToTextCmd(app),
		newPdfMetaCmd(app),
		newPdfEmptyCmd(app),
		newPdfDecompressCmd(app),
		newPdfReplaceCmd(app),
	)
	return root
}

func (a *App) init() error {
	cfg, err := config.Load(a.Viper, a.ConfigFile)
	if err != nil {
		return err
	}
	a.Config = cfg
	if a.Log != nil {
		return nil
	}
	level := cfg.Log.Level
	if a.Verbose > 0 {
		level = "debug"
	}
	z, err := observability.NewZap(level, cfg.Log.JSON)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	a.zap, a.Log = z, z
	return nil
}

func (a *App) files() *filedb.DirTree {
	return &filedb.DirTree{Fs: a.Fs, Root: a.Root, Extension: ".pdf"}
}

// openTable opens the -l index, or returns nil when none was given.
func (a *App) openTable() (table.Table, error) {
	if a.List == "" {
		return nil, nil
	}
	return table.Open(a.Fs, a.List, a.Sheet, "")
}

func (a *App) requireTable() (table.Table, error) {
	if a.List == "" {
		return nil, errors.New("-l index file is mandatory")
	}
	return a.openTable()
}

func (a *App) requireOutput() error {
	if a.Output == "" {
		return errors.New("-o output option is mandatory")
	}
	return nil
}

func (a *App) stamper() (*stamp.Stamper, error) {
	opts := []stamp.Option{stamp.WithLogger(a.Log)}
	if path := a.Config.Stamp.FontFile; path != "" {
		data, err := afero.ReadFile(a.Fs, path)
		if err != nil {
			return nil, errors.Wrapf(err, "read font %s", path)
		}
		font, err := stamp.LoadExhibitFont(path, data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, stamp.WithExhibitFont(font))
	}
	return stamp.New(opts...)
}

func (a *App) pipeline() (*assembly.Pipeline, error) {
	s, err := a.stamper()
	if err != nil {
		return nil, err
	}
	return assembly.New(a.Fs, a.files(), s, a.Log)
}
