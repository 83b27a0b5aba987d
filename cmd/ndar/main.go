package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/dfryer1193/ndar/imaging/application"
	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/dfryer1193/ndar/imaging/persistence"
	"github.com/dfryer1193/ndar/internal/bootstrap"
	"github.com/dfryer1193/ndar/internal/config"
	"github.com/dfryer1193/ndar/shared/db/sqlite"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const usage = `Usage: ndar [flags] <command> [args]

Commands:
  records          print the package's image records
  files <ref>...   unpack each image and print its classified files
  import           copy a package's image03.txt into the SQLite index

Flags:
`

type options struct {
	configPath string
	root       string
	tempDir    string
	sqlitePath string
	logLevel   string
}

func (o *options) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", os.Getenv("NDAR_CONFIG"), "path to a YAML config file")
	flags.StringVar(&o.root, "root", "", "local package directory containing image03.txt")
	flags.StringVar(&o.tempDir, "temp-dir", "", "directory for staging areas")
	flags.StringVar(&o.sqlitePath, "sqlite", "", "SQLite index path")
	flags.StringVar(&o.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
}

// apply lays explicitly set flags over cfg
func (o *options) apply(cfg *config.Config) {
	if o.root != "" {
		cfg.PackageRoot = o.root
	}
	if o.tempDir != "" {
		cfg.TempDir = o.tempDir
	}
	if o.sqlitePath != "" {
		cfg.SQLite.Path = o.sqlitePath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("ndar", pflag.ExitOnError)
	flags.SetInterspersed(false)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	opts.AddFlags(flags)
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	opts.apply(cfg)
	bootstrap.SetupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch args[0] {
	case "records":
		err = runRecords(ctx, cfg, os.Stdout)
	case "files":
		err = runFiles(ctx, cfg, args[1:], os.Stdout)
	case "import":
		err = runImport(ctx, cfg, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		flags.Usage()
		os.Exit(2)
	}

	if err != nil {
		stop()
		log.Fatal().Err(err).Str("command", args[0]).Msg("Command failed")
	}
}

func runRecords(ctx context.Context, cfg *config.Config, out io.Writer) error {
	pkg, closeFn, err := bootstrap.OpenPackage(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	records, err := pkg.Records(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make([]string, 0, len(keys))
		for _, k := range keys {
			if rec[k] == "" {
				continue
			}
			fields = append(fields, k+"="+rec[k])
		}
		fmt.Fprintln(out, strings.Join(fields, "\t"))
	}
	return nil
}

func runFiles(ctx context.Context, cfg *config.Config, refs []string, out io.Writer) error {
	if len(refs) == 0 {
		return fmt.Errorf("%w: files needs at least one image reference", domain.ErrInvalidReference)
	}

	pkg, closeFn, err := bootstrap.OpenPackage(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	for _, ref := range refs {
		if err := printImage(ctx, pkg, ref, out); err != nil {
			return err
		}
	}
	return nil
}

func printImage(ctx context.Context, pkg *application.Package, ref string, out io.Writer) error {
	img, err := pkg.Image(ctx, ref)
	if err != nil {
		return err
	}
	defer func() {
		if err := img.Close(); err != nil {
			log.Error().Err(err).Str("ref", ref).Msg("Failed to release image")
		}
	}()

	files, err := img.Files(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", img.Source())
	for _, tag := range domain.AllFormats {
		for _, name := range files[tag] {
			fmt.Fprintf(out, "  %-8s %s\t%s\n", tag, name, img.Path(name))
		}
	}
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.PackageRoot == "" {
		return fmt.Errorf("%w: import needs a package root", domain.ErrInvalidReference)
	}

	database := sqlite.NewSQLiteDB(&cfg.SQLite)
	if err := database.Connect(); err != nil {
		return fmt.Errorf("failed to open SQLite index: %w", err)
	}
	defer database.Close()

	svc := application.NewImportService(
		persistence.NewFilePackageIndex(cfg.PackageRoot),
		persistence.NewSQLPackageIndex(database.DB()),
	)

	n, err := svc.Import(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "imported %d records into %s\n", n, cfg.SQLite.Path)
	return nil
}
