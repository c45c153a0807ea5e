package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/logutil"
	"github.com/kolide/kit/version"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	pblog "github.com/noise-free-cnv/packager/pkg/log"
	"github.com/noise-free-cnv/packager/pkg/log/locallogger"
	"github.com/noise-free-cnv/packager/pkg/log/teelogger"
	"github.com/noise-free-cnv/packager/pkg/packagekit/wix"
	"github.com/noise-free-cnv/packager/pkg/packaging"
	"github.com/noise-free-cnv/packager/pkg/product"
	"github.com/noise-free-cnv/packager/pkg/runwrapper"
	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
)

// buildMode runs one packaging mode and returns the artifacts it
// wrote.
type buildMode func(ctx context.Context, p *packaging.Packager) ([]string, error)

var buildModes = map[string]buildMode{
	"generate": func(ctx context.Context, p *packaging.Packager) ([]string, error) {
		return nil, p.Generate(ctx)
	},
	"source": func(ctx context.Context, p *packaging.Packager) ([]string, error) {
		out, err := p.SourceTarball(ctx)
		return []string{out}, err
	},
	"debian": func(ctx context.Context, p *packaging.Packager) ([]string, error) {
		out, err := p.DebianPackage(ctx)
		return []string{out}, err
	},
	"windows": func(ctx context.Context, p *packaging.Packager) ([]string, error) {
		return p.WindowsPackage(ctx)
	},
}

func main() {
	fs := flag.NewFlagSet("package-builder", flag.ExitOnError)

	var (
		flDebug       = fs.Bool("debug", false, "enable debug logging")
		flProduct     = fs.String("product", "", "YAML file overlaying the built in product description")
		flWorkdir     = fs.String("workdir", ".", "project directory holding src/, share/ and bin/")
		flJobs        = fs.Int("jobs", 0, "make job count (default: logical cpus)")
		flStaging     = fs.String("staging", "tmp", "scratch directory, relative to the project directory")
		flKeepStaging = fs.Bool("keep_staging", false, "leave the scratch directory in place after a build")
		flTemplates   = fs.String("templates", "", "directory of templates overriding the built in ones")
		flGuidMode    = fs.String("guid_mode", guidModeRandom, "installer component guids: random, derived or persist")
		flGuidDB      = fs.String("guid_db", "", "guid database for -guid_mode persist (default: <workdir>/guids.db)")
		flWixPath     = fs.String("wix_path", "", "directory holding candle.exe and light.exe")
		flWixDocker   = fs.String("wix_docker_image", "", "run wix inside this docker image, through wine")
		flWixSkipVal  = fs.Bool("wix_skip_validation", false, "skip msi validation in light")
		flLogFile     = fs.String("log_file", "", "also write JSON logs to this rotated file")
		_             = fs.String("config", "", "config file (optional)")
	)

	fs.Usage = usageFor(fs, "package-builder [flags] [generate|source|debian|windows|list-targets|version]")

	ffOpts := []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("PACKAGE_BUILDER"),
	}

	if err := ff.Parse(fs, os.Args[1:], ffOpts...); err != nil {
		logger := logutil.NewCLILogger(true)
		logutil.Fatal(logger, "msg", "Error parsing flags", "err", err)
	}

	mode := "generate"
	if fs.NArg() > 0 {
		mode = strings.ToLower(fs.Arg(0))
	}

	switch mode {
	case "version":
		version.PrintFull()
		return
	case "list-targets":
		if err := runListTargets(os.Stdout); err != nil {
			logutil.Fatal(logutil.NewCLILogger(*flDebug), "msg", "listing targets", "err", err)
		}
		return
	}

	var logger log.Logger = logutil.NewCLILogger(*flDebug)
	if *flLogFile != "" {
		fileLogger := locallogger.NewKitLogger(*flLogFile)
		defer fileLogger.Close()
		logger = teelogger.New(logger, fileLogger)
	}

	build, ok := buildModes[mode]
	if !ok {
		fs.Usage()
		logutil.Fatal(logger, "msg", "unknown mode", "mode", mode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = ctxlog.NewContext(ctx, logger)

	prod, err := product.Load(*flProduct)
	if err != nil {
		logutil.Fatal(logger, "msg", "loading product", "err", err)
	}

	root, err := filepath.Abs(*flWorkdir)
	if err != nil {
		logutil.Fatal(logger, "msg", "resolving workdir", "err", err)
	}

	guidDB := *flGuidDB
	if guidDB == "" {
		guidDB = filepath.Join(root, "guids.db")
	}
	guids, closeGuids, err := guidSourceFor(*flGuidMode, guidDB, prod)
	if err != nil {
		logutil.Fatal(logger, "msg", "setting up component guids", "err", err)
	}
	defer closeGuids()

	runner := runwrapper.New(runwrapper.WithOutput(
		pblog.NewToolLogAdapter(logger, pblog.WithKeyValue("component", "tools")),
	))

	opts := []packaging.Option{
		packaging.WithRunner(runner),
		packaging.WithJobs(*flJobs),
		packaging.WithStagingDir(*flStaging),
		packaging.WithGuidSource(guids),
	}
	if *flKeepStaging {
		opts = append(opts, packaging.WithKeepStaging())
	}
	if *flTemplates != "" {
		opts = append(opts, packaging.WithTemplateDir(*flTemplates))
	}
	if *flProduct != "" {
		opts = append(opts, packaging.WithProductFile(*flProduct))
	}

	var wixOpts []wix.WixOpt
	if *flWixPath != "" {
		wixOpts = append(wixOpts, wix.WithWix(*flWixPath))
	}
	if *flWixDocker != "" {
		wixOpts = append(wixOpts, wix.WithDocker(*flWixDocker))
	}
	if *flWixSkipVal {
		wixOpts = append(wixOpts, wix.SkipValidation())
	}
	opts = append(opts, packaging.WithWixOpts(wixOpts...))

	packager, err := packaging.New(prod, root, opts...)
	if err != nil {
		logutil.Fatal(logger, "msg", "setting up packager", "err", err)
	}

	level.Debug(logger).Log(
		"msg", "starting",
		"mode", mode,
		"product", prod.Name,
		"version", prod.FullVersion(),
		"architecture", prod.Architecture,
		"root", root,
	)

	var runGroup run.Group

	sigListener := newSignalListener(make(chan os.Signal, 1), cancel, logger)
	runGroup.Add(sigListener.Execute, sigListener.Interrupt)

	runGroup.Add(func() error {
		artifacts, err := build(ctx, packager)
		if err != nil {
			return errors.Wrapf(err, "running %s", mode)
		}
		for _, artifact := range artifacts {
			level.Info(logger).Log("msg", "wrote artifact", "path", artifact)
		}
		return nil
	}, func(error) {
		cancel()
	})

	if err := runGroup.Run(); err != nil {
		closeGuids()
		logutil.Fatal(logger, "msg", "packaging failed", "mode", mode, "err", err)
	}
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "MODES\n")
		fmt.Fprintf(os.Stderr, "  generate      Write the documentation, desktop entry and makefile (default)\n")
		fmt.Fprintf(os.Stderr, "  source        Build the source tarball\n")
		fmt.Fprintf(os.Stderr, "  debian        Build the Debian package\n")
		fmt.Fprintf(os.Stderr, "  windows       Build the Windows installer and zip\n")
		fmt.Fprintf(os.Stderr, "  list-targets  Print the packaging target matrix\n")
		fmt.Fprintf(os.Stderr, "  version       Print full version information\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "VERSION\n")
		fmt.Fprintf(os.Stderr, "  %s\n", version.Version().Version)
		fmt.Fprintf(os.Stderr, "\n")
	}
}
