package packagekit

import (
	"context"
	"os"
	"path/filepath"

	"github.com/noise-free-cnv/packager/pkg/runwrapper"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// PackageZip zips the contents of dir, recursively and at the highest
// compression, into out. Entries are relative to dir.
func PackageZip(ctx context.Context, runner runwrapper.Runner, dir string, out string) error {
	ctx, span := trace.StartSpan(ctx, "packagekit.PackageZip")
	defer span.End()

	if err := isDirectory(dir); err != nil {
		return err
	}

	absOut, err := prepareOutput(out)
	if err != nil {
		return err
	}

	if err := runner.Run(ctx, dir, "zip", "-9", "-r", absOut, "."); err != nil {
		return errors.Wrap(err, "running zip")
	}
	return nil
}

// PackageTarball writes a gzipped tarball of entry, a path relative to
// dir, into out.
func PackageTarball(ctx context.Context, runner runwrapper.Runner, dir string, entry string, out string) error {
	ctx, span := trace.StartSpan(ctx, "packagekit.PackageTarball")
	defer span.End()

	if err := isDirectory(dir); err != nil {
		return err
	}

	absOut, err := prepareOutput(out)
	if err != nil {
		return err
	}

	if err := runner.Run(ctx, dir, "tar", "-c", "-z", "-f", absOut, entry); err != nil {
		return errors.Wrap(err, "running tar")
	}
	return nil
}

// prepareOutput makes out absolute, since archivers run in another
// directory, and removes a stale copy. zip would update one in place.
func prepareOutput(out string) (string, error) {
	absOut, err := filepath.Abs(out)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", out)
	}

	if err := os.Remove(absOut); err != nil && !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "removing old %s", absOut)
	}

	return absOut, nil
}
