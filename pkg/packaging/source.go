package packaging

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/fsutil"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/noise-free-cnv/packager/pkg/packagekit"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// SourceTarball generates the project files, stages bin/, share/,
// src/ and the makefile under <name>-<version>/, and tars that into
// <name>-<version>-src.tar.gz. The project is cleaned afterwards.
// It returns the tarball path.
func (p *Packager) SourceTarball(ctx context.Context) (string, error) {
	ctx, span := trace.StartSpan(ctx, "packaging.SourceTarball")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	target := Target{Platform: Source, Package: Tarball, Arch: p.product.Architecture}
	artifact, err := target.ArtifactName(p.product)
	if err != nil {
		return "", err
	}

	if err := p.Generate(ctx); err != nil {
		return "", errors.Wrap(err, "generating project files")
	}

	if err := os.RemoveAll(p.stagingPath()); err != nil {
		return "", errors.Wrap(err, "removing old staging dir")
	}
	defer p.cleanupStaging()

	distName := p.placeholders.Expand("$(NAME)-$(VERSION)")
	distDir := p.stagingPath(distName)
	if err := os.MkdirAll(distDir, fsutil.DirMode); err != nil {
		return "", errors.Wrapf(err, "making %s", distDir)
	}

	for _, dir := range []string{"bin", "share", "src"} {
		if err := fsutil.CopyDir(p.path(dir), filepath.Join(distDir, dir)); err != nil {
			return "", errors.Wrapf(err, "staging %s", dir)
		}
	}

	files := []string{p.path(makefileName)}
	if p.productFile != "" {
		files = append(files, p.productFile)
	}
	for _, f := range files {
		if err := fsutil.CopyFile(f, filepath.Join(distDir, filepath.Base(f))); err != nil {
			return "", errors.Wrapf(err, "staging %s", f)
		}
	}

	out := p.path(artifact)
	if err := packagekit.PackageTarball(ctx, p.runner, p.stagingPath(), distName, out); err != nil {
		return "", err
	}

	level.Info(logger).Log("msg", "built source tarball", "path", out)

	if err := p.Clean(ctx); err != nil {
		return "", errors.Wrap(err, "cleaning project")
	}

	return out, nil
}
