package packaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-kit/kit/log/level"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/noise-free-cnv/packager/pkg/packagekit"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// DebianPackage generates the project files, installs the build into
// a staged usr tree and builds <name>_<version>-<rev>_<arch>.deb from
// it. It returns the package path.
func (p *Packager) DebianPackage(ctx context.Context) (string, error) {
	ctx, span := trace.StartSpan(ctx, "packaging.DebianPackage")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	target := Target{Platform: Linux, Package: Deb, Arch: p.product.Architecture}
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

	usrDir := p.stagingPath("usr")
	for _, dir := range []string{p.stagingPath("DEBIAN"), usrDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", errors.Wrapf(err, "making %s", dir)
		}
	}
	if err := os.Chmod(usrDir, 0755); err != nil {
		return "", errors.Wrapf(err, "chmod %s", usrDir)
	}

	if err := p.runner.Run(ctx, p.root, "make", "install", "-B", "-j"+strconv.Itoa(p.jobs),
		"CC=g++ -Wl,-z,relro",
		"PKG_CONFIG=pkg-config",
		"DESTDIR="+filepath.ToSlash(filepath.Join(p.stagingDir, "usr")),
		p.placeholders.Expand("SHARE_FOLDER=/usr/share/$(NAME)/"),
	); err != nil {
		return "", errors.Wrap(err, "make install")
	}

	stagedDocDir := filepath.Join(usrDir, filepath.FromSlash(p.product.DocDir()))
	if err := os.Rename(
		filepath.Join(stagedDocDir, "changelog.gz"),
		filepath.Join(stagedDocDir, "changelog.Debian.gz"),
	); err != nil {
		return "", errors.Wrap(err, "renaming changelog")
	}

	control := packagekit.DebControl{
		Package:      p.product.Name,
		Version:      p.placeholders.Expand("$(VERSION)-$(REVISION)"),
		Section:      p.product.Section,
		Priority:     p.product.Priority,
		Architecture: p.product.Architecture,
		Depends:      p.product.Depends,
		Maintainer:   fmt.Sprintf("%s %s", p.product.Author, p.product.Contact()),
		Homepage:     p.product.Homepage,
		Synopsis:     p.product.Headline,
		Description:  p.product.Description,
	}

	out := p.path(artifact)
	if err := packagekit.PackageDeb(ctx, p.runner, p.stagingPath(), out, control); err != nil {
		return "", err
	}

	level.Info(logger).Log("msg", "built debian package", "path", out)

	return out, nil
}
