package packaging

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log/level"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/noise-free-cnv/packager/pkg/installrules"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// installRoots are the project directories the makefile installs, in
// order.
var installRoots = []string{"share", "bin"}

// Clean returns the project to its checked in state: build products
// and generated files are removed, and bin/ is left empty.
func (p *Packager) Clean(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "packaging.Clean")
	defer span.End()

	logger := ctxlog.FromContext(ctx)
	level.Debug(logger).Log("msg", "cleaning project", "root", p.root)

	makefile := p.path(makefileName)
	if _, err := os.Stat(makefile); err == nil {
		if err := p.runner.Run(ctx, p.root, "make", "clean"); err != nil {
			return errors.Wrap(err, "make clean")
		}
	}

	if err := os.Remove(makefile); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing makefile")
	}

	for _, dir := range []string{p.path("bin"), p.path("share", "doc"), p.path("share", "applications")} {
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrapf(err, "removing %s", dir)
		}
	}

	if err := os.Mkdir(p.path("bin"), 0755); err != nil {
		return errors.Wrap(err, "making bin")
	}

	return nil
}

// Generate cleans the project, then writes the documentation, the
// desktop entry and the makefile used by the Linux builds.
func (p *Packager) Generate(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "packaging.Generate")
	defer span.End()

	if err := p.Clean(ctx); err != nil {
		return err
	}

	docDir := p.docDir()
	appsDir := p.path("share", "applications")
	for _, dir := range []string{docDir, appsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "making %s", dir)
		}
	}

	for _, doc := range []struct {
		template string
		name     string
	}{
		{template: "copyright.tmpl", name: "copyright"},
		{template: "readme.tmpl", name: "readme"},
		{template: "changelog.tmpl", name: "changelog"},
	} {
		text, err := p.expandTemplate(doc.template)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(docDir, doc.name), text, false); err != nil {
			return err
		}
	}

	desktop, err := p.desktopEntry()
	if err != nil {
		return err
	}
	if err := writeFile(p.path("share", "applications", p.product.Name+".desktop"), desktop, false); err != nil {
		return err
	}

	if err := p.runner.Run(ctx, p.root, "gzip", "-f", "-9", filepath.Join(filepath.FromSlash(p.product.DocDir()), "changelog")); err != nil {
		return errors.Wrap(err, "compressing changelog")
	}

	return p.writeMakefile(false)
}

// GenerateWindows cleans the project, then writes the documentation
// the installer shows and the makefile, all with CRLF line endings.
func (p *Packager) GenerateWindows(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "packaging.GenerateWindows")
	defer span.End()

	if err := p.Clean(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(p.docDir(), 0755); err != nil {
		return errors.Wrapf(err, "making %s", p.docDir())
	}

	for _, doc := range []struct {
		template string
		name     string
	}{
		{template: "license.rtf.tmpl", name: "license.rtf"},
		{template: "readme.tmpl", name: "readme.txt"},
	} {
		text, err := p.expandTemplate(doc.template)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(p.docDir(), doc.name), text, true); err != nil {
			return err
		}
	}

	return p.writeMakefile(true)
}

// writeMakefile renders the makefile, with install rules for whatever
// share/ and bin/ hold right now.
func (p *Packager) writeMakefile(crlf bool) error {
	var roots []string
	for _, root := range installRoots {
		if _, err := os.Stat(p.path(root)); err == nil {
			roots = append(roots, root)
		}
	}

	rules, err := installrules.Generate(os.DirFS(p.root), roots)
	if err != nil {
		return errors.Wrap(err, "generating install rules")
	}

	lines := make([]string, len(rules))
	for i, r := range rules {
		lines[i] = r.String()
	}

	text, err := p.expandTemplate("makefile.tmpl", "INSTALL_RULES", strings.Join(lines, "\n\t"))
	if err != nil {
		return err
	}

	return writeFile(p.path(makefileName), text, crlf)
}
