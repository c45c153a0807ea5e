package packaging

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/fsutil"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/noise-free-cnv/packager/pkg/packagekit"
	"github.com/noise-free-cnv/packager/pkg/packagekit/wix"
	"github.com/noise-free-cnv/packager/pkg/product"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Keys of the shortcut components in the installer template. They
// draw GUIDs from the same source as the harvested files.
const (
	menuShortcutsKey    = "MenuShortcuts"
	desktopShortcutsKey = "DesktopShortcuts"
)

// WindowsPackage generates the Windows project files, installs the
// build and the runtime libraries into the staging dir, and builds both
// the msi installer and a zip of the staged tree. It returns the
// artifact paths, msi first.
func (p *Packager) WindowsPackage(ctx context.Context) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "packaging.WindowsPackage")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	arch, err := WindowsArchFor(p.product.Architecture)
	if err != nil {
		return nil, err
	}

	msiTarget := Target{Platform: Windows, Package: Msi, Arch: p.product.Architecture}
	msiName, err := msiTarget.ArtifactName(p.product)
	if err != nil {
		return nil, err
	}
	zipTarget := Target{Platform: Windows, Package: Zip, Arch: p.product.Architecture}
	zipName, err := zipTarget.ArtifactName(p.product)
	if err != nil {
		return nil, err
	}

	if err := p.GenerateWindows(ctx); err != nil {
		return nil, errors.Wrap(err, "generating project files")
	}

	if err := os.RemoveAll(p.stagingPath()); err != nil {
		return nil, errors.Wrap(err, "removing old staging dir")
	}
	if err := os.MkdirAll(p.stagingPath(), fsutil.DirMode); err != nil {
		return nil, errors.Wrap(err, "making staging dir")
	}
	defer p.cleanupStaging()

	if err := p.runner.Run(ctx, p.root, "make", "install", "-B", "-j"+strconv.Itoa(p.jobs),
		"CC=g++ -static-libgcc -static-libstdc++ -mwindows",
		"PKG_CONFIG=pkg-config",
		"DESTDIR="+filepath.ToSlash(p.stagingDir)+"/",
		p.placeholders.Expand("SHARE_FOLDER=./../share/$(NAME)/"),
	); err != nil {
		return nil, errors.Wrap(err, "make install")
	}

	if err := p.installRuntime(ctx); err != nil {
		return nil, errors.Wrap(err, "installing runtime")
	}

	wxs, err := p.renderInstaller(arch)
	if err != nil {
		return nil, err
	}

	wixOpts := []wix.WixOpt{wix.WithRunner(p.runner)}
	if arch.MsArch == "x64" {
		wixOpts = append(wixOpts, wix.As64bit())
	} else {
		wixOpts = append(wixOpts, wix.As32bit())
	}
	wixOpts = append(wixOpts, p.wixOpts...)

	msiPath, err := packagekit.PackageWixMSI(ctx, p.root, wxs, strings.TrimSuffix(msiName, ".msi"), wixOpts...)
	if err != nil {
		return nil, err
	}
	level.Info(logger).Log("msg", "built msi", "path", msiPath)

	bat, err := p.expandTemplate("launcher.bat.tmpl")
	if err != nil {
		return nil, err
	}
	if err := writeFile(p.stagingPath(p.product.Name+".bat"), bat, true); err != nil {
		return nil, err
	}

	zipPath := p.path(zipName)
	if err := packagekit.PackageZip(ctx, p.runner, p.stagingPath(), zipPath); err != nil {
		return nil, err
	}
	level.Info(logger).Log("msg", "built zip", "path", zipPath)

	return []string{msiPath, zipPath}, nil
}

// renderInstaller harvests the staging dir into the installer
// template.
func (p *Packager) renderInstaller(arch WindowsArch) ([]byte, error) {
	stagingWin := strings.ReplaceAll(filepath.ToSlash(p.stagingDir), "/", `\`)

	tree, err := wix.Harvest(
		os.DirFS(p.stagingPath()),
		wix.WithFixedDirectory("bin", "BINDIR"),
		wix.WithFixedDirectory(p.product.DocDir(), "DOCDIR"),
		wix.WithSourceRoot(stagingWin),
		wix.WithGuidSource(p.guids),
	)
	if err != nil {
		return nil, err
	}

	menuGuid, err := p.guids.ComponentGuid(menuShortcutsKey)
	if err != nil {
		return nil, errors.Wrap(err, "getting menu shortcut guid")
	}
	desktopGuid, err := p.guids.ComponentGuid(desktopShortcutsKey)
	if err != nil {
		return nil, errors.Wrap(err, "getting desktop shortcut guid")
	}

	upgradeCode := p.product.UpgradeCode
	if upgradeCode == "" {
		upgradeCode = packagekit.ProductCode(p.product.Name)
	}

	text, err := p.expandXMLTemplate("installer.wxs.tmpl",
		"PROGRAM_FILES_FOLDER", arch.ProgramFilesFolder,
		"PRODUCT_CODE", packagekit.ProductCode(p.product.Name, upgradeCode, p.product.FullVersion(), p.product.Architecture),
		"UPGRADE_CODE", upgradeCode,
		"MENU_GUID", menuGuid,
		"DESKTOP_GUID", desktopGuid,
		"STAGING", stagingWin,
	)
	if err != nil {
		return nil, err
	}

	wxs, err := packagekit.RenderWixInstaller(text, tree)
	if err != nil {
		return nil, errors.Wrap(err, "rendering installer")
	}
	return wxs, nil
}

// installRuntime copies the shared libraries and support files the
// Windows build needs from the runtime host tree into staging.
func (p *Packager) installRuntime(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	rt := p.product.WindowsRuntime

	files := append(append([]product.RuntimeFile{}, rt.Files...), rt.ArchFiles[p.product.Architecture]...)

	if err := os.MkdirAll(p.stagingPath("bin"), fsutil.DirMode); err != nil {
		return errors.Wrap(err, "making staged bin")
	}

	var total uint64
	for _, f := range files {
		src := filepath.Join(rt.HostPath, filepath.FromSlash(f.Source))
		info, err := os.Stat(src)
		if err != nil {
			return errors.Wrapf(err, "runtime file %s", src)
		}
		total += uint64(info.Size())

		destDir := p.stagingPath(filepath.FromSlash(f.Dest))
		if err := os.MkdirAll(destDir, fsutil.DirMode); err != nil {
			return errors.Wrapf(err, "making %s", destDir)
		}
		if err := fsutil.CopyFile(src, filepath.Join(destDir, filepath.Base(src))); err != nil {
			return errors.Wrapf(err, "copying %s", src)
		}
	}

	for _, d := range rt.Directories {
		src := filepath.Join(rt.HostPath, filepath.FromSlash(d.Source))
		if _, err := os.Stat(src); err != nil {
			return errors.Wrapf(err, "runtime directory %s", src)
		}
		if err := fsutil.CopyDir(src, p.stagingPath(filepath.FromSlash(d.Dest))); err != nil {
			return errors.Wrapf(err, "copying %s", src)
		}
	}

	level.Debug(logger).Log(
		"msg", "installed runtime",
		"files", len(files),
		"directories", len(rt.Directories),
		"size", humanize.Bytes(total),
	)

	return nil
}
