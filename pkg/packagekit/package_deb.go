package packagekit

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/kit/log/level"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/noise-free-cnv/packager/pkg/runwrapper"
	"github.com/noise-free-cnv/packager/pkg/stagetree"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// DebControl is the content of DEBIAN/control.
type DebControl struct {
	Package      string
	Version      string // upstream version and debian revision, eg: 2.1-1
	Section      string
	Priority     string
	Architecture string
	Depends      []string
	Maintainer   string
	Homepage     string
	Synopsis     string // single line summary
	Description  string // extended description, free text

	// InstalledSize is in KiB. When zero, PackageDeb measures the
	// staged usr tree.
	InstalledSize int64
}

const debControlTemplate = `Package:        {{.Package}}
Version:        {{.Version}}
Section:        {{.Section}}
Priority:       {{.Priority}}
Architecture:   {{.Architecture}}
Depends:        {{join .Depends ", "}}
Installed-Size: {{.InstalledSize}}
Maintainer:     {{.Maintainer}}
Homepage:       {{.Homepage}}
Description:    {{.Synopsis}}
{{debianDescription .Description}}`

// Render returns the control file text.
func (c DebControl) Render() ([]byte, error) {
	tmpl, err := template.New("control").Funcs(template.FuncMap{
		"join":              strings.Join,
		"debianDescription": DebianDescription,
	}).Parse(debControlTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "parsing control template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, c); err != nil {
		return nil, errors.Wrap(err, "executing control template")
	}
	return buf.Bytes(), nil
}

// DebianDescription formats free text as the extended description of
// a control file: every line is indented by a single space and blank
// lines become " .".
func DebianDescription(text string) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}

	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			b.WriteString(" .\n")
			continue
		}
		b.WriteString(" ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// InstalledSize returns the total size of the regular files below dir
// in KiB, rounded up.
func InstalledSize(dir string) (int64, error) {
	if err := isDirectory(dir); err != nil {
		return 0, err
	}

	fsys := os.DirFS(dir)
	var total int64

	err := stagetree.Walk(fsys, ".", func(d stagetree.Dir) error {
		for _, name := range d.Files {
			info, err := fs.Stat(fsys, d.FilePath(name))
			if err != nil {
				return errors.Wrapf(err, "stat %s", d.FilePath(name))
			}
			if info.Mode().IsRegular() {
				total += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return (total + 1023) / 1024, nil
}

// PackageDeb writes DEBIAN/control into stagingRoot and builds a deb
// from it at outPath with dpkg-deb, under fakeroot so the files are
// owned by root.
func PackageDeb(ctx context.Context, runner runwrapper.Runner, stagingRoot string, outPath string, control DebControl) error {
	ctx, span := trace.StartSpan(ctx, "packagekit.PackageDeb")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	if err := isDirectory(stagingRoot); err != nil {
		return err
	}

	if control.InstalledSize == 0 {
		usrDir := filepath.Join(stagingRoot, "usr")
		if err := isDirectory(usrDir); err == nil {
			size, err := InstalledSize(usrDir)
			if err != nil {
				return errors.Wrap(err, "measuring installed size")
			}
			control.InstalledSize = size
		}
	}

	level.Debug(logger).Log(
		"msg", "building deb",
		"package", control.Package,
		"installed_size", humanize.IBytes(uint64(control.InstalledSize)*1024),
		"out", outPath,
	)

	controlText, err := control.Render()
	if err != nil {
		return err
	}

	debianDir := filepath.Join(stagingRoot, "DEBIAN")
	if err := os.MkdirAll(debianDir, 0755); err != nil {
		return errors.Wrapf(err, "making %s", debianDir)
	}

	controlPath := filepath.Join(debianDir, "control")
	if err := os.WriteFile(controlPath, controlText, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", controlPath)
	}

	if err := runner.Run(ctx, "", "fakeroot", "dpkg-deb", "-b", stagingRoot, outPath); err != nil {
		return errors.Wrap(err, "running dpkg-deb")
	}

	return nil
}
