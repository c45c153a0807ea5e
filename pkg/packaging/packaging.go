// Package packaging drives the build of every distributable artifact
// of a product from its project directory: the generated documentation
// and makefile, the source tarball, the Debian package and the Windows
// installer and zip.
//
// The project directory holds src/, bin/, share/ and the generated
// makefile. Build products are staged in a scratch directory below it
// and the artifacts are written next to the makefile. The process
// working directory is never changed; tools are run in the directory
// they need.
package packaging

import (
	"embed"
	"encoding/xml"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/noise-free-cnv/packager/pkg/packagekit/wix"
	"github.com/noise-free-cnv/packager/pkg/placeholder"
	"github.com/noise-free-cnv/packager/pkg/product"
	"github.com/noise-free-cnv/packager/pkg/runwrapper"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/cpu"
)

//go:embed assets
var assets embed.FS

const (
	defaultStagingDir = "tmp"
	makefileName      = "makefile"
)

type Packager struct {
	product      product.Product
	root         string
	runner       runwrapper.Runner
	jobs         int
	stagingDir   string // relative to root
	keepStaging  bool
	templates    fs.FS // overrides the embedded assets, if set
	guids        wix.GuidSource
	wixOpts      []wix.WixOpt
	productFile  string
	placeholders placeholder.Map
}

type Option func(*Packager)

// WithRunner sets what runs the external tools. (default: exec)
func WithRunner(r runwrapper.Runner) Option {
	return func(p *Packager) {
		p.runner = r
	}
}

// WithJobs sets the make job count. (default: logical cpus)
func WithJobs(n int) Option {
	return func(p *Packager) {
		p.jobs = n
	}
}

// WithStagingDir sets the scratch directory, relative to the project
// root. (default: tmp)
func WithStagingDir(dir string) Option {
	return func(p *Packager) {
		p.stagingDir = dir
	}
}

// WithKeepStaging leaves the scratch directory in place after a build,
// for debugging.
func WithKeepStaging() Option {
	return func(p *Packager) {
		p.keepStaging = true
	}
}

// WithTemplateDir reads templates from dir before falling back to the
// built in ones.
func WithTemplateDir(dir string) Option {
	return func(p *Packager) {
		p.templates = os.DirFS(dir)
	}
}

// WithGuidSource sets where installer component GUIDs come from.
// (default: random)
func WithGuidSource(g wix.GuidSource) Option {
	return func(p *Packager) {
		p.guids = g
	}
}

// WithWixOpts passes options through to the wix tool.
func WithWixOpts(opts ...wix.WixOpt) Option {
	return func(p *Packager) {
		p.wixOpts = append(p.wixOpts, opts...)
	}
}

// WithProductFile ships the product description file in the source
// tarball.
func WithProductFile(path string) Option {
	return func(p *Packager) {
		p.productFile = path
	}
}

// New returns a Packager for the project at root.
func New(prod product.Product, root string, opts ...Option) (*Packager, error) {
	p := &Packager{
		product:    prod,
		root:       root,
		runner:     runwrapper.New(),
		stagingDir: defaultStagingDir,
		guids:      wix.RandomGuids(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := prod.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "project root %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("project root %s isn't a directory", root)
	}

	if p.stagingDir == "" || filepath.IsAbs(p.stagingDir) || strings.HasPrefix(filepath.Clean(p.stagingDir), "..") {
		return nil, errors.Errorf("staging dir %q must be inside the project root", p.stagingDir)
	}

	if p.jobs <= 0 {
		p.jobs = 1
		if n, err := cpu.Counts(true); err == nil && n > 0 {
			p.jobs = n
		}
	}

	license, err := p.readTemplate("gpl3.txt")
	if err != nil {
		return nil, err
	}

	p.placeholders = prod.Placeholders().
		With("LICENSE_INDENTED", indentLicense(license)).
		With("LICENSE_RTF", rtfLicense(license))

	return p, nil
}

// Placeholders returns the values templates are expanded with.
func (p *Packager) Placeholders() placeholder.Map {
	return p.placeholders
}

// readTemplate returns an asset, preferring the template dir.
func (p *Packager) readTemplate(name string) (string, error) {
	if p.templates != nil {
		data, err := fs.ReadFile(p.templates, name)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", errors.Wrapf(err, "reading template %s", name)
		}
	}

	data, err := assets.ReadFile("assets/" + name)
	if err != nil {
		return "", errors.Wrapf(err, "reading built in template %s", name)
	}
	return string(data), nil
}

// expandTemplate reads and expands a template. Additional placeholder
// values may be passed as name, value pairs.
func (p *Packager) expandTemplate(name string, extra ...string) (string, error) {
	text, err := p.readTemplate(name)
	if err != nil {
		return "", err
	}

	m := p.placeholders
	for i := 0; i+1 < len(extra); i += 2 {
		m = m.With(extra[i], extra[i+1])
	}

	return m.Expand(text), nil
}

// expandXMLTemplate is expandTemplate for markup: every value is
// escaped, so product text can't break out of an attribute.
func (p *Packager) expandXMLTemplate(name string, extra ...string) (string, error) {
	text, err := p.readTemplate(name)
	if err != nil {
		return "", err
	}

	m := p.placeholders
	for i := 0; i+1 < len(extra); i += 2 {
		m = m.With(extra[i], extra[i+1])
	}

	var entries []placeholder.Entry
	for _, n := range m.Names() {
		value, _ := m.Lookup(n)
		escaped, err := escapeXML(value)
		if err != nil {
			return "", errors.Wrapf(err, "escaping %s", n)
		}
		entries = append(entries, placeholder.Entry{Name: n, Value: escaped})
	}

	return placeholder.NewMap(entries...).Expand(text), nil
}

func escapeXML(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p *Packager) path(elem ...string) string {
	return filepath.Join(append([]string{p.root}, elem...)...)
}

func (p *Packager) docDir() string {
	return p.path(filepath.FromSlash(p.product.DocDir()))
}

func (p *Packager) stagingPath(elem ...string) string {
	return p.path(append([]string{p.stagingDir}, elem...)...)
}

// cleanupStaging removes the scratch directory unless asked to keep
// it.
func (p *Packager) cleanupStaging() {
	if p.keepStaging {
		return
	}
	os.RemoveAll(p.stagingPath())
}

// indentLicense indents the license for the copyright file. Blank
// lines stay blank.
func indentLicense(license string) string {
	license = strings.TrimRight(license, "\n")
	return strings.ReplaceAll(strings.ReplaceAll(license, "\n", "\n    "), "\n    \n", "\n\n")
}

// rtfLicense reflows the license for the rtf shown by the installer:
// one line per paragraph, paragraphs separated by rtf breaks.
func rtfLicense(license string) string {
	license = strings.TrimRight(license, "\n")
	license = strings.ReplaceAll(license, "\n\n", " \\par \\par ")
	license = strings.ReplaceAll(license, "\n", " ")
	return strings.ReplaceAll(license, " \\par \\par ", "\n\\par \\par\n")
}

// writeFile writes text to path, converting line endings to CRLF
// when crlf is set.
func writeFile(path string, text string, crlf bool) error {
	if crlf {
		text = strings.ReplaceAll(text, "\n", "\r\n")
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
