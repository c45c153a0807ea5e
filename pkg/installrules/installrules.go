// Package installrules generates the `install` commands of the
// makefile's install target from the directories that will be shipped.
package installrules

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/noise-free-cnv/packager/pkg/stagetree"
	"github.com/pkg/errors"
)

// DefaultDestRoot is the makefile variable every destination is
// prefixed with.
const DefaultDestRoot = "$(DESTDIR)"

// Kind tells a directory rule from a file rule.
type Kind int

const (
	MakeDirectory Kind = iota
	InstallFile
)

// Rule is a single install instruction. Source is empty for
// MakeDirectory rules.
type Rule struct {
	Kind   Kind
	Source string
	Dest   string
	Mode   fs.FileMode
}

func (r Rule) String() string {
	switch r.Kind {
	case MakeDirectory:
		return "install -d " + r.Dest
	case InstallFile:
		return fmt.Sprintf("install -m %04o %s %s", r.Mode.Perm(), r.Source, r.Dest)
	}
	return ""
}

type options struct {
	destRoot string
	fileMode fs.FileMode
}

// Option configures Generate.
type Option func(*options)

// WithDestRoot sets the prefix of every destination path.
func WithDestRoot(root string) Option {
	return func(o *options) {
		o.destRoot = root
	}
}

// WithFileMode sets the mode files are installed with. Executables
// are expected to be re-stamped by a separate rule.
func WithFileMode(mode fs.FileMode) Option {
	return func(o *options) {
		o.fileMode = mode
	}
}

// Generate walks each root of fsys in order and returns one
// MakeDirectory rule per directory, followed by one InstallFile rule
// per file directly inside it, before descending into subdirectories.
func Generate(fsys fs.FS, roots []string, opts ...Option) ([]Rule, error) {
	o := options{
		destRoot: DefaultDestRoot,
		fileMode: 0644,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var rules []Rule
	for _, root := range roots {
		err := stagetree.Walk(fsys, root, func(d stagetree.Dir) error {
			rules = append(rules, Rule{
				Kind: MakeDirectory,
				Dest: path.Join(o.destRoot, d.Path),
			})

			for _, f := range d.Files {
				src := d.FilePath(f)
				rules = append(rules, Rule{
					Kind:   InstallFile,
					Source: src,
					Dest:   path.Join(o.destRoot, src),
					Mode:   o.fileMode,
				})
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "generating install rules for %s", root)
		}
	}

	return rules, nil
}

// Render returns the rules one per line, each line newline terminated.
func Render(rules []Rule) string {
	var b strings.Builder
	for _, r := range rules {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}
