// Package product holds the metadata of the application being
// packaged. A Product is loaded once at startup and then passed by
// value to everything that renders text; nothing reads product details
// from package level state.
package product

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/ghodss/yaml"
	"github.com/google/uuid"
	"github.com/noise-free-cnv/packager/pkg/placeholder"
	"github.com/pkg/errors"
)

//go:embed default.yaml
var defaultProductYAML []byte

// RuntimeFile is a file copied from the Windows runtime host tree into
// the staging tree. Source is relative to the runtime host path, Dest
// is a directory relative to the staging root.
type RuntimeFile struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// WindowsRuntime describes the shared libraries and support files that
// have to ship next to the Windows executables.
type WindowsRuntime struct {
	HostPath    string                   `json:"host_path"`
	Files       []RuntimeFile            `json:"files"`
	Directories []RuntimeFile            `json:"directories"`
	ArchFiles   map[string][]RuntimeFile `json:"arch_files"`
}

type Product struct {
	Name           string   `json:"name"`
	Headline       string   `json:"headline"`
	Description    string   `json:"description"`
	VersionMajor   string   `json:"version_major"`
	VersionMinor   string   `json:"version_minor"`
	Revision       string   `json:"revision"`
	Author         string   `json:"author"`
	Email          string   `json:"email"`
	Homepage       string   `json:"homepage"`
	CopyrightYears string   `json:"copyright_years"`
	Executable     string   `json:"executable"`
	Section        string   `json:"section"`
	Priority       string   `json:"priority"`
	Depends        []string `json:"depends"`
	Categories     []string `json:"categories"`
	UpgradeCode    string   `json:"upgrade_code"`

	// Architecture and System describe the build host. They are
	// detected when left empty.
	Architecture string `json:"architecture"`
	System       string `json:"system"`

	WindowsRuntime WindowsRuntime `json:"windows_runtime"`
}

// Default returns the built in product description.
func Default() (Product, error) {
	var p Product
	if err := yaml.Unmarshal(defaultProductYAML, &p); err != nil {
		return Product{}, errors.Wrap(err, "parsing built in product")
	}
	return p, nil
}

// Load returns the built in product overlaid with the YAML file at
// path, if path is not empty. Host details are detected when the
// result leaves them unset, and the result is validated.
func Load(path string) (Product, error) {
	p, err := Default()
	if err != nil {
		return Product{}, err
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Product{}, errors.Wrapf(err, "reading product file %s", path)
		}
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return Product{}, errors.Wrapf(err, "parsing product file %s", path)
		}
	}

	if p.Architecture == "" {
		p.Architecture = NormalizeArchitecture(hostMachine())
	}
	if p.System == "" {
		p.System = hostSystem()
	}

	if err := p.Validate(); err != nil {
		return Product{}, err
	}

	return p, nil
}

// Validate checks the fields every packaging target depends on.
func (p Product) Validate() error {
	if p.Name == "" {
		return errors.New("product name is empty")
	}
	if strings.ContainsAny(p.Name, " /\\") {
		return errors.Errorf("product name %q must not contain spaces or path separators", p.Name)
	}

	if _, err := semver.NewVersion(p.FullVersion()); err != nil {
		return errors.Wrapf(err, "invalid product version %q", p.FullVersion())
	}

	if p.UpgradeCode != "" {
		if _, err := uuid.Parse(p.UpgradeCode); err != nil {
			return errors.Wrapf(err, "invalid upgrade code %q", p.UpgradeCode)
		}
	}

	return nil
}

// Version is major.minor, the version users see.
func (p Product) Version() string {
	return p.VersionMajor + "." + p.VersionMinor
}

// FullVersion is major.minor.revision, the form MSI requires.
func (p Product) FullVersion() string {
	return p.Version() + "." + p.Revision
}

// Contact is the e-mail address in angle brackets, as used after the
// author name in changelogs and control files.
func (p Product) Contact() string {
	if p.Email == "" {
		return ""
	}
	return fmt.Sprintf("<%s>", p.Email)
}

// ExecutableName is the main program. It defaults to <name>-gtk.
func (p Product) ExecutableName() string {
	if p.Executable != "" {
		return p.Executable
	}
	return p.Name + "-gtk"
}

// DocDir is the slash path of the product's documentation directory.
func (p Product) DocDir() string {
	return "share/doc/" + p.Name
}

// Placeholders returns the substitution map for all rendered text.
func (p Product) Placeholders() placeholder.Map {
	return placeholder.NewMap(
		placeholder.Entry{Name: "NAME", Value: p.Name},
		placeholder.Entry{Name: "HEADLINE", Value: p.Headline},
		placeholder.Entry{Name: "VERSION", Value: p.Version()},
		placeholder.Entry{Name: "VERSION_MAJOR", Value: p.VersionMajor},
		placeholder.Entry{Name: "VERSION_MINOR", Value: p.VersionMinor},
		placeholder.Entry{Name: "REVISION", Value: p.Revision},
		placeholder.Entry{Name: "EMAIL", Value: p.Contact()},
		placeholder.Entry{Name: "HOMEPAGE", Value: p.Homepage},
		placeholder.Entry{Name: "ARCHITECTURE", Value: p.Architecture},
		placeholder.Entry{Name: "SYSTEM", Value: p.System},
		placeholder.Entry{Name: "AUTHOR", Value: p.Author},
		placeholder.Entry{Name: "DESCRIPTION", Value: strings.TrimRight(p.Description, "\n")},
		placeholder.Entry{Name: "COPYRIGHT_YEARS", Value: p.CopyrightYears},
		placeholder.Entry{Name: "EXECUTABLE", Value: p.ExecutableName()},
	)
}

// NormalizeArchitecture maps machine names to Debian architecture
// names. Windows names (x86, AMD64) pass through unchanged.
func NormalizeArchitecture(machine string) string {
	switch machine {
	case "i486", "i586", "i686":
		return "i386"
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	}
	return machine
}
