package packaging

import (
	"fmt"
	"strings"

	"github.com/noise-free-cnv/packager/pkg/product"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Target is the artifact being built. As "platform" has several axis,
// we use a stuct to convey them.
type Target struct {
	Platform PlatformFlavor
	Package  PackageFlavor
	Arch     string // product architecture, eg: amd64 or AMD64
}

type PlatformFlavor string

const (
	Linux   PlatformFlavor = "linux"
	Windows PlatformFlavor = "windows"
	Source  PlatformFlavor = "source"
)

type PackageFlavor string

const (
	Deb     PackageFlavor = "deb"
	Msi     PackageFlavor = "msi"
	Zip     PackageFlavor = "zip"
	Tarball PackageFlavor = "tar.gz"
)

var knownPlatformFlavors = []PlatformFlavor{Linux, Windows, Source}
var knownPackageFlavors = []PackageFlavor{Deb, Msi, Zip, Tarball}

// packagesByPlatform lists the packages each platform can produce.
var packagesByPlatform = map[PlatformFlavor][]PackageFlavor{
	Linux:   {Deb},
	Windows: {Msi, Zip},
	Source:  {Tarball},
}

// artifactNames are the file names of the built packages, as
// placeholder templates. WINDOWS_SUFFIX is win32 or win64.
var artifactNames = map[PackageFlavor]string{
	Deb:     "$(NAME)_$(VERSION)-$(REVISION)_$(ARCHITECTURE).deb",
	Msi:     "$(NAME)-$(VERSION)-$(REVISION)-$(WINDOWS_SUFFIX).msi",
	Zip:     "$(NAME)-$(VERSION)-$(REVISION)-$(WINDOWS_SUFFIX).zip",
	Tarball: "$(NAME)-$(VERSION)-src.tar.gz",
}

func KnownPlatformFlavors() []string {
	out := make([]string, len(knownPlatformFlavors))
	for i, f := range knownPlatformFlavors {
		out[i] = string(f)
	}
	return out
}

func KnownPackageFlavors() []string {
	out := make([]string, len(knownPackageFlavors))
	for i, f := range knownPackageFlavors {
		out[i] = string(f)
	}
	return out
}

func (t *Target) String() string {
	return fmt.Sprintf("%s-%s", t.Platform, t.Package)
}

// Parse parses a string in the form platform-package, eg: windows-msi.
func (t *Target) Parse(s string) error {
	platform, pkg, ok := strings.Cut(s, "-")
	if !ok {
		return errors.Errorf("unable to parse target %q, expected platform-package", s)
	}

	if err := t.PlatformFromString(platform); err != nil {
		return err
	}
	if err := t.PackageFromString(pkg); err != nil {
		return err
	}

	if !slices.Contains(packagesByPlatform[t.Platform], t.Package) {
		return errors.Errorf("platform %s does not build %s packages", t.Platform, t.Package)
	}
	return nil
}

func (t *Target) PlatformFromString(s string) error {
	i := slices.Index(knownPlatformFlavors, PlatformFlavor(s))
	if i < 0 {
		return errors.Errorf("unknown platform %q", s)
	}
	t.Platform = knownPlatformFlavors[i]
	return nil
}

func (t *Target) PackageFromString(s string) error {
	i := slices.Index(knownPackageFlavors, PackageFlavor(s))
	if i < 0 {
		return errors.Errorf("unknown package %q", s)
	}
	t.Package = knownPackageFlavors[i]
	return nil
}

// WindowsArch describes how a product architecture appears in a
// Windows installer.
type WindowsArch struct {
	MsArch             string // candle -arch value
	Suffix             string // artifact name suffix
	ProgramFilesFolder string // installer directory id
}

// WindowsArchFor maps the Windows processor architecture names to
// installer settings. Anything else cannot be packaged for Windows.
func WindowsArchFor(arch string) (WindowsArch, error) {
	switch arch {
	case "x86":
		return WindowsArch{MsArch: "x86", Suffix: "win32", ProgramFilesFolder: "ProgramFilesFolder"}, nil
	case "AMD64":
		return WindowsArch{MsArch: "x64", Suffix: "win64", ProgramFilesFolder: "ProgramFiles64Folder"}, nil
	}
	return WindowsArch{}, errors.Errorf("unsupported windows architecture %q", arch)
}

// ArtifactName returns the file name of the package this target
// produces for p.
func (t *Target) ArtifactName(p product.Product) (string, error) {
	pattern, ok := artifactNames[t.Package]
	if !ok {
		return "", errors.Errorf("no artifact name for package %q", t.Package)
	}

	placeholders := p.Placeholders()
	if t.Arch != "" {
		placeholders = placeholders.With("ARCHITECTURE", t.Arch)
	}

	if t.Platform == Windows {
		arch, err := WindowsArchFor(t.Arch)
		if err != nil {
			return "", err
		}
		placeholders = placeholders.With("WINDOWS_SUFFIX", arch.Suffix)
	}

	return placeholders.Expand(pattern), nil
}
