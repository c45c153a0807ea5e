package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/noise-free-cnv/packager/pkg/packaging"
)

func runListTargets(out io.Writer) error {
	platformFlavors := packaging.KnownPlatformFlavors()
	packageFlavors := packaging.KnownPackageFlavors()

	fmt.Fprintf(out, "Packaging Target Matrix\n")
	fmt.Fprintf(out, "Select one from each column, hyphen separated.\n")
	fmt.Fprintf(out, "Not all combinations make sense\n")
	fmt.Fprintf(out, "A common target: `windows-msi`\n")
	fmt.Fprintf(out, "\n")

	w := tabwriter.NewWriter(out, 0, 4, 4, ' ', 0)

	line := 0
	for {
		hasPlatform := line < len(platformFlavors)
		hasPackage := line < len(packageFlavors)

		if !hasPlatform && !hasPackage {
			break
		}

		platformFlavor := ""
		if hasPlatform {
			platformFlavor = platformFlavors[line]
		}

		packageFlavor := ""
		if hasPackage {
			packageFlavor = packageFlavors[line]
		}

		fmt.Fprintf(w, "%s\t%s\n", platformFlavor, packageFlavor)

		line++
	}
	if err := w.Flush(); err != nil {
		return err
	}

	var valid []string
	for _, platform := range platformFlavors {
		for _, pkg := range packageFlavors {
			var t packaging.Target
			if err := t.Parse(platform + "-" + pkg); err == nil {
				valid = append(valid, t.String())
			}
		}
	}

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "Buildable targets: %s\n", strings.Join(valid, ", "))

	return nil
}
