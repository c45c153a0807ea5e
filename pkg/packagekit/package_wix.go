package packagekit

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/go-kit/kit/log/level"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/noise-free-cnv/packager/pkg/packagekit/wix"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"golang.org/x/text/encoding/charmap"
)

const (
	applicationFolderPath = "//Directory[@Id='APPLICATIONFOLDER']"
	mainFeaturePath       = "//Feature[@Id='main_program']"
)

// RenderWixInstaller places the harvested tree into the product
// markup: the directories and components under the APPLICATIONFOLDER
// directory, the component references at the front of the main_program
// feature. The template is read as UTF-8 text whatever its xml
// declaration says. The result is indented, uses CRLF line endings and
// is encoded as Windows-1252, the codepage installers declare.
func RenderWixInstaller(template string, tree *wix.Tree) ([]byte, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	if err := doc.ReadFromString(template); err != nil {
		return nil, errors.Wrap(err, "parsing installer template")
	}

	appDir := doc.FindElement(applicationFolderPath)
	if appDir == nil {
		return nil, errors.Errorf("installer template has no %s", applicationFolderPath)
	}

	feature := doc.FindElement(mainFeaturePath)
	if feature == nil {
		return nil, errors.Errorf("installer template has no %s", mainFeaturePath)
	}

	tree.AppendTo(appDir)
	tree.AppendRefsTo(feature)

	doc.Indent(2)
	doc.WriteSettings.AttrSingleQuote = true

	out, err := doc.WriteToString()
	if err != nil {
		return nil, errors.Wrap(err, "serializing installer")
	}

	out = strings.ReplaceAll(out, "\n", "\r\n")

	encoded, err := charmap.Windows1252.NewEncoder().String(out)
	if err != nil {
		return nil, errors.Wrap(err, "encoding installer as windows-1252")
	}

	return []byte(encoded), nil
}

// PackageWixMSI compiles wxs into outName.msi inside buildDir, and
// returns the msi path. File sources in wxs are relative to buildDir.
func PackageWixMSI(ctx context.Context, buildDir string, wxs []byte, outName string, wixOpts ...wix.WixOpt) (string, error) {
	ctx, span := trace.StartSpan(ctx, "packagekit.PackageWixMSI")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	if err := isDirectory(buildDir); err != nil {
		return "", err
	}

	level.Debug(logger).Log("msg", "building msi", "builddir", buildDir, "name", outName)

	opts := append(append([]wix.WixOpt{}, wixOpts...), wix.WithOutputName(outName))

	wixTool, err := wix.New(buildDir, wxs, opts...)
	if err != nil {
		return "", errors.Wrap(err, "making wixTool")
	}
	defer wixTool.Cleanup()

	msi, err := wixTool.Package(ctx)
	if err != nil {
		return "", errors.Wrap(err, "wixTool.Package")
	}

	return msi, nil
}

// ProductCode is a stable guid derived from the given identifiers.
func ProductCode(ident1 string, identN ...string) string {
	return generateMicrosoftProductCode(ident1, identN...)
}

// DerivedGuids returns a GuidSource whose component GUIDs are derived
// from seed and the component's path, so they are stable across builds
// as long as the seed is.
func DerivedGuids(seed string) wix.GuidSource {
	return wix.GuidFunc(func(key string) (string, error) {
		return generateMicrosoftProductCode(seed, key), nil
	})
}

// generateMicrosoftProductCode is a stable guid that is used to
// identify the product / sub product / package / version, and
// whatnot. We need to either store them, or generate them in a
// predictable fasion based on a set of inputs. See
// https://docs.microsoft.com/en-us/windows/desktop/Msi/productcode
func generateMicrosoftProductCode(ident1 string, identN ...string) string {
	h := md5.New()
	io.WriteString(h, ident1)
	for _, s := range identN {
		io.WriteString(h, s)
	}

	hash := h.Sum(nil)

	return fmt.Sprintf("%X-%X-%X-%X-%X", hash[0:4], hash[4:6], hash[6:8], hash[8:10], hash[10:16])
}
