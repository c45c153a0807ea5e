package packagekit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/noise-free-cnv/packager/pkg/packagekit/wix"
	"github.com/noise-free-cnv/packager/pkg/runwrapper"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

// TestGenerateMicrosoftProductCode tests that our guid generation is
// stable. Changing these breaks upgrades of installed products.
func TestGenerateMicrosoftProductCode(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		ident1 string
		identN []string
		out    string
	}{
		{
			ident1: "launcherkolide",
			out:    "CFA29F86-36BF-483A-21FD-8E93D68E485A",
		},
		{
			ident1: "launcherkolide",
			identN: []string{},
			out:    "CFA29F86-36BF-483A-21FD-8E93D68E485A",
		},
		{
			ident1: "launcherkolide-app",
			out:    "3367A041-D1DA-D2D4-5A6C-E7A286F024C5",
		},
		{
			ident1: "launcherkolide-app",
			identN: []string{"0.7.0", "386"},
			out:    "151B76C7-5BB1-A180-F46B-0465129FF24C",
		},
		{
			ident1: "noise-free-cnv",
			identN: []string{"B76936B4-8257-11E1-8541-91C54824019B", "2.1.1", "AMD64"},
			out:    "B94F4DDD-4890-BA17-BD55-259FA44BB108",
		},
	}

	for _, tt := range tests {
		guid := ProductCode(tt.ident1, tt.identN...)
		require.Equal(t, len("XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX"), len(guid))
		require.Equal(t, tt.out, guid)
	}
}

func TestDerivedGuids(t *testing.T) {
	t.Parallel()

	g := DerivedGuids("noise-free-cnv")

	a, err := g.ComponentGuid("bin/app.exe")
	require.NoError(t, err)
	require.Equal(t, "E9BB8F4A-AFEA-A7D6-78F5-B340B123BCF4", a)

	again, err := g.ComponentGuid("bin/app.exe")
	require.NoError(t, err)
	require.Equal(t, a, again)

	other, err := g.ComponentGuid("bin/app.dll")
	require.NoError(t, err)
	require.NotEqual(t, a, other)
}

const testInstallerTemplate = `<?xml version='1.0' encoding='windows-1252'?>
<Wix xmlns='http://schemas.microsoft.com/wix/2006/wi'>
<Product Name='Caf` + "é" + ` 2.1-1' Id='*'>
<Directory Id='TARGETDIR' Name='SourceDir'>
<Directory Id='ProgramFilesFolder' Name='PFiles'>
<Directory Id='APPLICATIONFOLDER' Name='prod'>
</Directory>
</Directory>
</Directory>
<Feature Id='main_program' Title='prod' Level='1'>
<Feature Id='start_menu_entries' Level='1'>
<ComponentRef Id='MenuShortcuts'/>
</Feature>
</Feature>
</Product>
</Wix>
`

func harvestTestTree(t *testing.T) *wix.Tree {
	tree, err := wix.Harvest(
		fstest.MapFS{
			"bin/app.exe":           {Data: []byte("exe")},
			"share/doc/prod/readme": {Data: []byte("readme")},
		},
		wix.WithFixedDirectory("bin", "BINDIR"),
		wix.WithFixedDirectory("share/doc/prod", "DOCDIR"),
		wix.WithSourceRoot("tmp"),
		wix.WithGuidSource(DerivedGuids("test")),
	)
	require.NoError(t, err)
	return tree
}

func TestRenderWixInstaller(t *testing.T) {
	t.Parallel()

	out, err := RenderWixInstaller(testInstallerTemplate, harvestTestTree(t))
	require.NoError(t, err)

	// windows-1252 encodes e-acute as a single byte
	require.Contains(t, string(out), "Caf\xe9 2.1-1")

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(out)
	require.NoError(t, err)
	text := string(decoded)

	require.True(t, strings.HasPrefix(text, "<?xml version='1.0' encoding='windows-1252'?>\r\n"))
	require.Equal(t, strings.Count(text, "\n"), strings.Count(text, "\r\n"))

	require.Contains(t, text, "<Directory Id='BINDIR' Name='bin'>")
	require.Contains(t, text, "<Directory Id='DOCDIR' Name='prod'>")
	require.Contains(t, text, "Source='tmp\\share\\doc\\prod\\readme' KeyPath='yes'/>")

	cmp1 := strings.Index(text, "<ComponentRef Id='cmp1'/>")
	cmp0 := strings.Index(text, "<ComponentRef Id='cmp0'/>")
	startMenu := strings.Index(text, "<Feature Id='start_menu_entries'")
	require.True(t, cmp1 > 0 && cmp1 < cmp0 && cmp0 < startMenu, "refs precede the sub features, newest first")

	appDir := strings.Index(text, "<Directory Id='APPLICATIONFOLDER'")
	bindir := strings.Index(text, "<Directory Id='BINDIR'")
	require.True(t, appDir < bindir)
}

func TestRenderWixInstallerErrors(t *testing.T) {
	t.Parallel()

	tree := harvestTestTree(t)

	_, err := RenderWixInstaller("<Wix><Feature Id='main_program'/></Wix>", tree)
	require.Error(t, err)

	_, err = RenderWixInstaller("<Wix><Directory Id='APPLICATIONFOLDER'/></Wix>", tree)
	require.Error(t, err)

	_, err = RenderWixInstaller("<Wix", tree)
	require.Error(t, err)

	_, err = RenderWixInstaller(
		"<Wix><Directory Id='APPLICATIONFOLDER' Name='✓'/><Feature Id='main_program'/></Wix>",
		tree,
	)
	require.Error(t, err, "check mark has no windows-1252 encoding")
}

func TestPackageWixMSI(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()
	rec := &runwrapper.Recorder{}

	msi, err := PackageWixMSI(context.TODO(), buildDir, []byte("<Wix/>"), "prod-2.1-1-win32",
		wix.As32bit(),
		wix.WithRunner(rec),
	)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(buildDir, "prod-2.1-1-win32.msi"), msi)

	require.Equal(t, []string{
		"candle -nologo setup.wxs -ext WiXUtilExtension -arch x86",
		"light -nologo setup.wixobj -ext WiXUtilExtension -ext WiXUiExtension -o prod-2.1-1-win32.msi",
	}, rec.Commands())

	// the build dir belongs to the caller
	_, err = os.Stat(buildDir)
	require.NoError(t, err)

	_, err = PackageWixMSI(context.TODO(), filepath.Join(buildDir, "missing"), []byte("<Wix/>"), "x", wix.WithRunner(rec))
	require.Error(t, err)
}
