package wix

import (
	"context"
	"embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/go-kit/kit/log"
	"github.com/kolide/kit/env"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/noise-free-cnv/packager/pkg/runwrapper"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

//go:embed testdata
var testdata embed.FS

func TestPackageCommands(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()
	rec := &runwrapper.Recorder{}

	wixTool, err := New(buildDir, []byte("<Wix/>"),
		As64bit(),
		WithRunner(rec),
		WithOutputName("prod-2.1-1-win64"),
	)
	require.NoError(t, err)
	defer wixTool.Cleanup()

	_, err = os.Stat(filepath.Join(buildDir, "setup.wxs"))
	require.NoError(t, err)

	msi, err := wixTool.Package(context.TODO())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(buildDir, "prod-2.1-1-win64.msi"), msi)

	require.Equal(t, []string{
		"candle -nologo setup.wxs -ext WiXUtilExtension -arch x64",
		"light -nologo setup.wixobj -ext WiXUtilExtension -ext WiXUiExtension -o prod-2.1-1-win64.msi",
	}, rec.Commands())

	for _, inv := range rec.Invocations() {
		require.Equal(t, buildDir, inv.Dir)
	}

	_, err = os.Stat(filepath.Join(buildDir, "setup.wxs"))
	require.True(t, os.IsNotExist(err))
}

func TestPackageOptions(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()
	rec := &runwrapper.Recorder{}

	wixTool, err := New(buildDir, []byte("<Wix/>"),
		As32bit(),
		SkipValidation(),
		KeepIntermediates(),
		WithExtension("WixFirewallExtension"),
		WithWix("/opt/wix/bin"),
		WithDocker("wix-image"),
		WithRunner(rec),
	)
	require.NoError(t, err)

	_, err = wixTool.Package(context.TODO())
	require.NoError(t, err)

	invs := rec.Invocations()
	require.Len(t, invs, 2)

	require.Equal(t, "docker", invs[0].Name)
	require.Equal(t, []string{
		"run", "--entrypoint", "",
		"-v", buildDir + ":" + buildDir,
		"-w", buildDir,
		"wix-image", "wine", filepath.Join("/opt/wix/bin", "candle.exe"),
		"-nologo", "setup.wxs",
		"-ext", "WiXUtilExtension", "-ext", "WixFirewallExtension",
		"-arch", "x86",
	}, invs[0].Args)

	require.Contains(t, invs[1].Args, "-sval")
	require.Contains(t, invs[1].Args, "WixFirewallExtension")
	require.Contains(t, invs[1].Args, "setup.msi")

	_, err = os.Stat(filepath.Join(buildDir, "setup.wxs"))
	require.NoError(t, err)
}

func TestPackageFailure(t *testing.T) {
	t.Parallel()

	rec := &runwrapper.Recorder{
		Hook: func(inv runwrapper.Invocation) error {
			if inv.Name == "candle" {
				return errors.New("CNDL0104")
			}
			return nil
		},
	}

	wixTool, err := New("", []byte("<Wix/>"), As64bit(), WithRunner(rec))
	require.NoError(t, err)
	defer wixTool.Cleanup()

	_, err = wixTool.Package(context.TODO())
	require.Error(t, err)
	require.Contains(t, err.Error(), "running candle")
	require.Len(t, rec.Invocations(), 1)
}

func TestWixPackage(t *testing.T) {
	t.Parallel()

	if !env.Bool("CI_TEST_PACKAGING", false) {
		t.Skip("No docker")
	}

	logger := log.NewLogfmtLogger(os.Stderr)
	ctx := ctxlog.NewContext(context.Background(), logger)

	buildDir := t.TempDir()
	stagingDir := filepath.Join(buildDir, "tmp")
	require.NoError(t, os.MkdirAll(filepath.Join(stagingDir, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stagingDir, "bin", "hello.txt"), []byte("Hello"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(stagingDir, "var"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stagingDir, "var", "vroom.txt"), []byte("Vroom Vroom"), 0644))

	tree, err := Harvest(os.DirFS(stagingDir), WithFixedDirectory("bin", "BINDIR"), WithSourceRoot("tmp"))
	require.NoError(t, err)

	productWxs, err := testdata.ReadFile("testdata/product.wxs")
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(productWxs))
	tree.AppendTo(doc.FindElement("//Directory[@Id='APPLICATIONFOLDER']"))
	tree.AppendRefsTo(doc.FindElement("//Feature[@Id='main_program']"))
	mainWxsContent, err := doc.WriteToBytes()
	require.NoError(t, err)

	wixTool, err := New(buildDir,
		mainWxsContent,
		As32bit(),                 // wine is 32bit
		SkipValidation(),          // wine can't validate
		WithDocker("felfert/wix"), // TODO Use a project distributed Dockerfile
		WithWix("/opt/wix/bin"),
	)
	require.NoError(t, err)

	outMsi, err := wixTool.Package(ctx)
	require.NoError(t, err)

	// 7zip can mostly read MSI files
	fileContents, _, err := runwrapper.Exec(ctx, "7z", []string{"x", "-so", outMsi})
	require.NoError(t, err)
	require.Contains(t, fileContents, "Hello")
	require.Contains(t, fileContents, "Vroom Vroom")
}
