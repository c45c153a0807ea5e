package packagekit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/noise-free-cnv/packager/pkg/runwrapper"
	"github.com/stretchr/testify/require"
)

func TestDebianDescription(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		in  string
		out string
	}{
		{in: "", out: ""},
		{in: "one line", out: " one line\n"},
		{in: "one line\n", out: " one line\n"},
		{in: "first\nsecond", out: " first\n second\n"},
		{in: "para one\n\npara two\n", out: " para one\n .\n para two\n"},
		{in: "a\n\n\nb", out: " a\n .\n .\n b\n"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.out, DebianDescription(tt.in), "%q", tt.in)
	}
}

func TestInstalledSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "share", "empty"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "a"), make([]byte, 1), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "share", "b"), make([]byte, 1025), 0644))

	size, err := InstalledSize(dir)
	require.NoError(t, err)
	require.Equal(t, int64(2), size)

	size, err = InstalledSize(filepath.Join(dir, "share", "empty"))
	require.NoError(t, err)
	require.Equal(t, int64(0), size)

	_, err = InstalledSize(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func testControl() DebControl {
	return DebControl{
		Package:      "prod",
		Version:      "2.1-1",
		Section:      "science",
		Priority:     "optional",
		Architecture: "amd64",
		Depends:      []string{"libc6", "libfftw3-3"},
		Maintainer:   "Jane Doe <jane@example.com>",
		Homepage:     "http://example.com",
		Synopsis:     "a product",
		Description:  "First paragraph.\n\nSecond paragraph.\n",
	}
}

func TestDebControlRender(t *testing.T) {
	t.Parallel()

	control := testControl()
	control.InstalledSize = 42

	out, err := control.Render()
	require.NoError(t, err)

	expected := `Package:        prod
Version:        2.1-1
Section:        science
Priority:       optional
Architecture:   amd64
Depends:        libc6, libfftw3-3
Installed-Size: 42
Maintainer:     Jane Doe <jane@example.com>
Homepage:       http://example.com
Description:    a product
 First paragraph.
 .
 Second paragraph.
`
	require.Equal(t, expected, string(out))
}

func TestPackageDeb(t *testing.T) {
	t.Parallel()

	staging := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "usr", "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "usr", "bin", "prod"), make([]byte, 3000), 0755))

	rec := &runwrapper.Recorder{}
	out := filepath.Join(t.TempDir(), "prod_2.1-1_amd64.deb")

	require.NoError(t, PackageDeb(context.TODO(), rec, staging, out, testControl()))

	require.Equal(t, []runwrapper.Invocation{
		{Name: "fakeroot", Args: []string{"dpkg-deb", "-b", staging, out}},
	}, rec.Invocations())

	control, err := os.ReadFile(filepath.Join(staging, "DEBIAN", "control"))
	require.NoError(t, err)
	require.Contains(t, string(control), "Installed-Size: 3\n")
	require.True(t, strings.HasSuffix(string(control), " Second paragraph.\n"))
}

func TestPackageDebToolFailure(t *testing.T) {
	t.Parallel()

	rec := &runwrapper.Recorder{
		Hook: func(runwrapper.Invocation) error { return os.ErrPermission },
	}

	err := PackageDeb(context.TODO(), rec, t.TempDir(), "out.deb", testControl())
	require.ErrorIs(t, err, os.ErrPermission)

	err = PackageDeb(context.TODO(), rec, filepath.Join(t.TempDir(), "missing"), "out.deb", testControl())
	require.Error(t, err)
}
