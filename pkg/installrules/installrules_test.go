package installrules

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestGenerateExample(t *testing.T) {
	t.Parallel()

	tree := fstest.MapFS{
		"bin/app.exe":           &fstest.MapFile{Data: []byte("MZ")},
		"share/doc/prod/readme": &fstest.MapFile{Data: []byte("hi")},
	}

	rules, err := Generate(tree, []string{"share/doc/prod", "bin"})
	require.NoError(t, err)

	require.Equal(t,
		"install -d $(DESTDIR)/share/doc/prod\n"+
			"install -m 0644 share/doc/prod/readme $(DESTDIR)/share/doc/prod/readme\n"+
			"install -d $(DESTDIR)/bin\n"+
			"install -m 0644 bin/app.exe $(DESTDIR)/bin/app.exe\n",
		Render(rules),
	)
}

func TestGenerateNested(t *testing.T) {
	t.Parallel()

	tree := fstest.MapFS{
		"share/noise-free-cnv/palette": &fstest.MapFile{},
		"share/applications/x.desktop": &fstest.MapFile{},
		"share/doc/x/readme":           &fstest.MapFile{},
		"share/doc/x/changelog.gz":     &fstest.MapFile{},
		"share/icons/empty":            &fstest.MapFile{Mode: fs.ModeDir},
		"bin":                          &fstest.MapFile{Mode: fs.ModeDir},
	}

	rules, err := Generate(tree, []string{"share", "bin"})
	require.NoError(t, err)

	require.Equal(t, []string{
		"install -d $(DESTDIR)/share",
		"install -d $(DESTDIR)/share/applications",
		"install -m 0644 share/applications/x.desktop $(DESTDIR)/share/applications/x.desktop",
		"install -d $(DESTDIR)/share/doc",
		"install -d $(DESTDIR)/share/doc/x",
		"install -m 0644 share/doc/x/changelog.gz $(DESTDIR)/share/doc/x/changelog.gz",
		"install -m 0644 share/doc/x/readme $(DESTDIR)/share/doc/x/readme",
		"install -d $(DESTDIR)/share/icons",
		"install -d $(DESTDIR)/share/icons/empty",
		"install -d $(DESTDIR)/share/noise-free-cnv",
		"install -m 0644 share/noise-free-cnv/palette $(DESTDIR)/share/noise-free-cnv/palette",
		"install -d $(DESTDIR)/bin",
	}, strings.Split(strings.TrimSuffix(Render(rules), "\n"), "\n"))
}

func TestGenerateCoverage(t *testing.T) {
	t.Parallel()

	tree := fstest.MapFS{
		"root/a/1":     &fstest.MapFile{},
		"root/a/2":     &fstest.MapFile{},
		"root/a/b/3":   &fstest.MapFile{},
		"root/c":       &fstest.MapFile{Mode: fs.ModeDir},
		"root/d/e/f/4": &fstest.MapFile{},
		"root/5":       &fstest.MapFile{},
	}

	rules, err := Generate(tree, []string{"root"})
	require.NoError(t, err)

	dirRules := make(map[string]int)
	dirIndex := make(map[string]int)
	fileRules := make(map[string]int)
	for i, r := range rules {
		switch r.Kind {
		case MakeDirectory:
			dirRules[r.Dest]++
			dirIndex[r.Dest] = i
		case InstallFile:
			fileRules[r.Source]++
			parent := r.Dest[:strings.LastIndex(r.Dest, "/")]
			idx, ok := dirIndex[parent]
			require.True(t, ok, "file rule %s before its directory rule", r.Source)
			require.Less(t, idx, i)
		}
	}

	for _, d := range []string{"root", "root/a", "root/a/b", "root/c", "root/d", "root/d/e", "root/d/e/f"} {
		require.Equal(t, 1, dirRules["$(DESTDIR)/"+d], d)
	}
	require.Len(t, dirRules, 7)

	for _, f := range []string{"root/a/1", "root/a/2", "root/a/b/3", "root/d/e/f/4", "root/5"} {
		require.Equal(t, 1, fileRules[f], f)
	}
	require.Len(t, fileRules, 5)
}

func TestGenerateIdempotent(t *testing.T) {
	t.Parallel()

	tree := fstest.MapFS{
		"share/z":     &fstest.MapFile{},
		"share/a/b/c": &fstest.MapFile{},
		"share/m":     &fstest.MapFile{},
	}

	first, err := Generate(tree, []string{"share"})
	require.NoError(t, err)
	second, err := Generate(tree, []string{"share"})
	require.NoError(t, err)

	require.Equal(t, Render(first), Render(second))
}

func TestGenerateOptions(t *testing.T) {
	t.Parallel()

	tree := fstest.MapFS{
		"bin/tool": &fstest.MapFile{},
	}

	rules, err := Generate(tree, []string{"bin"}, WithDestRoot("/tmp/usr"), WithFileMode(0600))
	require.NoError(t, err)
	require.Equal(t, "install -d /tmp/usr/bin\ninstall -m 0600 bin/tool /tmp/usr/bin/tool\n", Render(rules))
}

func TestGenerateMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Generate(fstest.MapFS{}, []string{"share"})
	require.Error(t, err)
}

func TestRenderEmpty(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Render(nil))
}
