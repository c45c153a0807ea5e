package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/noise-free-cnv/packager/pkg/packagekit"
	"github.com/noise-free-cnv/packager/pkg/product"
	"github.com/stretchr/testify/require"
)

func TestListTargets(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, runListTargets(&buf))

	out := buf.String()
	require.Contains(t, out, "Packaging Target Matrix\n")
	require.Contains(t, out, "linux      deb\n")
	require.Contains(t, out, "Buildable targets: linux-deb, windows-msi, windows-zip, source-tar.gz\n")
}

func TestGuidSourceFor(t *testing.T) {
	t.Parallel()

	prod, err := product.Default()
	require.NoError(t, err)
	prod.Architecture = "AMD64"

	dbPath := filepath.Join(t.TempDir(), "guids.db")

	random, closeRandom, err := guidSourceFor(guidModeRandom, dbPath, prod)
	require.NoError(t, err)
	defer closeRandom()
	a, err := random.ComponentGuid("bin/noise-free-cnv-gtk.exe")
	require.NoError(t, err)
	b, err := random.ComponentGuid("bin/noise-free-cnv-gtk.exe")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	derived, closeDerived, err := guidSourceFor(guidModeDerived, dbPath, prod)
	require.NoError(t, err)
	defer closeDerived()
	guid, err := derived.ComponentGuid("bin/noise-free-cnv-gtk.exe")
	require.NoError(t, err)
	require.Equal(t, packagekit.ProductCode("noise-free-cnv-AMD64", "bin/noise-free-cnv-gtk.exe"), guid)

	persisted, closePersisted, err := guidSourceFor(guidModePersist, dbPath, prod)
	require.NoError(t, err)
	first, err := persisted.ComponentGuid("bin/noise-free-cnv-gtk.exe")
	require.NoError(t, err)
	closePersisted()
	closePersisted()

	persisted, closePersisted, err = guidSourceFor(guidModePersist, dbPath, prod)
	require.NoError(t, err)
	defer closePersisted()
	again, err := persisted.ComponentGuid("bin/noise-free-cnv-gtk.exe")
	require.NoError(t, err)
	require.Equal(t, first, again)

	_, _, err = guidSourceFor("sequential", dbPath, prod)
	require.Error(t, err)

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
}

func TestSignalListenerInterrupt(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.TODO())
	sigListener := newSignalListener(make(chan os.Signal, 1), cancel, log.NewNopLogger())

	done := make(chan error, 1)
	go func() { done <- sigListener.Execute() }()

	// Interrupting more than once must not block or panic
	sigListener.Interrupt(nil)
	sigListener.Interrupt(nil)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("signal listener did not stop")
	}

	require.ErrorIs(t, ctx.Err(), context.Canceled)
}
