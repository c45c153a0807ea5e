package wix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-kit/kit/log/level"
	"github.com/noise-free-cnv/packager/pkg/contexts/ctxlog"
	"github.com/noise-free-cnv/packager/pkg/runwrapper"
	"github.com/pkg/errors"
)

const (
	mainWxsName    = "setup.wxs"
	mainWixobjName = "setup.wixobj"
)

type wixTool struct {
	wixPath         string   // Where is wix installed. Empty means PATH.
	buildDir        string   // The wix tools want to work in a build dir.
	msArch          string   // What's the microsoft archtecture name?
	candleExts      []string // extensions passed to candle
	lightExts       []string // extensions passed to light
	dockerImage     string   // If in docker, what image?
	skipValidation  bool     // Skip light validation. Seems to be needed for running in 32bit wine environments.
	outputName      string   // msi base name, without extension
	cleanDirs       []string // directories to rm on cleanup
	removeIntermeds bool

	runner runwrapper.Runner
}

type WixOpt func(*wixTool)

func As64bit() WixOpt {
	return func(wo *wixTool) {
		wo.msArch = "x64"
	}
}

func As32bit() WixOpt {
	return func(wo *wixTool) {
		wo.msArch = "x86"
	}
}

// If you're running this in a virtual win environment, you probably
// need to skip validation. LGHT0216 is a common error.
func SkipValidation() WixOpt {
	return func(wo *wixTool) {
		wo.skipValidation = true
	}
}

// WithWix sets the directory holding candle.exe and light.exe.
func WithWix(path string) WixOpt {
	return func(wo *wixTool) {
		wo.wixPath = path
	}
}

// WithExtension adds a wix extension to both candle and light.
func WithExtension(ext string) WixOpt {
	return func(wo *wixTool) {
		wo.candleExts = append(wo.candleExts, ext)
		wo.lightExts = append(wo.lightExts, ext)
	}
}

func WithDocker(image string) WixOpt {
	return func(wo *wixTool) {
		wo.dockerImage = image
	}
}

func WithRunner(r runwrapper.Runner) WixOpt {
	return func(wo *wixTool) {
		wo.runner = r
	}
}

// WithOutputName sets the base name of the msi. (default: setup)
func WithOutputName(name string) WixOpt {
	return func(wo *wixTool) {
		wo.outputName = name
	}
}

// KeepIntermediates leaves setup.wxs and the compiler outputs in the
// build dir.
func KeepIntermediates() WixOpt {
	return func(wo *wixTool) {
		wo.removeIntermeds = false
	}
}

// New writes mainWxsContent into buildDir, and returns a struct
// suitable for building packages with. File sources in the wxs are
// resolved relative to buildDir. If buildDir is empty, a temporary one
// is used, and removed by Cleanup.
func New(buildDir string, mainWxsContent []byte, wixOpts ...WixOpt) (*wixTool, error) {
	wo := &wixTool{
		buildDir:        buildDir,
		candleExts:      []string{"WiXUtilExtension"},
		lightExts:       []string{"WiXUtilExtension", "WiXUiExtension"},
		outputName:      "setup",
		removeIntermeds: true,
		runner:          runwrapper.New(),
	}

	for _, opt := range wixOpts {
		opt(wo)
	}

	var err error
	if wo.buildDir == "" {
		wo.buildDir, err = os.MkdirTemp("", "wix-build-dir")
		if err != nil {
			return nil, errors.Wrap(err, "making temp wix-build-dir")
		}
		wo.cleanDirs = append(wo.cleanDirs, wo.buildDir)
	}

	if wo.msArch == "" {
		switch runtime.GOARCH {
		case "386":
			wo.msArch = "x86"
		case "amd64":
			wo.msArch = "x64"
		default:
			return nil, errors.Errorf("unknown arch for windows %s", runtime.GOARCH)
		}
	}

	mainWxsPath := filepath.Join(wo.buildDir, mainWxsName)

	if err := os.WriteFile(
		mainWxsPath,
		mainWxsContent,
		0644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", mainWxsPath)
	}

	return wo, nil
}

// Cleanup removes temp directories. Meant to be called in a defer.
func (wo *wixTool) Cleanup() {
	for _, d := range wo.cleanDirs {
		os.RemoveAll(d)
	}
}

// Package will run through the wix steps to produce a resulting
// package, and returns the path of the msi inside the build dir.
func (wo *wixTool) Package(ctx context.Context) (string, error) {
	if err := wo.candle(ctx); err != nil {
		return "", errors.Wrap(err, "running candle")
	}

	if err := wo.light(ctx); err != nil {
		return "", errors.Wrap(err, "running light")
	}

	if wo.removeIntermeds {
		for _, name := range []string{mainWxsName, mainWixobjName, wo.outputName + ".wixpdb"} {
			if err := os.Remove(filepath.Join(wo.buildDir, name)); err != nil && !os.IsNotExist(err) {
				return "", errors.Wrapf(err, "removing %s", name)
			}
		}
	}

	return filepath.Join(wo.buildDir, wo.msiName()), nil
}

func (wo *wixTool) msiName() string {
	return wo.outputName + ".msi"
}

// candle invokes wix's candle command. This is the wix compiler, It
// preprocesses and compiles WiX source files into object files
// (.wixobj).
func (wo *wixTool) candle(ctx context.Context) error {
	args := []string{"-nologo", mainWxsName}
	for _, ext := range wo.candleExts {
		args = append(args, "-ext", ext)
	}
	args = append(args, "-arch", wo.msArch)

	return wo.exec(ctx, wo.toolPath("candle"), args...)
}

// light invokes wix's light command. This links and binds one or more
// .wixobj files and creates a Windows Installer database (.msi or
// .msm). See http://wixtoolset.org/documentation/manual/v3/overview/light.html for options
func (wo *wixTool) light(ctx context.Context) error {
	args := []string{"-nologo", mainWixobjName}
	for _, ext := range wo.lightExts {
		args = append(args, "-ext", ext)
	}
	args = append(args, "-o", wo.msiName())

	if wo.skipValidation {
		args = append(args, "-sval")
	}

	return wo.exec(ctx, wo.toolPath("light"), args...)
}

func (wo *wixTool) toolPath(tool string) string {
	if wo.wixPath == "" {
		return tool
	}
	return filepath.Join(wo.wixPath, tool+".exe")
}

func (wo *wixTool) exec(ctx context.Context, argv0 string, args ...string) error {
	logger := ctxlog.FromContext(ctx)

	if wo.dockerImage != "" {
		dockerArgs := []string{
			"run",
			"--entrypoint", "",
			"-v", fmt.Sprintf("%s:%s", wo.buildDir, wo.buildDir),
			"-w", wo.buildDir,
			wo.dockerImage,
			"wine",
			argv0,
		}
		argv0 = "docker"
		args = append(dockerArgs, args...)
	}

	level.Debug(logger).Log(
		"msg", "running wix tool",
		"cmd", argv0,
		"args", strings.Join(args, " "),
	)

	return wo.runner.Run(ctx, wo.buildDir, argv0, args...)
}
