// Package stagetree walks a staging directory the way the packaging
// generators need it: top-down, each directory reported once with all
// of its files before any of its subdirectories are visited.
//
// This differs from fs.WalkDir, which interleaves files and
// subdirectories in lexical order.
package stagetree

import (
	"io/fs"
	"path"

	"github.com/pkg/errors"
)

// Dir is one visited directory. Path is slash separated and relative
// to the walked file system ("." for its root). Files and Subdirs are
// base names, sorted.
type Dir struct {
	Path    string
	Files   []string
	Subdirs []string
}

// FilePath returns the slash path of one of d's files.
func (d Dir) FilePath(name string) string {
	return path.Join(d.Path, name)
}

// WalkFunc is called once per directory. Returning fs.SkipDir skips
// the directory's subdirectories. Any other error stops the walk.
type WalkFunc func(d Dir) error

// Walk visits root and everything below it in fsys. Errors reading a
// directory are returned wrapped with the offending path.
func Walk(fsys fs.FS, root string, fn WalkFunc) error {
	err := walk(fsys, path.Clean(root), fn)
	if err == fs.SkipDir {
		return nil
	}
	return err
}

func walk(fsys fs.FS, dir string, fn WalkFunc) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return errors.Wrapf(err, "reading directory %s", dir)
	}

	d := Dir{Path: dir}
	for _, e := range entries {
		if e.IsDir() {
			d.Subdirs = append(d.Subdirs, e.Name())
		} else {
			d.Files = append(d.Files, e.Name())
		}
	}

	if err := fn(d); err != nil {
		return err
	}

	for _, sub := range d.Subdirs {
		if err := walk(fsys, path.Join(dir, sub), fn); err != nil {
			if err == fs.SkipDir {
				continue
			}
			return err
		}
	}

	return nil
}
