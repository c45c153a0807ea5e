package wix

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/google/uuid"
	"github.com/noise-free-cnv/packager/pkg/stagetree"
	"github.com/pkg/errors"
)

// Node is a child of a Directory: either a *Directory or a *Component.
type Node interface {
	isNode()
}

// Directory implements http://wixtoolset.org/documentation/manual/v3/xsd/wix/directory.html
type Directory struct {
	Id       string
	Name     string
	Children []Node
}

// Component implements http://wixtoolset.org/documentation/manual/v3/xsd/wix/component.html
// Each harvested component wraps exactly one file, which is also its
// key path.
type Component struct {
	Id   string
	Guid string
	File File
}

// File implements http://wixtoolset.org/documentation/manual/v3/xsd/wix/file.html
type File struct {
	Id     string
	Name   string
	Source string
}

func (*Directory) isNode() {}
func (*Component) isNode() {}

// Tree is a harvested staging directory. Nodes are the top level
// entries, to be placed under the installation folder. ComponentRefs
// lists every component id, newest first, for feature membership.
type Tree struct {
	Nodes         []Node
	ComponentRefs []string
}

// GuidSource hands out component GUIDs. key is the slash path of the
// component's file relative to the staging root.
type GuidSource interface {
	ComponentGuid(key string) (string, error)
}

// GuidFunc adapts a function to GuidSource.
type GuidFunc func(key string) (string, error)

func (f GuidFunc) ComponentGuid(key string) (string, error) {
	return f(key)
}

// RandomGuids returns a fresh random GUID for every request.
func RandomGuids() GuidSource {
	return GuidFunc(func(string) (string, error) {
		return strings.ToUpper(uuid.NewString()), nil
	})
}

type fixedDirectory struct {
	path string
	id   string
}

type harvestOptions struct {
	fixed      []fixedDirectory
	sourceRoot string
	guids      GuidSource
}

// HarvestOpt configures Harvest.
type HarvestOpt func(*harvestOptions)

// WithFixedDirectory gives the directory at the slash path p the id
// instead of a generated one. It applies when p directly contains
// files. Paths compare case-insensitively, as on Windows.
func WithFixedDirectory(p, id string) HarvestOpt {
	return func(ho *harvestOptions) {
		ho.fixed = append(ho.fixed, fixedDirectory{path: p, id: id})
	}
}

// WithSourceRoot prefixes every File Source, eg: the staging directory
// name relative to where candle runs.
func WithSourceRoot(root string) HarvestOpt {
	return func(ho *harvestOptions) {
		ho.sourceRoot = root
	}
}

// WithGuidSource sets where component GUIDs come from. (default: random)
func WithGuidSource(g GuidSource) HarvestOpt {
	return func(ho *harvestOptions) {
		ho.guids = g
	}
}

// Harvest walks fsys from its root and builds the directory and
// component tree for it.
func Harvest(fsys fs.FS, opts ...HarvestOpt) (*Tree, error) {
	ho := &harvestOptions{
		guids: RandomGuids(),
	}
	for _, opt := range opts {
		opt(ho)
	}

	h := &harvester{
		opts:    ho,
		current: ".",
	}

	if err := stagetree.Walk(fsys, ".", h.visit); err != nil {
		return nil, errors.Wrap(err, "harvesting staging directory")
	}

	h.closeAll()

	refs := make([]string, 0, h.cmpCount)
	for n := h.cmpCount; n > 0; n-- {
		refs = append(refs, componentId(n-1))
	}

	return &Tree{
		Nodes:         h.root,
		ComponentRefs: refs,
	}, nil
}

// harvester holds the directory stack while walking.
type harvester struct {
	opts *harvestOptions

	root    []Node
	stack   []*Directory
	current string

	dirCount int
	cmpCount int
}

func (h *harvester) visit(d stagetree.Dir) error {
	if len(d.Files) == 0 {
		return nil
	}

	segments := relativeSegments(h.current, d.Path)
	for i, seg := range segments {
		switch seg {
		case "..":
			h.pop()
		case ".":
		default:
			h.push(seg, h.directoryId(d.Path, i == len(segments)-1))
		}
	}
	h.current = d.Path

	for _, name := range d.Files {
		rel := d.FilePath(name)
		guid, err := h.opts.guids.ComponentGuid(rel)
		if err != nil {
			return errors.Wrapf(err, "getting component guid for %s", rel)
		}

		id := componentId(h.cmpCount)
		h.cmpCount++

		h.add(&Component{
			Id:   id,
			Guid: guid,
			File: File{
				Id:     id,
				Name:   name,
				Source: h.source(rel),
			},
		})
	}

	return nil
}

func (h *harvester) directoryId(target string, last bool) string {
	if last {
		for _, f := range h.opts.fixed {
			if strings.EqualFold(f.path, target) {
				return f.id
			}
		}
	}

	id := fmt.Sprintf("dir%d", h.dirCount)
	h.dirCount++
	return id
}

func (h *harvester) push(name, id string) {
	dir := &Directory{Id: id, Name: name}
	h.add(dir)
	h.stack = append(h.stack, dir)
}

func (h *harvester) pop() {
	if len(h.stack) == 0 {
		return
	}
	h.stack = h.stack[:len(h.stack)-1]
}

// closeAll empties the stack once the walk is complete.
func (h *harvester) closeAll() {
	for len(h.stack) > 0 {
		h.pop()
	}
	h.current = "."
}

// add attaches n to the innermost open directory, or the top level.
func (h *harvester) add(n Node) {
	if len(h.stack) == 0 {
		h.root = append(h.root, n)
		return
	}
	top := h.stack[len(h.stack)-1]
	top.Children = append(top.Children, n)
}

func (h *harvester) source(rel string) string {
	winRel := strings.ReplaceAll(rel, "/", `\`)
	if h.opts.sourceRoot == "" {
		return winRel
	}
	return strings.TrimRight(h.opts.sourceRoot, `\/`) + `\` + winRel
}

func componentId(n int) string {
	return fmt.Sprintf("cmp%d", n)
}

// relativeSegments returns the path from one slash path to another as
// segments: a ".." for each level to climb, then the names to descend.
// Both paths are relative to the same root, "." being the root itself.
// Equal paths yield a single ".".
func relativeSegments(from, to string) []string {
	fromParts := splitPath(from)
	toParts := splitPath(to)

	common := 0
	for common < len(fromParts) && common < len(toParts) && fromParts[common] == toParts[common] {
		common++
	}

	var segments []string
	for i := common; i < len(fromParts); i++ {
		segments = append(segments, "..")
	}
	segments = append(segments, toParts[common:]...)

	if len(segments) == 0 {
		return []string{"."}
	}
	return segments
}

func splitPath(p string) []string {
	if p == "." || p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
