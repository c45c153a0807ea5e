package wix

import (
	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

func (d *Directory) element() *etree.Element {
	el := etree.NewElement("Directory")
	el.CreateAttr("Id", d.Id)
	el.CreateAttr("Name", d.Name)
	for _, child := range d.Children {
		el.AddChild(nodeElement(child))
	}
	return el
}

func (c *Component) element() *etree.Element {
	el := etree.NewElement("Component")
	el.CreateAttr("Id", c.Id)
	el.CreateAttr("Guid", c.Guid)

	file := el.CreateElement("File")
	file.CreateAttr("Id", c.File.Id)
	file.CreateAttr("Name", c.File.Name)
	file.CreateAttr("Source", c.File.Source)
	file.CreateAttr("KeyPath", "yes")

	return el
}

func nodeElement(n Node) *etree.Element {
	switch v := n.(type) {
	case *Directory:
		return v.element()
	case *Component:
		return v.element()
	}
	return nil
}

// AppendTo adds the harvested directories and components as children
// of parent, typically the installation folder's Directory element.
func (t *Tree) AppendTo(parent *etree.Element) {
	for _, n := range t.Nodes {
		parent.AddChild(nodeElement(n))
	}
}

// AppendRefsTo puts a ComponentRef for every component at the start of
// feature, ahead of anything already there.
func (t *Tree) AppendRefsTo(feature *etree.Element) {
	for i, id := range t.ComponentRefs {
		ref := etree.NewElement("ComponentRef")
		ref.CreateAttr("Id", id)
		feature.InsertChildAt(i, ref)
	}
}

// Markup renders the tree on its own: the directory elements followed
// by the component references, indented by two spaces with single
// quoted attributes.
func (t *Tree) Markup() (string, error) {
	doc := etree.NewDocument()
	doc.WriteSettings.AttrSingleQuote = true

	t.AppendTo(&doc.Element)
	for _, id := range t.ComponentRefs {
		ref := doc.CreateElement("ComponentRef")
		ref.CreateAttr("Id", id)
	}

	doc.Indent(2)

	out, err := doc.WriteToString()
	if err != nil {
		return "", errors.Wrap(err, "serializing wix tree")
	}
	return out, nil
}
