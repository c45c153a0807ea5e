/*
Package wix builds Windows installers with the wix toolset.

It has two halves. The first harvests a staging directory into an
in-memory tree of Directory and Component nodes, the part of the
installer markup that mirrors the files being shipped. The second is a
thin wrapper around the wix compiler and linker.

Background and Theory Of Operations

wix's toolchain is based around compiling xml files into
installers. The basic steps of making a package:
  1. Lay out a staging directory exactly as it should be installed
  2. Harvest it into a Tree (see Harvest)
  3. Serialize the tree into the product's wxs document
  4. Use `candle` to compile the wxs into a wixobj
  5. Use `light` to link the wixobj into an msi

Harvesting tracks the directories currently open as a stack. Moving
from one directory with files to the next pops one directory per `..`
segment of the relative path between them and pushes one per named
segment. Directories without files are never a target themselves, but
are still opened when they lie on the path to one.

Two directories get well known ids instead of generated ones, because
shortcuts elsewhere in the markup refer to them by name (see
WithFixedDirectory). Everything else is numbered in discovery order:
dir0, dir1, ... for directories, cmp0, cmp1, ... for components.

Component GUIDs come from a GuidSource. RandomGuids reproduces the
historic behavior of a fresh GUID per build, which defeats upgrade
tracking; callers that ship upgrades should use a stable source.

References

  1. http://wixtoolset.org/
  2. https://docs.microsoft.com/en-us/windows/win32/msi/changing-the-component-code

*/
package wix
