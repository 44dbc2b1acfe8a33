// Package diskarc implements the DiskArc node tree (spec.md §4.4): the
// mutation hierarchy of physical streams mirroring a host file's nested
// archives and disk images, plus the upward commit propagation that keeps
// the host file in sync after a leaf mutation.
package diskarc

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	arcfs "github.com/retropack/arcengine/fs"
)

// NodeKind distinguishes the three concrete node variants spec.md §3 names.
type NodeKind int

// Node kinds.
const (
	KindHostFile NodeKind = iota
	KindArchive
	KindDiskImage
)

func (k NodeKind) String() string {
	switch k {
	case KindHostFile:
		return "host-file"
	case KindArchive:
		return "archive"
	case KindDiskImage:
		return "disk-image"
	default:
		return "unknown-node-kind"
	}
}

// DiskArcNode is one node of the mutation tree. It owns exactly one
// underlying stream (spec.md §3's invariant): node_stream here is a
// generic io.ReadWriteSeeker for archive/disk-image nodes (reused as a
// PartSource during commit propagation), or the host *os.File for the
// root.
type DiskArcNode struct {
	kind NodeKind

	parent        *DiskArcNode
	children      []*DiskArcNode
	entryInParent arcfs.EntryRef // nil for the host root

	hostFile *os.File // valid only for KindHostFile
	hostPath string   // valid only for KindHostFile

	stream    io.ReadWriteSeeker // valid for KindArchive/KindDiskImage
	archive   arcfs.Archive      // valid only for KindArchive
	diskImage arcfs.DiskImage    // valid only for KindDiskImage

	closed bool
}

// NewHostRoot wraps an already-open host file as the tree's root node.
func NewHostRoot(path string, f *os.File) *DiskArcNode {
	return &DiskArcNode{kind: KindHostFile, hostFile: f, hostPath: path}
}

// NewArchiveNode creates a child node wrapping archive, discovered inside
// parent at entryInParent, backed by stream.
func NewArchiveNode(parent *DiskArcNode, entryInParent arcfs.EntryRef, archive arcfs.Archive, stream io.ReadWriteSeeker) *DiskArcNode {
	n := &DiskArcNode{kind: KindArchive, parent: parent, entryInParent: entryInParent, archive: archive, stream: stream}
	parent.children = append(parent.children, n)
	return n
}

// NewDiskImageNode creates a child node wrapping a disk image, discovered
// inside parent at entryInParent, backed by stream.
func NewDiskImageNode(parent *DiskArcNode, entryInParent arcfs.EntryRef, di arcfs.DiskImage, stream io.ReadWriteSeeker) *DiskArcNode {
	n := &DiskArcNode{kind: KindDiskImage, parent: parent, entryInParent: entryInParent, diskImage: di, stream: stream}
	parent.children = append(parent.children, n)
	return n
}

// Kind reports which of the three node variants n is.
func (n *DiskArcNode) Kind() NodeKind { return n.kind }

// Parent returns n's parent, or nil at the host root.
func (n *DiskArcNode) Parent() *DiskArcNode { return n.parent }

// Children returns n's current children, discovery order.
func (n *DiskArcNode) Children() []*DiskArcNode { return n.children }

// EntryInParent is the entry that identified n inside its parent
// container, or nil at the host root.
func (n *DiskArcNode) EntryInParent() arcfs.EntryRef { return n.entryInParent }

// Archive returns n's wrapped Archive, or nil if n is not KindArchive.
func (n *DiskArcNode) Archive() arcfs.Archive { return n.archive }

// DiskImage returns n's wrapped DiskImage, or nil if n is not KindDiskImage.
func (n *DiskArcNode) DiskImage() arcfs.DiskImage { return n.diskImage }

// IsClosed reports whether Close has already run on n.
func (n *DiskArcNode) IsClosed() bool { return n.closed }

// String implements fmt.Stringer for log output.
func (n *DiskArcNode) String() string {
	if n.parent == nil {
		return fmt.Sprintf("host-root(%s)", n.hostPath)
	}
	return n.kind.String()
}

// Reprocess closes all of n's children and clears them, for a GUI rebuild
// of a subtree after a sector edit (spec.md §4.5). Discovery code is
// expected to re-enter and repopulate n.children afterward using the
// retained order hint.
func (n *DiskArcNode) Reprocess(ctx context.Context) error {
	for len(n.children) > 0 {
		c := n.children[len(n.children)-1]
		if err := c.Reprocess(ctx); err != nil {
			return err
		}
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes n's own stream. Per spec.md §3's invariant, a node's
// children must already be closed; Close refuses otherwise rather than
// silently orphaning them.
func (n *DiskArcNode) Close() error {
	if n.closed {
		return nil
	}
	for _, c := range n.children {
		if !c.closed {
			return errors.Errorf("diskarc: cannot close %v with open child %v", n, c)
		}
	}
	var err error
	switch n.kind {
	case KindHostFile:
		err = n.hostFile.Close()
	case KindDiskImage:
		err = n.diskImage.Flush(context.Background())
	}
	if closer, ok := n.stream.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	n.closed = true
	if n.parent != nil {
		n.parent.removeChild(n)
	}
	arcfs.Debugf(n, "closed")
	return err
}

func (n *DiskArcNode) removeChild(c *DiskArcNode) {
	for i, ch := range n.children {
		if ch == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}
