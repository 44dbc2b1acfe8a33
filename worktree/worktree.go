// Package worktree implements the Work Tree (spec.md §4.5): the
// presentation hierarchy of logical containers — archives, disk images,
// filesystems, partitions — discovered on demand as a parallel structure
// alongside the diskarc mutation tree.
package worktree

import (
	"context"
	"fmt"

	"github.com/retropack/arcengine/diskarc"
	arcfs "github.com/retropack/arcengine/fs"
)

// Status is a WorkTreeNode's post-open classification, derived from the
// wrapped library object's dubious flag and warning/error counts.
type Status int

// Recognized statuses.
const (
	StatusUnknown Status = iota
	StatusOK
	StatusDubious
	StatusWarning
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDubious:
		return "dubious"
	case StatusWarning:
		return "warning"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// DAObject is the tagged union spec.md §3 calls da_object: exactly one of
// an Archive, DiskImage, MultiPart, or FileSystem wrapper, dispatched via
// a type switch rather than a field-per-kind struct (per spec.md §9's
// polymorphism design note).
type DAObject interface{ isDAObject() }

// ArchiveObject wraps an Archive as a DAObject.
type ArchiveObject struct{ Archive arcfs.Archive }

func (ArchiveObject) isDAObject() {}

// DiskImageObject wraps a DiskImage as a DAObject.
type DiskImageObject struct{ DiskImage arcfs.DiskImage }

func (DiskImageObject) isDAObject() {}

// MultiPartObject wraps a MultiPart as a DAObject.
type MultiPartObject struct{ MultiPart arcfs.MultiPart }

func (MultiPartObject) isDAObject() {}

// FileSystemObject wraps a FileSystem as a DAObject.
type FileSystemObject struct{ FileSystem arcfs.FileSystem }

func (FileSystemObject) isDAObject() {}

// WorkTreeNode is one node of the presentation tree.
type WorkTreeNode struct {
	Label      string
	TypeString string
	Status     Status
	ReadOnly   bool
	OrderHint  string

	DAObject DAObject
	// DANode is present exactly when this node corresponds to a physical
	// container (an Archive or DiskImage with its own owned stream);
	// nodes for a bare FileSystem or MultiPart leave it nil and reach
	// their container through NearestDANode.
	DANode *diskarc.DiskArcNode

	Parent   *WorkTreeNode
	Children []*WorkTreeNode

	Entry arcfs.EntryRef // the entry this node was discovered at, nil at root
}

// NewNode constructs a node and, if parent is non-nil, links it as a
// child.
func NewNode(label, typeString string, obj DAObject, daNode *diskarc.DiskArcNode, parent *WorkTreeNode) *WorkTreeNode {
	n := &WorkTreeNode{
		Label:      label,
		TypeString: typeString,
		Status:     StatusUnknown,
		DAObject:   obj,
		DANode:     daNode,
		Parent:     parent,
	}
	if parent != nil {
		parent.Children = append(parent.Children, n)
	}
	return n
}

// String implements fmt.Stringer for log output.
func (n *WorkTreeNode) String() string {
	return fmt.Sprintf("%s(%s)", n.Label, n.TypeString)
}

// NearestDANode walks toward the root returning the first node (including
// n itself) whose DANode is set, preserving spec.md §3's invariant that
// one always exists before the root.
func (n *WorkTreeNode) NearestDANode() *diskarc.DiskArcNode {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.DANode != nil {
			return cur.DANode
		}
	}
	return nil
}

// Reprocess rebuilds n's subtree after a sector edit: close every child
// DiskArcNode under n's DiskImage, then re-run AnalyzeDisk with the
// retained OrderHint, then re-enter discovery via rediscover.
func Reprocess(ctx context.Context, n *WorkTreeNode, rediscover func(ctx context.Context, n *WorkTreeNode) error) error {
	daNode := n.NearestDANode()
	if daNode == nil || daNode.Kind() != diskarc.KindDiskImage {
		return fmt.Errorf("worktree: reprocess requires a disk-image node, got %v", n)
	}
	if err := daNode.Reprocess(ctx); err != nil {
		return err
	}
	n.Children = nil
	if _, err := daNode.DiskImage().AnalyzeDisk(ctx, n.OrderHint, DepthHintDefault); err != nil {
		return err
	}
	return rediscover(ctx, n)
}

// DepthHintDefault is the depth hint AnalyzeDisk receives on a plain
// (re)discovery pass.
const DepthHintDefault arcfs.DepthHint = 0
