package worktree

// ParentKind identifies the container kind a depth-policy decision is made
// on behalf of, per spec.md §4.5.
type ParentKind string

// Recognized parent kinds.
const (
	ParentZip        ParentKind = "zip"
	ParentGZip       ParentKind = "gzip"
	ParentNuFX       ParentKind = "nufx"
	ParentArchive    ParentKind = "archive"
	ParentFileSystem ParentKind = "filesystem"
	ParentMultiPart  ParentKind = "multipart"
)

// ChildKind identifies what kind of child a depth-policy decision is
// being made about.
type ChildKind string

// Recognized child kinds.
const (
	ChildAnyFile     ChildKind = "any-file"
	ChildFileArchive ChildKind = "file-archive"
	ChildDiskImage   ChildKind = "disk-image"
	ChildDiskPart    ChildKind = "disk-part"
	ChildEmbed       ChildKind = "embed"
)

// Policy is the pluggable depth predicate: whether to descend into a
// child of kind childKind found inside a container of kind parentKind.
type Policy func(parentKind ParentKind, childKind ChildKind) bool

// FullPolicy descends into everything; a reasonable default for a
// batch/headless caller that wants full nested discovery.
func FullPolicy(ParentKind, ChildKind) bool { return true }

// NonePolicy never descends, leaving the work tree containing only the
// root (spec.md §8's "Depth policy returning false uniformly" boundary
// case).
func NonePolicy(ParentKind, ChildKind) bool { return false }

// ShouldDescend performs spec.md §4.5's two-phase consultation: first
// with ChildAnyFile to decide whether to scan this container at all
// (avoiding an expensive decompression the caller has disabled), then
// with the specific child kind. Per SPEC_FULL.md's resolved ambiguity,
// a false AnyFile answer means "don't open the stream," not "hide the
// entry" — callers must still create a WorkTreeNode for the file, marked
// StatusUnknown, and simply skip calling ShouldDescend a second time for
// it.
func ShouldDescend(policy Policy, parentKind ParentKind, childKind ChildKind) bool {
	if policy == nil {
		policy = FullPolicy
	}
	if !policy(parentKind, ChildAnyFile) {
		return false
	}
	return policy(parentKind, childKind)
}
