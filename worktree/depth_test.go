package worktree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFullPolicyDescendsEverything(t *testing.T) {
	require.True(t, ShouldDescend(FullPolicy, ParentZip, ChildDiskImage))
	require.True(t, ShouldDescend(nil, ParentZip, ChildDiskImage)) // nil defaults to FullPolicy
}

func TestNonePolicyNeverDescends(t *testing.T) {
	require.False(t, ShouldDescend(NonePolicy, ParentZip, ChildDiskImage))
	require.False(t, ShouldDescend(NonePolicy, ParentZip, ChildAnyFile))
}

func TestShouldDescendConsultsAnyFileFirst(t *testing.T) {
	policy := func(parentKind ParentKind, childKind ChildKind) bool {
		if childKind == ChildAnyFile {
			return false
		}
		return true
	}
	require.False(t, ShouldDescend(policy, ParentArchive, ChildDiskImage))
}

func TestShouldDescendHonorsSpecificChildKind(t *testing.T) {
	policy := func(parentKind ParentKind, childKind ChildKind) bool {
		if childKind == ChildAnyFile {
			return true
		}
		return childKind == ChildDiskImage
	}
	require.True(t, ShouldDescend(policy, ParentArchive, ChildDiskImage))
	require.False(t, ShouldDescend(policy, ParentArchive, ChildEmbed))
}
