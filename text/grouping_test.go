package text

import (
	"testing"

	"taleweaver/assert"
)

func flatten(groups []Group) []Operation {
	var ops []Operation
	for _, g := range groups {
		ops = append(ops, g.Operations...)
	}
	return ops
}

func TestGroupDiffLines_Empty(t *testing.T) {
	assert.Len(t, 0, GroupDiffLines(nil), "groups for nil diff")
	assert.Len(t, 0, GroupDiffLines([]Operation{}), "groups for empty diff")
}

func TestGroupDiffLines_Runs(t *testing.T) {
	diff := []Operation{
		unchanged("a", 1, 1),
		unchanged("b", 2, 2),
		removed("c", 3),
		removed("d", 4),
		added("C", 3),
		unchanged("e", 5, 4),
	}

	groups := GroupDiffLines(diff)

	assert.Len(t, 4, groups, "number of groups")
	assert.Equal(t, OpUnchanged, groups[0].Kind, "group 0 kind")
	assert.Len(t, 2, groups[0].Operations, "group 0 size")
	assert.Equal(t, OpRemoved, groups[1].Kind, "group 1 kind")
	assert.Len(t, 2, groups[1].Operations, "group 1 size")
	assert.Equal(t, OpAdded, groups[2].Kind, "group 2 kind")
	assert.Len(t, 1, groups[2].Operations, "group 2 size")
	assert.Equal(t, OpUnchanged, groups[3].Kind, "group 3 kind")
	assert.Equal(t, "e", groups[3].Operations[0].Content, "group 3 content")
}

func TestGroupDiffLines_SingleKind(t *testing.T) {
	groups := GroupDiffLines(ComputeLineDiff("a\nb\nc", "a\nb\nc"))

	assert.Len(t, 1, groups, "number of groups")
	assert.Equal(t, OpUnchanged, groups[0].Kind, "kind")
	assert.Len(t, 3, groups[0].Operations, "size")
}

func TestGroupDiffLines_Properties(t *testing.T) {
	pairs := [][2]string{
		{"", ""},
		{"a", "a\nb"},
		{"a\nb", "c\nd"},
		{"a\nx\nb", "a\nb"},
		{"one\ntwo\nthree\nfour\nfive", "one\n2\nthree\nfour\n5\nsix"},
		{"a\n1\n2\n3\n4\nb", "a\nb"},
	}

	for _, p := range pairs {
		diff := ComputeLineDiff(p[0], p[1])
		groups := GroupDiffLines(diff)

		assertOpsEqual(t, diff, flatten(groups))
		for i, g := range groups {
			assert.True(t, len(g.Operations) > 0, "group not empty")
			for _, op := range g.Operations {
				assert.Equal(t, g.Kind, op.Kind, "operation kind matches group")
			}
			if i > 0 {
				assert.NotEqual(t, groups[i-1].Kind, g.Kind, "adjacent groups differ")
			}
		}
	}
}
