package text

// Group is a maximal run of consecutive operations sharing the same kind
type Group struct {
	Kind       OpKind
	Operations []Operation
}

// GroupDiffLines collapses consecutive same-kind operations into groups for
// display chunking. Flattening the groups in order gives back diff, no group is
// empty and adjacent groups never share a kind.
func GroupDiffLines(diff []Operation) []Group {
	var groups []Group
	var currentGroup *Group

	for _, op := range diff {
		if currentGroup == nil || currentGroup.Kind != op.Kind {
			// Flush current group and start new
			if currentGroup != nil {
				groups = append(groups, *currentGroup)
			}
			currentGroup = &Group{Kind: op.Kind, Operations: []Operation{op}}
		} else {
			currentGroup.Operations = append(currentGroup.Operations, op)
		}
	}

	// Flush final group
	if currentGroup != nil {
		groups = append(groups, *currentGroup)
	}

	return groups
}
