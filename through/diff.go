package through

// Diff is the change set that moves an association from one target set to
// another.
type Diff[ID Identifier] struct {
	Added   []ID
	Removed []ID
}

// Empty reports whether applying d would change nothing.
func (d Diff[ID]) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// ComputeDiff returns desired − current as Added and current − desired as
// Removed. Both inputs are treated as sets: duplicates collapse and order
// does not affect membership. Removed keeps current's order, Added keeps
// desired's.
func ComputeDiff[ID Identifier](current, desired []ID) Diff[ID] {
	have := toSet(current)
	want := toSet(desired)

	var d Diff[ID]
	for _, id := range unique(current) {
		if _, ok := want[id]; !ok {
			d.Removed = append(d.Removed, id)
		}
	}
	for _, id := range unique(desired) {
		if _, ok := have[id]; !ok {
			d.Added = append(d.Added, id)
		}
	}
	return d
}

func toSet[ID Identifier](ids []ID) map[ID]struct{} {
	set := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func unique[ID Identifier](ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
