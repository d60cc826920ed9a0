package preservation

import "sort"

// Plan is the work one attempt performs on stored binaries.
type Plan struct {
	ToUpload []string
	ToDelete []string
}

// Diff compares the desired binary ids with the stored ones. ToUpload keeps
// the order of desired and, when force is set, contains every desired id.
// ToDelete is computed the same way regardless of force and is sorted.
func Diff(desired, stored []string, force bool) Plan {
	storedSet := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		storedSet[id] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))

	var plan Plan
	for _, id := range desired {
		if _, dup := desiredSet[id]; dup {
			continue
		}
		desiredSet[id] = struct{}{}
		if _, ok := storedSet[id]; ok && !force {
			continue
		}
		plan.ToUpload = append(plan.ToUpload, id)
	}

	for id := range storedSet {
		if _, ok := desiredSet[id]; !ok {
			plan.ToDelete = append(plan.ToDelete, id)
		}
	}
	sort.Strings(plan.ToDelete)
	return plan
}

// Empty reports whether the plan touches no binaries.
func (p Plan) Empty() bool {
	return len(p.ToUpload) == 0 && len(p.ToDelete) == 0
}
