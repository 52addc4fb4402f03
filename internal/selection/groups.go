package selection

import "fleet-report-builder/internal/model"

// GroupView is one group with the trackers shown under it.
type GroupView struct {
	Group    model.TrackerGroup `json:"group"`
	Trackers []model.Tracker    `json:"trackers"`
}

// MergeGroups returns groups with the synthetic main group first, exactly
// once. A backend-supplied id 0 group keeps its title and color but is moved
// to the front; later duplicates of id 0 are dropped.
func MergeGroups(groups []model.TrackerGroup) []model.TrackerGroup {
	main := model.MainGroup()
	rest := make([]model.TrackerGroup, 0, len(groups))
	seenMain := false
	for _, g := range groups {
		if g.ID == model.MainGroupID {
			if !seenMain {
				seenMain = true
				if g.Title != "" {
					main.Title = g.Title
				}
				main.Color = g.Color
			}
			continue
		}
		rest = append(rest, g)
	}
	return append([]model.TrackerGroup{main}, rest...)
}

// GroupedView buckets trackers by group, main group first and backend order
// after it. Groups without trackers are omitted. Trackers pointing at an
// unknown group are shown under the main group.
func GroupedView(trackers []model.Tracker, groups []model.TrackerGroup) []GroupView {
	merged := MergeGroups(groups)
	index := make(map[int64]int, len(merged))
	for i, g := range merged {
		index[g.ID] = i
	}

	buckets := make([][]model.Tracker, len(merged))
	for _, t := range trackers {
		pos, ok := index[t.GroupID]
		if !ok {
			pos = index[model.MainGroupID]
		}
		buckets[pos] = append(buckets[pos], t)
	}

	result := make([]GroupView, 0, len(merged))
	for i, g := range merged {
		if len(buckets[i]) == 0 {
			continue
		}
		result = append(result, GroupView{Group: g, Trackers: buckets[i]})
	}
	return result
}

// effectiveGroup is the group a tracker is listed under given the known groups.
func effectiveGroup(t model.Tracker, known map[int64]struct{}) int64 {
	if _, ok := known[t.GroupID]; ok {
		return t.GroupID
	}
	return model.MainGroupID
}
