// Package selection keeps track of which trackers a report covers.
package selection

import (
	"sort"

	"fleet-report-builder/internal/model"
)

// Filter decides whether a tracker may be selected.
type Filter func(model.Tracker) bool

// All admits every tracker.
func All(model.Tracker) bool { return true }

// VisibleTrackers returns the trackers admitted by filter, in input order.
func VisibleTrackers(all []model.Tracker, filter Filter) []model.Tracker {
	if filter == nil {
		filter = All
	}
	visible := make([]model.Tracker, 0, len(all))
	for _, t := range all {
		if filter(t) {
			visible = append(visible, t)
		}
	}
	return visible
}

// ListedTracker is a tracker as rendered in the object list.
type ListedTracker struct {
	model.Tracker
	Selectable bool `json:"selectable"`
	Selected   bool `json:"selected"`
}

// ListedGroup is a group section of the object list.
type ListedGroup struct {
	Group         model.TrackerGroup `json:"group"`
	FullySelected bool               `json:"fullySelected"`
	Trackers      []ListedTracker    `json:"trackers"`
}

// Model is the selection state over the directory snapshot. It is not safe
// for concurrent use; its owner serializes access.
type Model struct {
	all      []model.Tracker
	groups   []model.TrackerGroup
	known    map[int64]struct{}
	filter   Filter
	visible  []model.Tracker
	groupOf  map[int64]int64
	selected map[int64]struct{}
}

// New returns an empty model using filter for selectability.
func New(filter Filter) *Model {
	if filter == nil {
		filter = All
	}
	m := &Model{
		filter:   filter,
		selected: make(map[int64]struct{}),
	}
	m.SetDirectory(nil, nil)
	return m
}

// SetDirectory replaces the tracker and group snapshot. Selected ids that
// are no longer visible are dropped.
func (m *Model) SetDirectory(trackers []model.Tracker, groups []model.TrackerGroup) {
	m.all = append([]model.Tracker(nil), trackers...)
	m.groups = MergeGroups(groups)
	m.known = make(map[int64]struct{}, len(m.groups))
	for _, g := range m.groups {
		m.known[g.ID] = struct{}{}
	}
	m.refilter()
}

// SetFilter changes the selectability rule and prunes the selection.
func (m *Model) SetFilter(filter Filter) {
	if filter == nil {
		filter = All
	}
	m.filter = filter
	m.refilter()
}

func (m *Model) refilter() {
	m.visible = VisibleTrackers(m.all, m.filter)
	m.groupOf = make(map[int64]int64, len(m.visible))
	for _, t := range m.visible {
		m.groupOf[t.ID] = effectiveGroup(t, m.known)
	}
	for id := range m.selected {
		if _, ok := m.groupOf[id]; !ok {
			delete(m.selected, id)
		}
	}
}

// Visible returns the selectable trackers.
func (m *Model) Visible() []model.Tracker {
	return append([]model.Tracker(nil), m.visible...)
}

// Groups returns the merged group list, main group first.
func (m *Model) Groups() []model.TrackerGroup {
	return append([]model.TrackerGroup(nil), m.groups...)
}

// GroupedView groups the selectable trackers.
func (m *Model) GroupedView() []GroupView {
	return GroupedView(m.visible, m.groups)
}

// Listing groups every tracker, marking the ones the filter rejects as not
// selectable. Groups with no selectable tracker are omitted.
func (m *Model) Listing() []ListedGroup {
	views := GroupedView(m.all, m.groups)
	result := make([]ListedGroup, 0, len(views))
	for _, v := range views {
		entry := ListedGroup{
			Group:         v.Group,
			FullySelected: m.IsGroupFullySelected(v.Group.ID),
			Trackers:      make([]ListedTracker, 0, len(v.Trackers)),
		}
		selectable := 0
		for _, t := range v.Trackers {
			_, ok := m.groupOf[t.ID]
			if ok {
				selectable++
			}
			entry.Trackers = append(entry.Trackers, ListedTracker{
				Tracker:    t,
				Selectable: ok,
				Selected:   m.IsSelected(t.ID),
			})
		}
		if selectable == 0 {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// SelectAll selects every visible tracker, or clears the selection.
func (m *Model) SelectAll(selected bool) {
	if !selected {
		m.selected = make(map[int64]struct{})
		return
	}
	for id := range m.groupOf {
		m.selected[id] = struct{}{}
	}
}

// SelectGroup adds or removes the visible trackers of one group, leaving
// other groups untouched.
func (m *Model) SelectGroup(groupID int64, selected bool) {
	for id, g := range m.groupOf {
		if g != groupID {
			continue
		}
		if selected {
			m.selected[id] = struct{}{}
		} else {
			delete(m.selected, id)
		}
	}
}

// Toggle selects or deselects a single tracker. It reports false when the
// tracker is not visible, in which case nothing changes.
func (m *Model) Toggle(trackerID int64, selected bool) bool {
	if _, ok := m.groupOf[trackerID]; !ok {
		return false
	}
	if selected {
		m.selected[trackerID] = struct{}{}
	} else {
		delete(m.selected, trackerID)
	}
	return true
}

// IsSelected reports whether the tracker is selected.
func (m *Model) IsSelected(trackerID int64) bool {
	_, ok := m.selected[trackerID]
	return ok
}

// IsGroupFullySelected is true when the group has visible trackers and all
// of them are selected.
func (m *Model) IsGroupFullySelected(groupID int64) bool {
	count := 0
	for id, g := range m.groupOf {
		if g != groupID {
			continue
		}
		count++
		if _, ok := m.selected[id]; !ok {
			return false
		}
	}
	return count > 0
}

// IsAllSelected is true when every visible tracker is selected and at least
// one is visible.
func (m *Model) IsAllSelected() bool {
	return len(m.groupOf) > 0 && len(m.selected) == len(m.groupOf)
}

// Selected returns a sorted copy of the selected ids.
func (m *Model) Selected() []int64 {
	ids := make([]int64, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len is the number of selected trackers.
func (m *Model) Len() int { return len(m.selected) }
