package protocol

// SidebarState is the shared collapse and expansion state of the navigation
// sidebar. ExpandedSections has set semantics: order carries no meaning.
type SidebarState struct {
	Collapsed        bool     `json:"collapsed"`
	ExpandedSections []string `json:"expandedSections"`
}

// DefaultSidebarState returns an expanded sidebar with no open sections
func DefaultSidebarState() SidebarState {
	return SidebarState{ExpandedSections: []string{}}
}

// Clone returns a deep copy with duplicates removed and a non-nil section list
func (s SidebarState) Clone() SidebarState {
	out := SidebarState{Collapsed: s.Collapsed, ExpandedSections: make([]string, 0, len(s.ExpandedSections))}
	seen := make(map[string]struct{}, len(s.ExpandedSections))
	for _, id := range s.ExpandedSections {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.ExpandedSections = append(out.ExpandedSections, id)
	}
	return out
}

// IsExpanded reports whether the section is open
func (s SidebarState) IsExpanded(sectionID string) bool {
	for _, id := range s.ExpandedSections {
		if id == sectionID {
			return true
		}
	}
	return false
}

// ToggleSection flips membership of sectionID: present is removed, absent is appended
func (s SidebarState) ToggleSection(sectionID string) SidebarState {
	out := s.Clone()
	if !out.IsExpanded(sectionID) {
		out.ExpandedSections = append(out.ExpandedSections, sectionID)
		return out
	}
	kept := out.ExpandedSections[:0]
	for _, id := range out.ExpandedSections {
		if id != sectionID {
			kept = append(kept, id)
		}
	}
	out.ExpandedSections = kept
	return out
}

// Expand returns the union of the current sections and ids
func (s SidebarState) Expand(ids ...string) SidebarState {
	out := s.Clone()
	for _, id := range ids {
		if !out.IsExpanded(id) {
			out.ExpandedSections = append(out.ExpandedSections, id)
		}
	}
	return out
}

// Equal compares collapse state and section membership
func (s SidebarState) Equal(other SidebarState) bool {
	if s.Collapsed != other.Collapsed {
		return false
	}
	a, b := s.Clone(), other.Clone()
	if len(a.ExpandedSections) != len(b.ExpandedSections) {
		return false
	}
	for _, id := range a.ExpandedSections {
		if !b.IsExpanded(id) {
			return false
		}
	}
	return true
}
