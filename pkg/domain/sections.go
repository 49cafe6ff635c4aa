package domain

// SectionList is the ordered, append-only list of top-level sections produced
// while assembling one analysis document.
type SectionList struct {
	sections []*Section
}

// NewSectionList returns an empty list.
func NewSectionList() *SectionList {
	return &SectionList{}
}

// Find returns the section keyed by name.
func (l *SectionList) Find(name string) (*Section, bool) {
	for _, s := range l.sections {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// FindOrCreate returns the section keyed by proto.Name, appending a copy of
// proto when none exists yet. The boolean reports whether it was created.
func (l *SectionList) FindOrCreate(proto Section) (*Section, bool) {
	if s, ok := l.Find(proto.Name); ok {
		return s, false
	}
	s := proto
	if s.Contents == nil {
		s.Contents = []ContentItem{}
	}
	l.sections = append(l.sections, &s)
	return &s, true
}

// Sections returns the sections in creation order.
func (l *SectionList) Sections() []*Section {
	return append([]*Section(nil), l.sections...)
}

// Len returns the number of sections.
func (l *SectionList) Len() int {
	return len(l.sections)
}

// SectionCheckpoint is an opaque snapshot of a SectionList.
type SectionCheckpoint struct {
	sections []*Section
}

// Checkpoint captures a deep copy of the current sections.
func (l *SectionList) Checkpoint() SectionCheckpoint {
	cp := SectionCheckpoint{sections: make([]*Section, len(l.sections))}
	for i, s := range l.sections {
		cp.sections[i] = s.Clone()
	}
	return cp
}

// Restore replaces the list contents with a checkpoint taken earlier.
func (l *SectionList) Restore(cp SectionCheckpoint) {
	l.sections = make([]*Section, len(cp.sections))
	for i, s := range cp.sections {
		l.sections[i] = s.Clone()
	}
}
