package domain

// Site is an excavation or sampling location.
type Site struct {
	ID           int           `json:"site_id"`
	Name         string        `json:"site_name"`
	SampleGroups []SampleGroup `json:"sample_groups,omitempty"`
}

// SampleGroup groups physical samples collected with one sampling method.
type SampleGroup struct {
	ID              int              `json:"sample_group_id"`
	Name            string           `json:"sample_group_name"`
	MethodID        int              `json:"method_id,omitempty"`
	PhysicalSamples []PhysicalSample `json:"physical_samples,omitempty"`
}

// PhysicalSample is a single sample taken in the field.
type PhysicalSample struct {
	ID           int    `json:"physical_sample_id"`
	Name         string `json:"sample_name"`
	SampleTypeID int    `json:"sample_type_id,omitempty"`
}

// FindPhysicalSample returns the sample with the given id and its group.
func (s Site) FindPhysicalSample(id int) (PhysicalSample, SampleGroup, bool) {
	for _, g := range s.SampleGroups {
		for _, ps := range g.PhysicalSamples {
			if ps.ID == id {
				return ps, g, true
			}
		}
	}
	return PhysicalSample{}, SampleGroup{}, false
}

// FindSampleGroup returns the sample group with the given id.
func (s Site) FindSampleGroup(id int) (SampleGroup, bool) {
	for _, g := range s.SampleGroups {
		if g.ID == id {
			return g, true
		}
	}
	return SampleGroup{}, false
}

// PhysicalSampleIDs lists every sample id of the site in group order.
func (s Site) PhysicalSampleIDs() []int {
	var ids []int
	for _, g := range s.SampleGroups {
		for _, ps := range g.PhysicalSamples {
			ids = append(ids, ps.ID)
		}
	}
	return ids
}
