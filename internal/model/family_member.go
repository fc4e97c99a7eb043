package model

import "time"

type FamilyMember struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Relationship   string          `json:"relationship"`
	DateOfBirth    time.Time       `json:"date_of_birth"`
	BirthPlace     string          `json:"birth_place"`
	BirthChart     *string         `json:"birth_chart,omitempty"`
	OwnerID        string          `json:"owner_id"`
	ImportantDates []ImportantDate `json:"important_dates,omitempty"`
	ACL            ACL             `json:"acl"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no slices or pointers with m.
func (m FamilyMember) Clone() FamilyMember {
	c := m
	if m.BirthChart != nil {
		chart := *m.BirthChart
		c.BirthChart = &chart
	}
	if m.ImportantDates != nil {
		c.ImportantDates = append([]ImportantDate(nil), m.ImportantDates...)
	}
	c.ACL = m.ACL.Clone()
	return c
}

// AddImportantDate appends d. Duplicates are allowed.
func (m *FamilyMember) AddImportantDate(d ImportantDate) {
	m.ImportantDates = append(append([]ImportantDate(nil), m.ImportantDates...), d)
}

// RemoveImportantDate removes every entry with the same derived identity as d.
func (m *FamilyMember) RemoveImportantDate(d ImportantDate) {
	if m.ImportantDates == nil {
		return
	}
	kept := make([]ImportantDate, 0, len(m.ImportantDates))
	for _, existing := range m.ImportantDates {
		if !existing.SameAs(d) {
			kept = append(kept, existing)
		}
	}
	m.ImportantDates = kept
}

func (m FamilyMember) HasImportantDates() bool {
	return len(m.ImportantDates) > 0
}

// DatesForCategory returns the important dates tagged with c, in list order.
func (m FamilyMember) DatesForCategory(c DateCategory) []ImportantDate {
	var out []ImportantDate
	for _, d := range m.ImportantDates {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}
