package roster

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/familyfeed/internal/model"
)

type SortOption string

const (
	SortName         SortOption = "name"
	SortRelationship SortOption = "relationship"
	// SortAge orders by date of birth, youngest first.
	SortAge SortOption = "age"
)

// DefaultUpcomingDays is the window UpcomingDates uses when none is given.
const DefaultUpcomingDays = 30

// ParseSortOption accepts the option names case-insensitively. An empty
// string means SortName.
func ParseSortOption(s string) (SortOption, error) {
	switch SortOption(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortName:
		return SortName, nil
	case SortRelationship:
		return SortRelationship, nil
	case SortAge, "date_of_birth":
		return SortAge, nil
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// View filters members to those whose name or relationship contains search,
// ignoring case, and sorts the result. Text comparisons ignore case and equal
// keys keep their input order. members is not modified. Only an empty search
// disables filtering; whitespace is matched like any other text.
func View(members []model.FamilyMember, search string, sort SortOption) []model.FamilyMember {
	needle := strings.ToLower(search)
	out := make([]model.FamilyMember, 0, len(members))
	for _, m := range members {
		if needle == "" ||
			strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(strings.ToLower(m.Relationship), needle) {
			out = append(out, m)
		}
	}

	var cmp func(a, b model.FamilyMember) int
	switch sort {
	case SortRelationship:
		cmp = func(a, b model.FamilyMember) int {
			return strings.Compare(strings.ToLower(a.Relationship), strings.ToLower(b.Relationship))
		}
	case SortAge:
		cmp = func(a, b model.FamilyMember) int {
			return b.DateOfBirth.Compare(a.DateOfBirth)
		}
	default:
		cmp = func(a, b model.FamilyMember) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	}
	slices.SortStableFunc(out, cmp)
	return out
}

// civilDay drops the clock and zone from t, keeping the calendar date as seen
// in t's own location.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UpcomingDates returns m's important dates falling on a calendar day between
// now's day and withinDays days later, both ends included, earliest first.
func UpcomingDates(m model.FamilyMember, withinDays int, now time.Time) []model.ImportantDate {
	today := civilDay(now)
	end := today.AddDate(0, 0, withinDays)

	var out []model.ImportantDate
	for _, d := range m.ImportantDates {
		day := civilDay(d.Date)
		if day.Before(today) || day.After(end) {
			continue
		}
		out = append(out, d)
	}
	slices.SortStableFunc(out, func(a, b model.ImportantDate) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// MemberDates pairs a member with a subset of its important dates.
type MemberDates struct {
	Member model.FamilyMember   `json:"member"`
	Dates  []model.ImportantDate `json:"dates"`
}

// Upcoming runs UpcomingDates over members and keeps those with any match.
func Upcoming(members []model.FamilyMember, withinDays int, now time.Time) []MemberDates {
	var out []MemberDates
	for _, m := range members {
		if !m.HasImportantDates() {
			continue
		}
		if dates := UpcomingDates(m, withinDays, now); len(dates) > 0 {
			out = append(out, MemberDates{Member: m, Dates: dates})
		}
	}
	return out
}

// UpcomingDates evaluates today at call time.
func (s *Synchronizer) UpcomingDates(m model.FamilyMember, withinDays int) []model.ImportantDate {
	return UpcomingDates(m, withinDays, s.now())
}

// Upcoming covers the whole local collection.
func (s *Synchronizer) Upcoming(withinDays int) []MemberDates {
	return Upcoming(s.Members(), withinDays, s.now())
}

// UpcomingInCategory is Upcoming limited to dates tagged c. Each returned
// member carries only its dates in c.
func (s *Synchronizer) UpcomingInCategory(withinDays int, c model.DateCategory) []MemberDates {
	members := s.Members()
	for i := range members {
		members[i].ImportantDates = members[i].DatesForCategory(c)
	}
	return Upcoming(members, withinDays, s.now())
}
