package roster

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/familyfeed/internal/model"
)

func names(members []model.FamilyMember) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func member(name, relationship string, born time.Time) model.FamilyMember {
	return model.FamilyMember{Name: name, Relationship: relationship, DateOfBirth: born}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestView(t *testing.T) {
	members := []model.FamilyMember{
		member("Bob", "Father", day(1950, 3, 1)),
		member("alice", "Sister", day(1985, 6, 1)),
		member("Carol", "Aunt", day(1960, 1, 1)),
		member("dave", "Brother", day(1990, 9, 9)),
	}

	tests := []struct {
		name   string
		search string
		sort   SortOption
		want   []string
	}{
		{"name ignores case", "", SortName, []string{"alice", "Bob", "Carol", "dave"}},
		{"relationship", "", SortRelationship, []string{"Carol", "dave", "Bob", "alice"}},
		{"age youngest first", "", SortAge, []string{"dave", "alice", "Carol", "Bob"}},
		{"search by name", "AL", SortName, []string{"alice"}},
		{"search by relationship", "er", SortName, []string{"alice", "Bob", "dave"}},
		{"whitespace search still filters", "   ", SortName, []string{}},
		{"no match", "zzz", SortName, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(View(members, tt.search, tt.sort))
			if !equalStrings(got, tt.want) {
				t.Errorf("View(%q, %s) = %v, want %v", tt.search, tt.sort, got, tt.want)
			}
		})
	}
}

func TestViewStableOnTies(t *testing.T) {
	members := []model.FamilyMember{
		{ID: "1", Name: "Sam", Relationship: "Cousin"},
		{ID: "2", Name: "sam", Relationship: "Cousin"},
		{ID: "3", Name: "SAM", Relationship: "Cousin"},
	}
	for _, sort := range []SortOption{SortName, SortRelationship, SortAge} {
		got := View(members, "", sort)
		for i, m := range got {
			if m.ID != members[i].ID {
				t.Errorf("sort %s reordered ties: %v", sort, names(got))
				break
			}
		}
	}
}

func TestViewDoesNotModifyInput(t *testing.T) {
	members := []model.FamilyMember{member("Zed", "", time.Time{}), member("Amy", "", time.Time{})}
	View(members, "", SortName)
	if members[0].Name != "Zed" {
		t.Error("input slice was reordered")
	}
}

func TestParseSortOption(t *testing.T) {
	tests := []struct {
		in      string
		want    SortOption
		wantErr bool
	}{
		{"", SortName, false},
		{"name", SortName, false},
		{"Relationship", SortRelationship, false},
		{"age", SortAge, false},
		{"date_of_birth", SortAge, false},
		{"height", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSortOption(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSortOption(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSortOption(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUpcomingDates(t *testing.T) {
	m := model.FamilyMember{
		Name: "Ann",
		ImportantDates: []model.ImportantDate{
			{Date: day(2024, 3, 1), Description: "Spring"},
			{Date: day(2024, 1, 15), Description: "Party"},
			{Date: day(2023, 12, 31), Description: "New Year's Eve"},
		},
	}
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	got := UpcomingDates(m, 30, now)
	if len(got) != 1 || !got[0].Date.Equal(day(2024, 1, 15)) {
		t.Fatalf("UpcomingDates = %+v, want only 2024-01-15", got)
	}
}

func TestUpcomingDatesBoundaries(t *testing.T) {
	now := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	m := model.FamilyMember{ImportantDates: []model.ImportantDate{
		{Date: day(2024, 1, 31), Description: "last day"},
		{Date: day(2024, 1, 1), Description: "today"},
		{Date: day(2024, 2, 1), Description: "too late"},
	}}

	got := UpcomingDates(m, 30, now)
	if len(got) != 2 {
		t.Fatalf("got %d dates, want 2: %+v", len(got), got)
	}
	if got[0].Description != "today" || got[1].Description != "last day" {
		t.Errorf("order = %q, %q", got[0].Description, got[1].Description)
	}
}

func TestUpcomingAcrossMembers(t *testing.T) {
	now := day(2024, 1, 1)
	members := []model.FamilyMember{
		{Name: "Ann", ImportantDates: []model.ImportantDate{{Date: day(2024, 1, 10), Description: "a"}}},
		{Name: "Ben"},
		{Name: "Cat", ImportantDates: []model.ImportantDate{{Date: day(2025, 1, 10), Description: "c"}}},
	}
	got := Upcoming(members, DefaultUpcomingDays, now)
	if len(got) != 1 || got[0].Member.Name != "Ann" {
		t.Errorf("Upcoming = %+v, want only Ann", got)
	}
}

func TestSynchronizerUpcomingUsesClock(t *testing.T) {
	records := newFakeRecords()
	s := newTestSync(records, nil)
	s.now = func() time.Time { return day(2024, 6, 1) }

	rec := ownedBy(alice, "Ann", "Mother")
	rec.ImportantDates = []model.ImportantDate{{Date: day(2024, 6, 5), Description: "Anniversary", Category: model.CategoryAnniversary}}
	if _, err := s.Create(context.Background(), alice, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got := s.Upcoming(7)
	if len(got) != 1 || len(got[0].Dates) != 1 {
		t.Fatalf("Upcoming = %+v", got)
	}
	if dates := s.UpcomingDates(got[0].Member, 2); len(dates) != 0 {
		t.Errorf("2-day window should exclude 2024-06-05, got %+v", dates)
	}
}

func TestSynchronizerUpcomingInCategory(t *testing.T) {
	s := newTestSync(newFakeRecords(), nil)
	s.now = func() time.Time { return day(2024, 6, 1) }

	ann := ownedBy(alice, "Ann", "Mother")
	ann.ImportantDates = []model.ImportantDate{
		{Date: day(2024, 6, 3), Description: "Graduation", Category: model.CategoryGraduation},
		{Date: day(2024, 6, 5), Description: "Anniversary", Category: model.CategoryAnniversary},
	}
	ben := ownedBy(alice, "Ben", "Brother")
	ben.ImportantDates = []model.ImportantDate{{Date: day(2024, 6, 4), Description: "Party", Category: model.CategoryOther}}
	for _, m := range []model.FamilyMember{ann, ben} {
		if _, err := s.Create(context.Background(), alice, m); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got := s.UpcomingInCategory(7, model.CategoryAnniversary)
	if len(got) != 1 || got[0].Member.Name != "Ann" {
		t.Fatalf("UpcomingInCategory = %+v, want only Ann", got)
	}
	if len(got[0].Dates) != 1 || got[0].Dates[0].Description != "Anniversary" {
		t.Errorf("dates = %+v", got[0].Dates)
	}
	if got := s.UpcomingInCategory(7, model.CategoryMemorial); len(got) != 0 {
		t.Errorf("memorial = %+v, want none", got)
	}
}
