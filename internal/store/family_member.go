package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/familyfeed/internal/model"
	"github.com/google/uuid"
)

// Filter selects family member records. Empty fields match everything.
type Filter struct {
	OwnerID string
	ID      string
}

// FamilyMemberStore is the system of record for family members.
type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

const familyMemberCols = `id, owner_id, name, relationship, date_of_birth, birth_place, birth_chart, important_dates, acl, created_at, updated_at`

func scanFamilyMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	var chart sql.NullString
	var dates, acl string

	err := scanner.Scan(
		&m.ID, &m.OwnerID, &m.Name, &m.Relationship, &m.DateOfBirth, &m.BirthPlace,
		&chart, &dates, &acl, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if chart.Valid {
		m.BirthChart = &chart.String
	}
	if err := json.Unmarshal([]byte(dates), &m.ImportantDates); err != nil {
		return nil, fmt.Errorf("decode important dates for %s: %w", m.ID, err)
	}
	if len(m.ImportantDates) == 0 {
		m.ImportantDates = nil
	}
	if err := json.Unmarshal([]byte(acl), &m.ACL); err != nil {
		return nil, fmt.Errorf("decode acl for %s: %w", m.ID, err)
	}
	return &m, nil
}

// Find returns the records matching f ordered by creation time.
func (s *FamilyMemberStore) Find(ctx context.Context, f Filter) ([]model.FamilyMember, error) {
	var where []string
	var args []any
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.ID != "" {
		where = append(where, "id = ?")
		args = append(args, f.ID)
	}

	query := `SELECT ` + familyMemberCols + ` FROM family_members`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanFamilyMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// Get returns the record with the given id, or nil if there is none.
func (s *FamilyMemberStore) Get(ctx context.Context, id string) (*model.FamilyMember, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+familyMemberCols+` FROM family_members WHERE id = ?`, id)
	m, err := scanFamilyMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return m, nil
}

// Save inserts m when it has no id, assigning a new one, and otherwise
// overwrites every column of the existing row. It returns the stored record.
func (s *FamilyMemberStore) Save(ctx context.Context, m *model.FamilyMember) (*model.FamilyMember, error) {
	if m.OwnerID == "" {
		return nil, fmt.Errorf("save family member: owner id is required")
	}

	dates := m.ImportantDates
	if dates == nil {
		dates = []model.ImportantDate{}
	}
	datesJSON, err := json.Marshal(dates)
	if err != nil {
		return nil, fmt.Errorf("encode important dates: %w", err)
	}
	aclJSON, err := json.Marshal(m.ACL)
	if err != nil {
		return nil, fmt.Errorf("encode acl: %w", err)
	}

	var chart sql.NullString
	if m.BirthChart != nil {
		chart = sql.NullString{String: *m.BirthChart, Valid: true}
	}
	now := time.Now().UTC()

	id := m.ID
	if id == "" {
		id = uuid.NewString()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO family_members (id, owner_id, name, relationship, date_of_birth, birth_place, birth_chart, important_dates, acl, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, m.OwnerID, m.Name, m.Relationship, m.DateOfBirth.UTC(), m.BirthPlace, chart, string(datesJSON), string(aclJSON), now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert family member: %w", err)
		}
		return s.Get(ctx, id)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE family_members
		 SET owner_id = ?, name = ?, relationship = ?, date_of_birth = ?, birth_place = ?, birth_chart = ?, important_dates = ?, acl = ?, updated_at = ?
		 WHERE id = ?`,
		m.OwnerID, m.Name, m.Relationship, m.DateOfBirth.UTC(), m.BirthPlace, chart, string(datesJSON), string(aclJSON), now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update family member %s: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *FamilyMemberStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM family_members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}
	return nil
}

// CountByOwner returns how many records ownerID owns.
func (s *FamilyMemberStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM family_members WHERE owner_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count family members: %w", err)
	}
	return count, nil
}
