package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/familyfeed/internal/auth"
	"github.com/dukerupert/familyfeed/internal/model"
	"github.com/dukerupert/familyfeed/internal/roster"
)

type FamilyMemberHandler struct {
	dir           *roster.Directory
	maxAssetBytes int64
	logger        *slog.Logger
}

func NewFamilyMemberHandler(dir *roster.Directory, maxAssetBytes int, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{dir: dir, maxAssetBytes: int64(maxAssetBytes), logger: logger}
}

type importantDateRequest struct {
	Date        string             `json:"date"`
	Description string             `json:"description"`
	Category    model.DateCategory `json:"category"`
	Reminder    bool               `json:"reminder"`
}

func (req importantDateRequest) toModel() (model.ImportantDate, error) {
	d, err := parseDate(req.Date)
	if err != nil {
		return model.ImportantDate{}, err
	}
	if req.Category == "" {
		req.Category = model.CategoryOther
	}
	if !req.Category.Valid() {
		return model.ImportantDate{}, errors.New("unknown category " + string(req.Category))
	}
	return model.ImportantDate{
		Date:        d,
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Reminder:    req.Reminder,
	}, nil
}

type familyMemberRequest struct {
	Name           string                  `json:"name"`
	Relationship   string                  `json:"relationship"`
	DateOfBirth    string                  `json:"date_of_birth"`
	BirthPlace     string                  `json:"birth_place"`
	ImportantDates *[]importantDateRequest `json:"important_dates"`
}

// apply copies the request onto m. Important dates are left alone when the
// request omits them.
func (req familyMemberRequest) apply(m *model.FamilyMember) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errors.New("name is required")
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		return errors.New("date_of_birth: " + err.Error())
	}
	m.Name = name
	m.Relationship = strings.TrimSpace(req.Relationship)
	m.DateOfBirth = dob
	m.BirthPlace = strings.TrimSpace(req.BirthPlace)
	if req.ImportantDates != nil {
		dates := make([]model.ImportantDate, 0, len(*req.ImportantDates))
		for _, dr := range *req.ImportantDates {
			d, err := dr.toModel()
			if err != nil {
				return errors.New("important_dates: " + err.Error())
			}
			dates = append(dates, d)
		}
		m.ImportantDates = dates
	}
	return nil
}

// synchronizer returns the caller's collection, loading it from the store on
// first use.
func (h *FamilyMemberHandler) synchronizer(w http.ResponseWriter, r *http.Request) (auth.AuthContext, *roster.Synchronizer, bool) {
	ac, ok := auth.FromContext(r.Context())
	if !ok || !ac.Authenticated() {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return ac, nil, false
	}
	s := h.dir.For(ac.UserID)
	if !s.Loaded() {
		if _, err := s.FetchAll(r.Context(), ac); err != nil {
			writeRosterError(w, h.logger, err)
			return ac, nil, false
		}
	}
	return ac, s, true
}

// member resolves the {id} path value against the caller's collection,
// refreshing it once if the id is not known locally.
func (h *FamilyMemberHandler) member(w http.ResponseWriter, r *http.Request) (auth.AuthContext, *roster.Synchronizer, model.FamilyMember, bool) {
	ac, s, ok := h.synchronizer(w, r)
	if !ok {
		return ac, nil, model.FamilyMember{}, false
	}
	id := r.PathValue("id")
	m, found := s.Member(id)
	if !found {
		if _, err := s.FetchAll(r.Context(), ac); err != nil {
			writeRosterError(w, h.logger, err)
			return ac, nil, model.FamilyMember{}, false
		}
		m, found = s.Member(id)
	}
	if !found {
		writeError(w, http.StatusNotFound, "family member not found")
		return ac, nil, model.FamilyMember{}, false
	}
	return ac, s, m, true
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	sort, err := roster.ParseSortOption(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	// Listing always refreshes from the store.
	members, err := h.dir.For(ac.UserID).FetchAll(r.Context(), ac)
	if err != nil {
		writeRosterError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, roster.View(members, r.URL.Query().Get("q"), sort))
}

func (h *FamilyMemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, _, m, ok := h.member(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req familyMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var draft model.FamilyMember
	if err := req.apply(&draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ac, s, ok := h.synchronizer(w, r)
	if !ok {
		return
	}
	created, err := s.Create(r.Context(), ac, draft)
	if err != nil {
		writeRosterError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req familyMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ac, s, m, ok := h.member(w, r)
	if !ok {
		return
	}
	if err := req.apply(&m); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.Update(r.Context(), ac, m)
	if err != nil {
		writeRosterError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, s, ok := h.synchronizer(w, r)
	if !ok {
		return
	}
	if err := s.Delete(r.Context(), ac, model.FamilyMember{ID: r.PathValue("id")}); err != nil {
		writeRosterError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readAsset reads the raw request body, stopping one byte past the limit so
// the synchronizer can reject an oversized payload itself.
func (h *FamilyMemberHandler) readAsset(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxAssetBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}
	return data, true
}

func (h *FamilyMemberHandler) UploadBirthChart(w http.ResponseWriter, r *http.Request) {
	h.birthChart(w, r, (*roster.Synchronizer).UploadAsset)
}

func (h *FamilyMemberHandler) ReplaceBirthChart(w http.ResponseWriter, r *http.Request) {
	h.birthChart(w, r, (*roster.Synchronizer).ReplaceAsset)
}

type assetOp func(*roster.Synchronizer, context.Context, auth.AuthContext, model.FamilyMember, []byte) (model.FamilyMember, error)

func (h *FamilyMemberHandler) birthChart(w http.ResponseWriter, r *http.Request, op assetOp) {
	ac, s, m, ok := h.member(w, r)
	if !ok {
		return
	}
	data, ok := h.readAsset(w, r)
	if !ok {
		return
	}
	updated, err := op(s, r.Context(), ac, m, data)
	if err != nil {
		writeRosterError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *FamilyMemberHandler) AddImportantDate(w http.ResponseWriter, r *http.Request) {
	h.importantDate(w, r, (*roster.Synchronizer).AddImportantDate)
}

func (h *FamilyMemberHandler) RemoveImportantDate(w http.ResponseWriter, r *http.Request) {
	h.importantDate(w, r, (*roster.Synchronizer).RemoveImportantDate)
}

type dateOp func(*roster.Synchronizer, context.Context, auth.AuthContext, model.FamilyMember, model.ImportantDate) (model.FamilyMember, error)

func (h *FamilyMemberHandler) importantDate(w http.ResponseWriter, r *http.Request, op dateOp) {
	var req importantDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	d, err := req.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ac, s, m, ok := h.member(w, r)
	if !ok {
		return
	}
	updated, err := op(s, r.Context(), ac, m, d)
	if err != nil {
		writeRosterError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *FamilyMemberHandler) MemberUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category, err := parseCategory(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, s, m, ok := h.member(w, r)
	if !ok {
		return
	}
	if category != "" {
		m.ImportantDates = m.DatesForCategory(category)
	}
	dates := s.UpcomingDates(m, days)
	if dates == nil {
		dates = []model.ImportantDate{}
	}
	writeJSON(w, http.StatusOK, dates)
}

func (h *FamilyMemberHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category, err := parseCategory(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, s, ok := h.synchronizer(w, r)
	if !ok {
		return
	}
	var upcoming []roster.MemberDates
	if category != "" {
		upcoming = s.UpcomingInCategory(days, category)
	} else {
		upcoming = s.Upcoming(days)
	}
	if upcoming == nil {
		upcoming = []roster.MemberDates{}
	}
	writeJSON(w, http.StatusOK, upcoming)
}
