package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/familyfeed/internal/model"
	"github.com/dukerupert/familyfeed/internal/roster"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRosterError maps a synchronizer failure to a status code. Remote
// failures are logged; their detail is not sent to the client.
func writeRosterError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var remote *roster.RemoteError
	switch {
	case errors.Is(err, roster.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, roster.ErrRecordNotIdentified):
		writeError(w, http.StatusBadRequest, "record has no id")
	case errors.Is(err, roster.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "family member not found")
	case errors.Is(err, roster.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "birth chart is too large")
	case errors.Is(err, roster.ErrEmptyPayload):
		writeError(w, http.StatusBadRequest, "birth chart is empty")
	case errors.Is(err, roster.ErrOperationTimedOut):
		logger.Warn("operation timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "operation timed out")
	case errors.As(err, &remote):
		logger.Error("remote store failure", "op", remote.Op, "error", remote.Err)
		writeError(w, http.StatusBadGateway, remote.Op+" failed")
	default:
		logger.Error("unexpected error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

// parseDays reads the days query parameter, defaulting to
// roster.DefaultUpcomingDays.
// parseCategory reads an optional ?category= filter. Empty means every
// category.
func parseCategory(r *http.Request) (model.DateCategory, error) {
	c := model.DateCategory(r.URL.Query().Get("category"))
	if c != "" && !c.Valid() {
		return "", fmt.Errorf("unknown category %q", c)
	}
	return c, nil
}

func parseDays(r *http.Request) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return roster.DefaultUpcomingDays, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("days must be a non-negative integer")
	}
	return days, nil
}
