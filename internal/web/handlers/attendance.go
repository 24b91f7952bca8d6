package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/veriface/veriface/internal/store"
)

// AttendanceReader lists committed attendance records.
type AttendanceReader interface {
	ListAttendance(ctx context.Context, day time.Time) ([]store.Record, error)
}

// LastCommitted reports the most recent accepted commit of the process.
type LastCommitted interface {
	Last() (string, time.Time, bool)
}

// AttendanceHandler exposes the day's attendance records.
type AttendanceHandler struct {
	reader AttendanceReader
	ledger LastCommitted
}

func NewAttendanceHandler(reader AttendanceReader, ledger LastCommitted) *AttendanceHandler {
	return &AttendanceHandler{reader: reader, ledger: ledger}
}

type attendanceRow struct {
	Identity   string `json:"identity"`
	RecordedAt string `json:"recorded_at"`
}

// List returns the records for one calendar day (query param "date",
// format 2006-01-02, default today).
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		respondError(w, http.StatusServiceUnavailable, "attendance store not available")
		return
	}

	day := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		day = parsed
	}

	records, err := h.reader.ListAttendance(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows := make([]attendanceRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, attendanceRow{
			Identity:   rec.Identity,
			RecordedAt: rec.RecordedAt.Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":    day.Format("2006-01-02"),
		"records": rows,
	})
}

// Last returns the most recent accepted commit, if any.
func (h *AttendanceHandler) Last(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		respondError(w, http.StatusServiceUnavailable, "ledger not available")
		return
	}
	name, at, ok := h.ledger.Last()
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"recorded": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"recorded": true,
		"identity": name,
		"time":     at.Format("15:04:05"),
	})
}
