package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sweeney/fridge-monitor/internal/clock"
	"github.com/sweeney/fridge-monitor/internal/export"
	"github.com/sweeney/fridge-monitor/internal/logger"
	"github.com/sweeney/fridge-monitor/internal/logic"
	"github.com/sweeney/fridge-monitor/internal/status"
	"github.com/sweeney/fridge-monitor/internal/store"
)

// defaultRange is how far back /records.json looks without a from parameter.
const defaultRange = 24 * time.Hour

// RecordsJSON is the response of /records.json.
type RecordsJSON struct {
	From    string               `json:"from"`
	To      string               `json:"to"`
	Records []*status.PeriodJSON `json:"records"`
}

// DailyJSON is the response of /daily.json.
type DailyJSON struct {
	Day     string             `json:"day"`
	Records int                `json:"records"`
	Summary *status.PeriodJSON `json:"summary"`
}

// parseRange reads the from and to query parameters as RFC3339 times.
// to defaults to now and from to 24 hours before to.
func parseRange(r *http.Request, now time.Time) (from, to logic.Timestamp, err error) {
	end := now
	if v := r.URL.Query().Get("to"); v != "" {
		if end, err = time.Parse(time.RFC3339, v); err != nil {
			return 0, 0, fmt.Errorf("to: %w", err)
		}
	}
	begin := end.Add(-defaultRange)
	if v := r.URL.Query().Get("from"); v != "" {
		if begin, err = time.Parse(time.RFC3339, v); err != nil {
			return 0, 0, fmt.Errorf("from: %w", err)
		}
	}
	if begin.After(end) {
		return 0, 0, errors.New("from is after to")
	}
	// Times before the epoch clamp to zero.
	from, _ = clock.ToTimestamp(begin)
	to, _ = clock.ToTimestamp(end)
	return from, to, nil
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) (from, to logic.Timestamp, recs []logic.AggregationRecord, ok bool) {
	if s.repo == nil {
		http.Error(w, "record store disabled", http.StatusNotFound)
		return 0, 0, nil, false
	}
	from, to, err := parseRange(r, s.tracker.Snapshot().Now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, 0, nil, false
	}
	recs, err = s.repo.List(r.Context(), from, to)
	if err != nil {
		logger.ErrorKV(r.Context(), "list records failed", "error", err)
		http.Error(w, "list records failed", http.StatusInternalServerError)
		return 0, 0, nil, false
	}
	return from, to, recs, true
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	from, to, recs, ok := s.listRecords(w, r)
	if !ok {
		return
	}

	out := RecordsJSON{
		From:    clock.ToTime(from).Format(time.RFC3339),
		To:      clock.ToTime(to).Format(time.RFC3339),
		Records: make([]*status.PeriodJSON, 0, len(recs)),
	}
	for _, rec := range recs {
		out.Records = append(out.Records, status.PeriodFromRecord(rec))
	}
	writeJSON(w, out)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		http.Error(w, "record store disabled", http.StatusNotFound)
		return
	}
	day := s.tracker.Snapshot().Now
	if v := r.URL.Query().Get("day"); v != "" {
		var err error
		if day, err = time.Parse(time.DateOnly, v); err != nil {
			http.Error(w, "day: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	rec, err := s.repo.Daily(r.Context(), day)
	switch {
	case errors.Is(err, store.ErrNoRecords):
		http.Error(w, "no records for "+day.UTC().Format(time.DateOnly), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, DailyJSON{
		Day:     day.UTC().Format(time.DateOnly),
		Records: int(rec.RecordsRead),
		Summary: status.PeriodFromRecord(rec),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, _, recs, ok := s.listRecords(w, r)
	if !ok {
		return
	}
	data, err := export.BuildXLSX(s.tracker.Snapshot().Config.DeviceID, recs)
	if err != nil {
		logger.ErrorKV(r.Context(), "export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="records.xlsx"`)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
