package dashboard

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/internal/service"
	"breaktime-tracker-bot/pkg/dateutil"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().In(s.agg.Location()).Format("2006-01-02 15:04:05"),
	})
}

// handleDashboard bundles every today-panel in one response so the
// frontend refresh is a single request.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	today := s.agg.Today()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"realtime":     s.agg.RealtimeSummary(today),
		"distribution": s.agg.BreakDistribution(today),
		"agents":       s.agg.AgentPerformance(today),
		"hourly":       s.agg.HourlyDistribution(today),
		"trend":        s.agg.ComplianceTrend(today, 7),
	})
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.agg.RealtimeSummary(s.agg.Today()))
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	out := s.agg.BreakDistribution(s.agg.Today())
	if out == nil {
		out = []service.BreakDistribution{}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.agg.AgentPerformance(s.agg.Today()))
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.agg.HourlyDistribution(s.agg.Today()))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	s.writeJSON(w, http.StatusOK, s.agg.ComplianceTrend(s.agg.Today(), days))
}

func (s *Server) handleHistoryLogs(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.parseRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "user_id must be an integer")
			return
		}
	}

	var category models.BreakCategory
	if raw := r.URL.Query().Get("break_type"); raw != "" {
		category, err = models.ParseCategory(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := s.agg.Logs(start, end, userID, category, limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read break logs")
		return
	}
	if page.Logs == nil {
		page.Logs = []models.BreakRecord{}
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	start, end, err := s.parseRange(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "user_id must be an integer")
			return
		}
	}

	records, err := s.agg.Export(start, end, userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read break logs")
		return
	}

	filename := fmt.Sprintf("break_logs_%s_%s.csv", dateutil.DayKey(start), dateutil.DayKey(end))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	cw := csv.NewWriter(w)
	cw.Write([]string{"Timestamp", "User ID", "Username", "Full Name", "Break Type", "Action", "Duration (minutes)", "Reason"})
	loc := s.agg.Location()
	for _, rec := range records {
		duration := ""
		if rec.IsCompleted() {
			duration = strconv.FormatFloat(rec.DurationMinutes, 'f', 1, 64)
		}
		cw.Write([]string{
			rec.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
			strconv.FormatInt(rec.UserID, 10),
			rec.Username,
			rec.FullName,
			rec.Category.Label(),
			string(rec.Action),
			duration,
			rec.Reason,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.WithError(err).Warn("CSV export write failed")
	}
}

// parseRange reads start_date/end_date (YYYY-MM-DD, operational zone).
// Missing values default to the last 7 days ending today.
func (s *Server) parseRange(r *http.Request) (time.Time, time.Time, error) {
	loc := s.agg.Location()
	end := s.agg.Today()
	start := end.AddDate(0, 0, -6)

	if raw := r.URL.Query().Get("start_date"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start_date must be YYYY-MM-DD")
		}
		start = t
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end_date must be YYYY-MM-DD")
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date must not be before start_date")
	}
	return start, end, nil
}
