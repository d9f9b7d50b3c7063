package service

import (
	"math"
	"sort"
	"time"

	"breaktime-tracker-bot/internal/models"
	"breaktime-tracker-bot/internal/repository"
	"breaktime-tracker-bot/internal/session"
	"breaktime-tracker-bot/pkg/dateutil"

	"github.com/sirupsen/logrus"
)

// RealtimeMetrics is the dashboard header block.
type RealtimeMetrics struct {
	ActiveBreaks        int     `json:"active_breaks"`
	CompletedBreaksToday int    `json:"completed_breaks_today"`
	AgentsActiveToday   int     `json:"agents_active_today"`
	TotalBreakTimeToday float64 `json:"total_break_time_today"`
	Timestamp           string  `json:"timestamp"`
}

// BreakDistribution is the per-category slice of completed breaks.
type BreakDistribution struct {
	BreakType     string  `json:"break_type"`
	Category      string  `json:"category"`
	Count         int     `json:"count"`
	TotalDuration float64 `json:"total_duration"`
	AvgDuration   float64 `json:"avg_duration"`
	Percentage    float64 `json:"percentage"`
}

// AgentPerformance is one row of the sortable agent table.
type AgentPerformance struct {
	UserID        int64   `json:"user_id"`
	FullName      string  `json:"full_name"`
	TotalBreaks   int     `json:"total_breaks"`
	TotalDuration float64 `json:"total_duration"`
	AvgDuration   float64 `json:"avg_duration"`
	Status        string  `json:"status"`
}

// HourlyBucket is one hour of the break-out histogram.
type HourlyBucket struct {
	Hour       int    `json:"hour"`
	HourLabel  string `json:"hour_label"`
	BreakOuts  int    `json:"break_outs"`
	BreakBacks int    `json:"break_backs"`
}

// TrendPoint is one day of the compliance trend series.
type TrendPoint struct {
	Date        string `json:"date"`
	TotalBreaks int    `json:"total_breaks"`
	AgentsCount int    `json:"agents_count"`
}

// LogPage is a paginated slice of raw records for the history view.
type LogPage struct {
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Logs   []models.BreakRecord `json:"logs"`
}

// AggregationService computes derived statistics over the record store.
// Every call re-scans the relevant partitions; nothing is materialized.
// All day boundaries use the configured operational time zone.
type AggregationService struct {
	store         repository.BreakRecordRepository
	tracker       *session.Tracker
	loc           *time.Location
	retentionDays int
	logger        *logrus.Logger
}

// NewAggregationService wires the read side. tracker may be nil; then
// active-break counts and on-break statuses are omitted.
func NewAggregationService(store repository.BreakRecordRepository, tracker *session.Tracker, loc *time.Location, retentionDays int) *AggregationService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if loc == nil {
		loc = time.Local
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}

	return &AggregationService{
		store:         store,
		tracker:       tracker,
		loc:           loc,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Today returns the current day start in the operational zone.
func (s *AggregationService) Today() time.Time {
	day, _ := dateutil.DayBounds(time.Now().In(s.loc))
	return day
}

// Location exposes the operational zone for callers formatting output.
func (s *AggregationService) Location() *time.Location {
	return s.loc
}

func (s *AggregationService) dayRecords(day time.Time) []models.BreakRecord {
	start, end := dateutil.DayBounds(day.In(s.loc))
	records, err := s.store.QueryRange(start, end)
	if err != nil {
		s.logger.WithError(err).WithField("day", dateutil.DayKey(day)).Warn("Failed to read day records")
		return nil
	}
	return records
}

// RealtimeSummary computes the header metrics for one day.
func (s *AggregationService) RealtimeSummary(day time.Time) RealtimeMetrics {
	records := s.dayRecords(day)

	agents := make(map[int64]struct{})
	completed := 0
	var totalTime float64
	for _, rec := range records {
		agents[rec.UserID] = struct{}{}
		if rec.IsCompleted() {
			completed++
			totalTime += rec.DurationMinutes
		}
	}

	active := 0
	if s.tracker != nil {
		active = len(s.tracker.Snapshot())
	}

	return RealtimeMetrics{
		ActiveBreaks:         active,
		CompletedBreaksToday: completed,
		AgentsActiveToday:    len(agents),
		TotalBreakTimeToday:  round1(totalTime),
		Timestamp:            time.Now().In(s.loc).Format("2006-01-02 15:04:05"),
	}
}

// BreakDistribution groups the day's completed breaks by category.
func (s *AggregationService) BreakDistribution(day time.Time) []BreakDistribution {
	records := s.dayRecords(day)

	type bucket struct {
		count int
		total float64
	}
	buckets := make(map[models.BreakCategory]*bucket)
	totalCount := 0
	for _, rec := range records {
		if !rec.IsCompleted() {
			continue
		}
		b, ok := buckets[rec.Category]
		if !ok {
			b = &bucket{}
			buckets[rec.Category] = b
		}
		b.count++
		b.total += rec.DurationMinutes
		totalCount++
	}

	var out []BreakDistribution
	for _, cat := range models.Categories() {
		b, ok := buckets[cat]
		if !ok {
			continue
		}
		out = append(out, BreakDistribution{
			BreakType:     cat.Label(),
			Category:      string(cat),
			Count:         b.count,
			TotalDuration: round1(b.total),
			AvgDuration:   round1(b.total / float64(b.count)),
			Percentage:    round1(100 * float64(b.count) / float64(totalCount)),
		})
	}
	return out
}

// AgentPerformance builds the per-user table for one day, sorted by
// total breaks descending. Users who only have an OUT so far appear
// with zero completed breaks.
func (s *AggregationService) AgentPerformance(day time.Time) []AgentPerformance {
	records := s.dayRecords(day)

	type agg struct {
		name  string
		count int
		total float64
	}
	agents := make(map[int64]*agg)
	for _, rec := range records {
		a, ok := agents[rec.UserID]
		if !ok {
			a = &agg{name: rec.FullName}
			agents[rec.UserID] = a
		}
		if rec.FullName != "" {
			a.name = rec.FullName
		}
		if rec.IsCompleted() {
			a.count++
			a.total += rec.DurationMinutes
		}
	}

	out := make([]AgentPerformance, 0, len(agents))
	for id, a := range agents {
		avg := 0.0
		if a.count > 0 {
			avg = a.total / float64(a.count)
		}
		status := "available"
		if s.tracker != nil {
			if _, onBreak := s.tracker.Peek(id); onBreak {
				status = "on_break"
			}
		}
		out = append(out, AgentPerformance{
			UserID:        id,
			FullName:      a.name,
			TotalBreaks:   a.count,
			TotalDuration: round1(a.total),
			AvgDuration:   round1(avg),
			Status:        status,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalBreaks != out[j].TotalBreaks {
			return out[i].TotalBreaks > out[j].TotalBreaks
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// HourlyDistribution counts OUT and BACK actions per hour of day.
func (s *AggregationService) HourlyDistribution(day time.Time) []HourlyBucket {
	records := s.dayRecords(day)

	out := make([]HourlyBucket, 24)
	for h := range out {
		out[h] = HourlyBucket{Hour: h, HourLabel: dateutil.HourLabel(h)}
	}
	for _, rec := range records {
		h := rec.Timestamp.In(s.loc).Hour()
		if rec.Action == models.ActionStart {
			out[h].BreakOuts++
		} else {
			out[h].BreakBacks++
		}
	}
	return out
}

// ComplianceTrend returns one point per day for the `days` days ending
// on endDay (inclusive). days is clamped to the retention horizon.
func (s *AggregationService) ComplianceTrend(endDay time.Time, days int) []TrendPoint {
	if days < 1 {
		days = 1
	}
	if days > s.retentionDays {
		days = s.retentionDays
	}

	end, _ := dateutil.DayBounds(endDay.In(s.loc))
	start := end.AddDate(0, 0, -(days - 1))

	out := make([]TrendPoint, 0, days)
	for _, day := range dateutil.DaysInRange(start, end) {
		records := s.dayRecords(day)
		agents := make(map[int64]struct{})
		completed := 0
		for _, rec := range records {
			agents[rec.UserID] = struct{}{}
			if rec.IsCompleted() {
				completed++
			}
		}
		out = append(out, TrendPoint{
			Date:        dateutil.DayKey(day),
			TotalBreaks: completed,
			AgentsCount: len(agents),
		})
	}
	return out
}

// Logs returns raw records in [start, end] newest first, optionally
// filtered by user and category, paginated. The range is clamped to the
// retention horizon so a wild date range never scans unbounded history.
func (s *AggregationService) Logs(start, end time.Time, userID int64, category models.BreakCategory, limit, offset int) (LogPage, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.rangeRecords(start, end)
	if err != nil {
		return LogPage{Limit: limit, Offset: offset}, err
	}

	var filtered []models.BreakRecord
	for _, rec := range records {
		if userID != 0 && rec.UserID != userID {
			continue
		}
		if category != "" && rec.Category != category {
			continue
		}
		filtered = append(filtered, rec)
	}

	// Newest first for the history table.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	total := len(filtered)
	if offset > total {
		offset = total
	}
	pageEnd := offset + limit
	if pageEnd > total {
		pageEnd = total
	}

	return LogPage{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Logs:   filtered[offset:pageEnd],
	}, nil
}

// Export returns the raw records for a range oldest first, optionally
// filtered by user, for the CSV export.
func (s *AggregationService) Export(start, end time.Time, userID int64) ([]models.BreakRecord, error) {
	records, err := s.rangeRecords(start, end)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return records, nil
	}

	var out []models.BreakRecord
	for _, rec := range records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *AggregationService) rangeRecords(start, end time.Time) ([]models.BreakRecord, error) {
	startDay, _ := dateutil.DayBounds(start.In(s.loc))
	_, endBound := dateutil.DayBounds(end.In(s.loc))

	horizon := s.Today().AddDate(0, 0, -s.retentionDays)
	if startDay.Before(horizon) {
		s.logger.WithFields(logrus.Fields{
			"start":   dateutil.DayKey(startDay),
			"horizon": dateutil.DayKey(horizon),
		}).Debug("Clamping query range to retention horizon")
		startDay = horizon
	}

	return s.store.QueryRange(startDay, endBound)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
